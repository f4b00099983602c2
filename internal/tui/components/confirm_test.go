package components

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func confirmResult(t *testing.T, cmd tea.Cmd) bool {
	t.Helper()
	require.NotNil(t, cmd, "expected a command")
	result, ok := cmd().(ConfirmResultMsg)
	require.True(t, ok)
	return result.Confirmed
}

func TestNewConfirm(t *testing.T) {
	t.Parallel()

	confirm := NewConfirm("Overwrite archive?")

	assert.Equal(t, "Overwrite archive?", confirm.Message())
	assert.True(t, confirm.Focused())
	assert.False(t, confirm.WithDefault(false).Focused())
}

func TestConfirm_Navigation(t *testing.T) {
	t.Parallel()

	confirm := NewConfirm("Confirm?")

	confirm, _ = confirm.Update(tea.KeyMsg{Type: tea.KeyRight})
	assert.False(t, confirm.Focused())

	confirm, _ = confirm.Update(tea.KeyMsg{Type: tea.KeyLeft})
	assert.True(t, confirm.Focused())

	confirm, _ = confirm.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'l'}})
	assert.False(t, confirm.Focused())

	confirm, _ = confirm.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'h'}})
	assert.True(t, confirm.Focused())
}

func TestConfirm_Answers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		def  bool
		msg  tea.KeyMsg
		want bool
	}{
		{name: "enter on yes", def: true, msg: tea.KeyMsg{Type: tea.KeyEnter}, want: true},
		{name: "enter on no", def: false, msg: tea.KeyMsg{Type: tea.KeyEnter}, want: false},
		{name: "quick yes", def: false, msg: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}}, want: true},
		{name: "quick no", def: true, msg: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, cmd := NewConfirm("Proceed?").WithDefault(tt.def).Update(tt.msg)
			assert.Equal(t, tt.want, confirmResult(t, cmd))
		})
	}
}

func TestConfirm_IgnoresOtherMessages(t *testing.T) {
	t.Parallel()

	confirm := NewConfirm("Proceed?")
	next, cmd := confirm.Update(tea.WindowSizeMsg{Width: 100, Height: 20})
	assert.Nil(t, cmd)
	assert.Equal(t, confirm.Focused(), next.Focused())
}

func TestConfirm_View(t *testing.T) {
	t.Parallel()

	view := NewConfirm("Delete dist?").WithLabels("Delete", "Keep").WithWidth(60).View()

	assert.Contains(t, view, "Delete dist?")
	assert.Contains(t, view, "Delete")
	assert.Contains(t, view, "Keep")
}
