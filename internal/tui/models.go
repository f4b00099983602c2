package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/pluginkit/internal/domain/archive"
	"github.com/felixgeelhaar/pluginkit/internal/domain/scaffold"
	"github.com/felixgeelhaar/pluginkit/internal/tui/components"
	"github.com/felixgeelhaar/pluginkit/internal/tui/ui"
	"github.com/felixgeelhaar/pluginkit/internal/validation"
)

var (
	keys   = ui.DefaultKeyMap()
	styles = ui.DefaultStyles()
)

const nameCharLimit = 64

// nameModel reads a plugin name.
type nameModel struct {
	input    textinput.Model
	err      error
	done     bool
	canceled bool
}

func newNameModel(initial string) nameModel {
	input := textinput.New()
	input.Placeholder = "my-plugin"
	input.CharLimit = nameCharLimit
	input.SetValue(initial)
	input.Focus()
	return nameModel{input: input}
}

func (m nameModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m nameModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		// Letters such as q must reach the input, so only ctrl+c and esc abort.
		switch {
		case keyMsg.Type == tea.KeyCtrlC || key.Matches(keyMsg, keys.Cancel):
			m.canceled = true
			return m, tea.Quit
		case key.Matches(keyMsg, keys.Select):
			if err := validation.ValidateScaffoldName(m.Value()); err != nil {
				m.err = err
				return m, nil
			}
			m.done = true
			return m, tea.Quit
		}
		m.err = nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m nameModel) View() string {
	if m.done {
		return ""
	}
	var b strings.Builder
	b.WriteString(styles.Title.Render("Plugin name"))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(styles.Error.Render(m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(styles.Help.Render("enter confirm • esc cancel"))
	return styles.App.Render(b.String())
}

func (m nameModel) Value() string {
	return strings.TrimSpace(m.input.Value())
}

func (m nameModel) Canceled() bool {
	return m.canceled
}

// choiceModel wraps components.Choice as a program.
type choiceModel struct {
	choice   components.Choice
	selected []int
	canceled bool
}

func (m choiceModel) Init() tea.Cmd {
	return m.choice.Init()
}

func (m choiceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case components.ChoiceResultMsg:
		m.selected = msg.Selected
		return m, tea.Quit
	case tea.KeyMsg:
		if keys.IsAbort(msg) {
			m.canceled = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.choice, cmd = m.choice.Update(msg)
	return m, cmd
}

func (m choiceModel) View() string {
	return styles.App.Render(m.choice.View())
}

func (m choiceModel) Canceled() bool {
	return m.canceled
}

func (m choiceModel) picked(i int) bool {
	for _, s := range m.selected {
		if s == i {
			return true
		}
	}
	return false
}

// Item order for the module prompt.
const (
	itemAdmin = iota
	itemAPI
)

type modulesModel struct {
	choiceModel
}

func newModulesModel() modulesModel {
	c := components.NewChoice("Modules to scaffold",
		components.Item{Label: "admin", Description: "admin UI with extension point registrations"},
		components.Item{Label: "api", Description: "backend API module"},
	).Multi(1).WithChecked(itemAdmin, itemAPI)
	return modulesModel{choiceModel{choice: c}}
}

func (m modulesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.choiceModel.Update(msg)
	m.choiceModel = next.(choiceModel)
	return m, cmd
}

func (m modulesModel) Modules() scaffold.Modules {
	return scaffold.Modules{
		Admin: m.picked(itemAdmin),
		API:   m.picked(itemAPI),
	}
}

type modeModel struct {
	choiceModel
}

func newModeModel() modeModel {
	c := components.NewChoice("Archive mode",
		components.Item{Label: "dev", Description: "everything except OS junk"},
		components.Item{Label: "prod", Description: "compile TypeScript, runtime files only"},
	)
	return modeModel{choiceModel{choice: c}}
}

func (m modeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.choiceModel.Update(msg)
	m.choiceModel = next.(choiceModel)
	return m, cmd
}

func (m modeModel) Mode() archive.Mode {
	if m.picked(int(archive.Production)) {
		return archive.Production
	}
	return archive.Development
}
