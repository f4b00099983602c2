// Package tui provides the interactive prompts used by create and package
// when flags leave a choice open.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/pluginkit/internal/domain/archive"
	"github.com/felixgeelhaar/pluginkit/internal/domain/scaffold"
	"github.com/felixgeelhaar/pluginkit/internal/tui/components"
)

// ErrCanceled is returned when the user abandons a prompt.
var ErrCanceled = errors.New("prompt canceled")

// Prompter asks the user for the values a command needs.
type Prompter interface {
	PromptName(ctx context.Context, initial string) (string, error)
	PromptModules(ctx context.Context) (scaffold.Modules, error)
	PromptMode(ctx context.Context) (archive.Mode, error)
	Confirm(ctx context.Context, message string, def bool) (bool, error)
}

// TerminalPrompter runs each prompt as a bubbletea program.
type TerminalPrompter struct {
	in  io.Reader
	out io.Writer
}

// Option configures a TerminalPrompter.
type Option func(*TerminalPrompter)

// WithInput sets the input the programs read keys from.
func WithInput(r io.Reader) Option {
	return func(p *TerminalPrompter) {
		p.in = r
	}
}

// WithOutput sets where the programs render.
func WithOutput(w io.Writer) Option {
	return func(p *TerminalPrompter) {
		p.out = w
	}
}

// NewTerminalPrompter creates a prompter bound to the terminal by default.
func NewTerminalPrompter(opts ...Option) *TerminalPrompter {
	p := &TerminalPrompter{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ Prompter = (*TerminalPrompter)(nil)

// PromptName asks for a plugin name, validating as the user types.
func (p *TerminalPrompter) PromptName(ctx context.Context, initial string) (string, error) {
	m, err := run(ctx, p, newNameModel(initial))
	if err != nil {
		return "", err
	}
	return m.Value(), nil
}

// PromptModules asks which modules to scaffold. At least one is required.
func (p *TerminalPrompter) PromptModules(ctx context.Context) (scaffold.Modules, error) {
	m, err := run(ctx, p, newModulesModel())
	if err != nil {
		return scaffold.Modules{}, err
	}
	return m.Modules(), nil
}

// PromptMode asks for the archive build mode.
func (p *TerminalPrompter) PromptMode(ctx context.Context) (archive.Mode, error) {
	m, err := run(ctx, p, newModeModel())
	if err != nil {
		return archive.Development, err
	}
	return m.Mode(), nil
}

// Confirm asks a yes/no question.
func (p *TerminalPrompter) Confirm(ctx context.Context, message string, def bool) (bool, error) {
	m, err := run(ctx, p, newConfirmModel(message, def))
	if err != nil {
		return false, err
	}
	return m.confirmed, nil
}

// prompt is implemented by every model run through run.
type prompt interface {
	tea.Model
	Canceled() bool
}

func run[M prompt](ctx context.Context, p *TerminalPrompter, model M) (M, error) {
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if p.in != nil {
		opts = append(opts, tea.WithInput(p.in))
	}
	if p.out != nil {
		opts = append(opts, tea.WithOutput(p.out))
	}

	final, err := tea.NewProgram(model, opts...).Run()
	if err != nil {
		if ctx.Err() != nil {
			return model, ctx.Err()
		}
		return model, fmt.Errorf("prompt failed: %w", err)
	}

	m, ok := final.(M)
	if !ok {
		return model, fmt.Errorf("unexpected model type %T", final)
	}
	if m.Canceled() {
		return m, ErrCanceled
	}
	return m, nil
}

// confirmModel wraps components.Confirm as a program.
type confirmModel struct {
	confirm   components.Confirm
	confirmed bool
	canceled  bool
}

func newConfirmModel(message string, def bool) confirmModel {
	return confirmModel{confirm: components.NewConfirm(message).WithDefault(def)}
}

func (m confirmModel) Init() tea.Cmd {
	return m.confirm.Init()
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case components.ConfirmResultMsg:
		m.confirmed = msg.Confirmed
		return m, tea.Quit
	case tea.KeyMsg:
		if keys.IsAbort(msg) {
			m.canceled = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.confirm, cmd = m.confirm.Update(msg)
	return m, cmd
}

func (m confirmModel) View() string {
	return styles.App.Render(m.confirm.View())
}

func (m confirmModel) Canceled() bool {
	return m.canceled
}
