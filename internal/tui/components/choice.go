package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/pluginkit/internal/tui/ui"
)

// Item is one selectable entry.
type Item struct {
	Label       string
	Description string
}

// ChoiceResultMsg is sent when the user submits a selection. Selected holds
// item indexes in list order.
type ChoiceResultMsg struct {
	Selected []int
}

// Choice is a vertical list supporting single or multiple selection.
type Choice struct {
	title    string
	items    []Item
	cursor   int
	multi    bool
	checked  []bool
	minPicks int
	hint     string
	keys     ui.KeyMap
	styles   ui.Styles
}

// NewChoice creates a single-selection list.
func NewChoice(title string, items ...Item) Choice {
	return Choice{
		title:   title,
		items:   items,
		checked: make([]bool, len(items)),
		keys:    ui.DefaultKeyMap(),
		styles:  ui.DefaultStyles(),
	}
}

// Multi switches the list to multiple selection requiring at least minPicks
// checked items on submit.
func (c Choice) Multi(minPicks int) Choice {
	c.multi = true
	c.minPicks = minPicks
	return c
}

// WithChecked pre-checks the given indexes.
func (c Choice) WithChecked(indexes ...int) Choice {
	c.checked = make([]bool, len(c.items))
	for _, i := range indexes {
		if i >= 0 && i < len(c.items) {
			c.checked[i] = true
		}
	}
	return c
}

// Cursor returns the focused index.
func (c Choice) Cursor() int {
	return c.cursor
}

// Checked returns the checked indexes in list order.
func (c Choice) Checked() []int {
	var out []int
	for i, ok := range c.checked {
		if ok {
			out = append(out, i)
		}
	}
	return out
}

// Init implements tea.Model.
func (c Choice) Init() tea.Cmd {
	return nil
}

// Update handles navigation, toggling and submission.
func (c Choice) Update(msg tea.Msg) (Choice, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || len(c.items) == 0 {
		return c, nil
	}

	switch {
	case c.keys.IsUp(keyMsg):
		if c.cursor > 0 {
			c.cursor--
		}
	case c.keys.IsDown(keyMsg):
		if c.cursor < len(c.items)-1 {
			c.cursor++
		}
	case c.multi && key.Matches(keyMsg, c.keys.Toggle):
		c.checked[c.cursor] = !c.checked[c.cursor]
		c.hint = ""
	case key.Matches(keyMsg, c.keys.Select):
		return c.submit()
	}
	return c, nil
}

func (c Choice) submit() (Choice, tea.Cmd) {
	selected := []int{c.cursor}
	if c.multi {
		selected = c.Checked()
		if len(selected) < c.minPicks {
			c.hint = "Select at least one option with space."
			return c, nil
		}
	}
	return c, func() tea.Msg {
		return ChoiceResultMsg{Selected: selected}
	}
}

// Hint returns the validation message shown after a rejected submit.
func (c Choice) Hint() string {
	return c.hint
}

// View renders the list.
func (c Choice) View() string {
	var b strings.Builder
	b.WriteString(c.styles.Title.Render(c.title))
	b.WriteString("\n")

	for i, item := range c.items {
		marker := "  "
		if c.multi {
			marker = "[ ] "
			if c.checked[i] {
				marker = c.styles.Checked.Render("[x]") + " "
			}
		}

		line := marker + item.Label
		if item.Description != "" {
			line += c.styles.Help.Render(" - " + item.Description)
		}

		style := c.styles.ListItem
		if i == c.cursor {
			style = c.styles.ListItemActive
			line = "> " + line
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}

	if c.hint != "" {
		b.WriteString(c.styles.Warning.Render(c.hint))
		b.WriteString("\n")
	}

	help := "↑/↓ move • enter select"
	if c.multi {
		help = "↑/↓ move • space toggle • enter confirm"
	}
	b.WriteString(c.styles.Help.Render(help))
	return b.String()
}
