// Package ui provides shared styles and key bindings for the prompts.
package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme colors (Catppuccin Mocha inspired).
var (
	ColorPrimary    = lipgloss.AdaptiveColor{Light: "#1e66f5", Dark: "#89b4fa"} // Blue
	ColorSecondary  = lipgloss.AdaptiveColor{Light: "#7c3aed", Dark: "#cba6f7"} // Mauve
	ColorSuccess    = lipgloss.AdaptiveColor{Light: "#40a02b", Dark: "#a6e3a1"} // Green
	ColorWarning    = lipgloss.AdaptiveColor{Light: "#df8e1d", Dark: "#f9e2af"} // Yellow
	ColorError      = lipgloss.AdaptiveColor{Light: "#d20f39", Dark: "#f38ba8"} // Red
	ColorMuted      = lipgloss.AdaptiveColor{Light: "#6c6f85", Dark: "#6c7086"} // Overlay0
	ColorText       = lipgloss.AdaptiveColor{Light: "#4c4f69", Dark: "#cdd6f4"} // Text
	ColorBackground = lipgloss.AdaptiveColor{Light: "#eff1f5", Dark: "#1e1e2e"} // Base
	ColorSurface    = lipgloss.AdaptiveColor{Light: "#e6e9ef", Dark: "#313244"} // Surface0
)

// Styles contains reusable lipgloss styles for the prompts.
type Styles struct {
	// Base styles
	App       lipgloss.Style
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Paragraph lipgloss.Style

	// Status styles
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style

	// Interactive elements
	Button       lipgloss.Style
	ButtonActive lipgloss.Style

	// List items
	ListItem       lipgloss.Style
	ListItemActive lipgloss.Style
	Checked        lipgloss.Style

	// Help text
	Help    lipgloss.Style
	HelpKey lipgloss.Style
}

// DefaultStyles returns the default prompt styles.
func DefaultStyles() Styles {
	return Styles{
		App: lipgloss.NewStyle().
			Padding(1, 2),

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			MarginBottom(1),

		Subtitle: lipgloss.NewStyle().
			Foreground(ColorSecondary),

		Paragraph: lipgloss.NewStyle().
			Foreground(ColorText),

		Success: lipgloss.NewStyle().
			Foreground(ColorSuccess),

		Warning: lipgloss.NewStyle().
			Foreground(ColorWarning),

		Error: lipgloss.NewStyle().
			Foreground(ColorError),

		Button: lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(ColorText).
			Background(ColorSurface).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted),

		ButtonActive: lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(ColorBackground).
			Background(ColorPrimary).
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary),

		ListItem: lipgloss.NewStyle().
			PaddingLeft(2).
			Foreground(ColorText),

		ListItemActive: lipgloss.NewStyle().
			PaddingLeft(2).
			Foreground(ColorPrimary).
			Bold(true),

		Checked: lipgloss.NewStyle().
			Foreground(ColorSuccess).
			Bold(true),

		Help: lipgloss.NewStyle().
			Foreground(ColorMuted),

		HelpKey: lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true),
	}
}

// WithWidth returns styles adapted for a specific terminal width.
func (s Styles) WithWidth(width int) Styles {
	s.App = s.App.Width(width)
	s.Paragraph = s.Paragraph.Width(width - 4)
	return s
}
