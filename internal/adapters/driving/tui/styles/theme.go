// Package styles provides colour themes and styling for the console session.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// Theme defines the colour palette of the console session.
type Theme struct {
	// Primary is the main accent colour.
	Primary lipgloss.Color

	// Secondary highlights suggested text.
	Secondary lipgloss.Color

	Foreground lipgloss.Color
	Muted      lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Error      lipgloss.Color
	Border     lipgloss.Color
}

// DefaultTheme returns the default colour theme.
func DefaultTheme() *Theme {
	return &Theme{
		Primary:    lipgloss.Color("#7C3AED"), // Purple
		Secondary:  lipgloss.Color("#06B6D4"), // Cyan
		Foreground: lipgloss.Color("#CDD6F4"),
		Muted:      lipgloss.Color("#6C7086"),
		Success:    lipgloss.Color("#A6E3A1"),
		Warning:    lipgloss.Color("#F9E2AF"),
		Error:      lipgloss.Color("#F38BA8"),
		Border:     lipgloss.Color("#45475A"),
	}
}

// Styles contains pre-configured lipgloss styles.
type Styles struct {
	theme *Theme

	// Heading is used for stage banners such as "Question Analysis".
	Heading lipgloss.Style

	// Suggested renders a question rewritten by the analyser.
	Suggested lipgloss.Style

	Normal lipgloss.Style
	Muted  lipgloss.Style

	// Cursor marks the focused row of the collection picker.
	Cursor lipgloss.Style

	// Checked marks a selected collection.
	Checked lipgloss.Style

	// Answer frames the final answer.
	Answer lipgloss.Style

	Warning lipgloss.Style
	Error   lipgloss.Style
	Help    lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	return &Styles{
		theme: theme,

		Heading: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Primary),

		Suggested: lipgloss.NewStyle().
			Italic(true).
			Foreground(theme.Secondary),

		Normal: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Cursor: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Primary),

		Checked: lipgloss.NewStyle().
			Foreground(theme.Success),

		Answer: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		Warning: lipgloss.NewStyle().
			Foreground(theme.Warning),

		Error: lipgloss.NewStyle().
			Foreground(theme.Error),

		Help: lipgloss.NewStyle().
			Foreground(theme.Muted),
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the theme used by these styles.
func (s *Styles) Theme() *Theme {
	return s.theme
}

// Outcome returns the banner style for a finished session.
func (s *Styles) Outcome(o domain.Outcome) lipgloss.Style {
	switch o {
	case domain.OutcomeAnswered:
		return s.Heading
	case domain.OutcomeNotAnswerable, domain.OutcomeNoDocuments:
		return s.Warning
	case domain.OutcomeCancelled, domain.OutcomeNone:
		return s.Muted
	default:
		return s.Normal
	}
}
