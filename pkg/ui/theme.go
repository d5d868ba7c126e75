package ui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/casepick/pkg/model"
	"github.com/vanderheijden86/casepick/pkg/selection"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeBg returns the given hex color for TrueColor terminals and
// lipgloss.NoColor{} otherwise, so 16/256-color terminals keep their own
// background.
func ThemeBg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.TrueColor {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(hex)
}

// ThemeFg returns the given hex color for ANSI256+ terminals and a safe
// ANSI white (color 7) for 16-color or lower terminals.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

type Theme struct {
	Renderer *lipgloss.Renderer

	// Colors
	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor

	// Checkbox states
	Checked       lipgloss.AdaptiveColor
	Indeterminate lipgloss.AdaptiveColor
	Unchecked     lipgloss.AdaptiveColor

	// Priorities
	Critical lipgloss.AdaptiveColor
	High     lipgloss.AdaptiveColor
	Medium   lipgloss.AdaptiveColor
	Low      lipgloss.AdaptiveColor

	// UI Elements
	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Danger    lipgloss.AdaptiveColor

	// Styles
	Base     lipgloss.Style
	Selected lipgloss.Style
	Header   lipgloss.Style

	// Pre-computed row styles, created once instead of per frame
	MutedText     lipgloss.Style
	SecondaryText lipgloss.Style
	PrimaryBold   lipgloss.Style
	CheckedBox    lipgloss.Style
	PartialBox    lipgloss.Style
	EmptyBox      lipgloss.Style
	Match         lipgloss.Style
}

// DefaultTheme returns the standard Dracula-inspired theme (adaptive)
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}, // Purple
		Secondary: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"}, // Gray
		Subtext:   lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BFBFBF"}, // Dim

		Checked:       lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"}, // Green
		Indeterminate: lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}, // Orange
		Unchecked:     lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"}, // Gray

		Critical: lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"},
		High:     lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"},
		Medium:   lipgloss.AdaptiveColor{Light: "#808000", Dark: "#F1FA8C"},
		Low:      lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"},

		Border:    lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Highlight: lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#44475A"},
		Muted:     lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Danger:    lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"},
	}

	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#F8F8F2"})

	t.Selected = r.NewStyle().
		Background(t.Highlight).
		Bold(true)

	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)

	t.MutedText = r.NewStyle().Foreground(t.Muted)
	t.SecondaryText = r.NewStyle().Foreground(t.Secondary)
	t.PrimaryBold = r.NewStyle().Foreground(t.Primary).Bold(true)
	t.CheckedBox = r.NewStyle().Foreground(t.Checked).Bold(true)
	t.PartialBox = r.NewStyle().Foreground(t.Indeterminate).Bold(true)
	t.EmptyBox = r.NewStyle().Foreground(t.Unchecked)
	t.Match = r.NewStyle().Foreground(ThemeFg("#FFD700")).Underline(true)

	return t
}

// Checkbox renders the tri-state box for s.
func (t Theme) Checkbox(s selection.State) string {
	switch s {
	case selection.Checked:
		return t.CheckedBox.Render("[x]")
	case selection.Indeterminate:
		return t.PartialBox.Render("[-]")
	default:
		return t.EmptyBox.Render("[ ]")
	}
}

// PriorityColor maps a case priority to its badge color.
func (t Theme) PriorityColor(p model.Priority) lipgloss.AdaptiveColor {
	switch p {
	case model.PriorityP0:
		return t.Critical
	case model.PriorityP1:
		return t.High
	case model.PriorityP2:
		return t.Medium
	case model.PriorityP3:
		return t.Low
	default:
		return t.Subtext
	}
}

// GetTypeIcon returns a one-letter badge for a case type.
func (t Theme) GetTypeIcon(typ model.CaseType) (string, lipgloss.AdaptiveColor) {
	switch typ {
	case model.TypeFunctional:
		return "F", t.Primary
	case model.TypeBoundary:
		return "B", t.Medium
	case model.TypeException:
		return "E", t.Critical
	case model.TypePerformance:
		return "P", t.High
	case model.TypeSecurity:
		return "S", t.Danger
	case model.TypeCompatibility:
		return "C", t.Low
	default:
		return "·", t.Subtext
	}
}

// TestTheme returns a theme suitable for use in tests.
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}
