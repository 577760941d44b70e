package ui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeBg returns the given hex color for TrueColor terminals and
// lipgloss.NoColor{} otherwise, so 16/256-color terminals use the
// terminal's own background instead of a down-converted approximation.
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

// GlamourStyle picks the glamour standard style matching the terminal.
func GlamourStyle() string {
	if TermProfile < colorprofile.ANSI256 {
		return "notty"
	}
	return "dark"
}

type Theme struct {
	Renderer *lipgloss.Renderer

	// Colors
	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor

	// Row states
	Deleted  lipgloss.AdaptiveColor
	Errored  lipgloss.AdaptiveColor
	Unknown  lipgloss.AdaptiveColor
	Dragging lipgloss.AdaptiveColor

	// UI Elements
	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor

	// Styles
	Base      lipgloss.Style
	Selected  lipgloss.Style
	Header    lipgloss.Style
	Tab       lipgloss.Style
	ActiveTab lipgloss.Style

	// Pre-computed row styles, created once at startup instead of per-frame.
	MutedText   lipgloss.Style // Orderings, placeholders
	InfoText    lipgloss.Style // Status line
	ErrorText   lipgloss.Style // Failed actions, errored rows
	WarningText lipgloss.Style // Unknown regions
	DeletedText lipgloss.Style // Rows marked for deletion
	PrimaryBold lipgloss.Style // Cursor indicator
	Picked      lipgloss.Style // Multi-selected rows
}

// DefaultTheme returns the standard Dracula-inspired theme (adaptive)
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}, // Purple
		Secondary: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"}, // Gray
		Subtext:   lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BFBFBF"}, // Dim

		Deleted:  lipgloss.AdaptiveColor{Light: "#888888", Dark: "#44475A"},
		Errored:  lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"},
		Unknown:  lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"},
		Dragging: lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"},

		Border:    lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Highlight: lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#44475A"},
		Muted:     lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
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

	t.Tab = r.NewStyle().Foreground(t.Subtext).Padding(0, 1)
	t.ActiveTab = r.NewStyle().
		Foreground(t.Primary).
		Bold(true).
		Underline(true).
		Padding(0, 1)

	t.MutedText = r.NewStyle().Foreground(ColorMuted)
	t.InfoText = r.NewStyle().Foreground(ColorInfo)
	t.ErrorText = r.NewStyle().Foreground(t.Errored).Bold(true)
	t.WarningText = r.NewStyle().Foreground(t.Unknown)
	t.DeletedText = r.NewStyle().Foreground(t.Deleted).Strikethrough(true)
	t.PrimaryBold = r.NewStyle().Foreground(t.Primary).Bold(true)
	t.Picked = r.NewStyle().Foreground(t.Dragging).Bold(true)

	return t
}

// TestTheme returns a theme suitable for use in tests.
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}
