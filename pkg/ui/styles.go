package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ══════════════════════════════════════════════════════════════════════════════
// DESIGN TOKENS - Consistent spacing, colors, and visual language
// ══════════════════════════════════════════════════════════════════════════════

// Spacing constants for consistent layout (in characters)
const (
	SpaceXS = 1
	SpaceSM = 2
	SpaceMD = 3
)

// ══════════════════════════════════════════════════════════════════════════════
// COLOR PALETTE - Adaptive colors for light and dark terminals
// Light mode colors tuned for WCAG AA compliance (contrast ratio >= 4.5:1)
// ══════════════════════════════════════════════════════════════════════════════

var (
	ColorBgSubtle    = lipgloss.AdaptiveColor{Light: "#E8E8E8", Dark: "#363949"}
	ColorBgHighlight = lipgloss.AdaptiveColor{Light: "#D0D0D0", Dark: "#44475A"}
	ColorText        = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"}
	ColorSubtext     = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BFBFBF"}
	ColorMuted       = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#6272A4"}

	ColorPrimary = lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}
	ColorInfo    = lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"}
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}
	ColorDanger  = lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"}

	// Type badge text color (white on colored background)
	ColorTypeBadgeText = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#FFFFFF"}

	// Section depth colors, cycled by indent level.
	ColorSectionLevels = []lipgloss.AdaptiveColor{
		{Light: "#6B47D9", Dark: "#BD93F9"},
		{Light: "#006080", Dark: "#8BE9FD"},
		{Light: "#36B37E", Dark: "#57D9A3"},
		{Light: "#B06800", Dark: "#FFB86C"},
	}
)

// ══════════════════════════════════════════════════════════════════════════════
// PANEL STYLES
// ══════════════════════════════════════════════════════════════════════════════

// PopupStyle frames the move-to-region and add-content pickers.
var PopupStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorPrimary).
	Padding(0, 1)

// ══════════════════════════════════════════════════════════════════════════════
// BADGE RENDERING
// ══════════════════════════════════════════════════════════════════════════════

// RenderTypeBadge renders the one-letter plugin badge of a row. color is the
// plugin's configured hex color; an empty color falls back to the depth palette.
func RenderTypeBadge(title, color string, level int) string {
	label := "·"
	if title != "" {
		label = strings.ToUpper(string([]rune(title)[0]))
	}
	var bg lipgloss.TerminalColor = sectionColor(level)
	if color != "" {
		bg = ThemeFg(color)
	}
	return lipgloss.NewStyle().
		Foreground(ColorTypeBadgeText).
		Background(bg).
		Bold(true).
		Render(label)
}

func sectionColor(level int) lipgloss.AdaptiveColor {
	if level < 0 {
		level = 0
	}
	return ColorSectionLevels[level%len(ColorSectionLevels)]
}

// ══════════════════════════════════════════════════════════════════════════════
// DIVIDERS AND SEPARATORS
// ══════════════════════════════════════════════════════════════════════════════

// RenderDivider renders a horizontal divider line
func RenderDivider(width int) string {
	if width <= 0 {
		return ""
	}
	return lipgloss.NewStyle().
		Foreground(ColorBgHighlight).
		Render(strings.Repeat("─", width))
}

// RenderDropLine renders the insertion marker shown while dragging.
func RenderDropLine(width int) string {
	if width <= 0 {
		return ""
	}
	return lipgloss.NewStyle().
		Foreground(ColorSuccess).
		Bold(true).
		Render(strings.Repeat("━", width))
}
