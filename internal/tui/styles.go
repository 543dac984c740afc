// Package tui provides the operator console for the shop ledger.
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/northchrome/opsledger/internal/config"
	"github.com/northchrome/opsledger/internal/tui/components"
)

var palettes = map[config.ColorScheme]components.Palette{
	config.ColorSchemeSteel: components.SteelPalette,
	config.ColorSchemeAmber: {
		Primary:    "#FFAA00",
		Secondary:  "#AA7700",
		Accent:     "#FFCC66",
		Muted:      "#664400",
		Background: "#000000",
		Error:      "#FF4444",
		Warning:    "#FFFF00",
		Success:    "#FFAA00",
	},
	// Dark on light for bright shop floors.
	config.ColorSchemeLight: {
		Primary:    "#24292F",
		Secondary:  "#57606A",
		Accent:     "#0969DA",
		Muted:      "#8C959F",
		Background: "#FFFFFF",
		Error:      "#CF222E",
		Warning:    "#9A6700",
		Success:    "#1A7F37",
	},
}

// Theme holds the console chrome styles. Views and forms take the
// component styles from Components.
type Theme struct {
	palette components.Palette

	Base    lipgloss.Style
	Bold    lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Success lipgloss.Style
	Muted   lipgloss.Style
	Accent  lipgloss.Style

	Header lipgloss.Style
	Footer lipgloss.Style
	Title  lipgloss.Style
	Label  lipgloss.Style
	Value  lipgloss.Style
	Box    lipgloss.Style

	// Alert bar, by level.
	Alert     lipgloss.Style
	AlertWarn lipgloss.Style
	AlertCrit lipgloss.Style

	StatusKey     lipgloss.Style
	StatusDivider lipgloss.Style

	components components.Styles
}

// NewTheme builds the theme for a color scheme; unknown schemes get steel.
func NewTheme(scheme config.ColorScheme) *Theme {
	p, ok := palettes[scheme]
	if !ok {
		p = components.SteelPalette
	}

	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

	t := &Theme{palette: p}
	t.Base = fg(p.Primary)
	t.Bold = t.Base.Bold(true)
	t.Error = fg(p.Error)
	t.Warning = fg(p.Warning)
	t.Success = fg(p.Success)
	t.Muted = fg(p.Muted)
	t.Accent = fg(p.Accent)

	t.Header = fg(p.Primary).Bold(true).Padding(0, 1)
	t.Footer = fg(p.Secondary).Padding(0, 1)
	t.Title = fg(p.Accent).Bold(true).Padding(0, 1)
	t.Label = fg(p.Secondary)
	t.Value = fg(p.Primary)
	t.Box = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Secondary).
		Padding(0, 1)

	t.Alert = fg(p.Primary).Bold(true)
	t.AlertWarn = fg(p.Warning).Bold(true)
	t.AlertCrit = fg(p.Error).Bold(true).Blink(true)

	t.StatusKey = fg(p.Accent).Bold(true)
	t.StatusDivider = fg(p.Muted).SetString(" │ ")

	t.components = components.NewStyles(p)
	return t
}

// Components returns the style set for views and components.
func (t *Theme) Components() components.Styles {
	return t.components
}

// DrawHorizontalLine draws a single rule.
func (t *Theme) DrawHorizontalLine(width int) string {
	return t.Label.Render(strings.Repeat("─", max(width, 0)))
}

// DrawDoubleLine draws a double rule.
func (t *Theme) DrawDoubleLine(width int) string {
	return t.Base.Render(strings.Repeat("═", max(width, 0)))
}
