package components

import "github.com/charmbracelet/lipgloss"

// Palette names the colors a color scheme is made of.
type Palette struct {
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Accent     lipgloss.Color
	Muted      lipgloss.Color
	Background lipgloss.Color
	Error      lipgloss.Color
	Warning    lipgloss.Color
	Success    lipgloss.Color
}

// SteelPalette is the default blue-grey workshop scheme.
var SteelPalette = Palette{
	Primary:    "#C9D1D9",
	Secondary:  "#8B949E",
	Accent:     "#58A6FF",
	Muted:      "#484F58",
	Background: "#0D1117",
	Error:      "#F85149",
	Warning:    "#D29922",
	Success:    "#3FB950",
}

// Styles holds the styles components and views render with.
type Styles struct {
	Title   lipgloss.Style
	Section lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Muted   lipgloss.Style
	Focus   lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Success lipgloss.Style
	Help    lipgloss.Style

	TableHeader   lipgloss.Style
	TableRow      lipgloss.Style
	TableRowAlt   lipgloss.Style
	TableSelected lipgloss.Style
	TableBorder   lipgloss.Style
}

// DefaultStyles returns the steel palette styles.
func DefaultStyles() Styles {
	return NewStyles(SteelPalette)
}

// NewStyles builds component styles from a palette.
func NewStyles(p Palette) Styles {
	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

	return Styles{
		Title:   fg(p.Accent).Bold(true),
		Section: fg(p.Primary).Bold(true),
		Label:   fg(p.Secondary),
		Value:   fg(p.Primary),
		Muted:   fg(p.Muted),
		Focus:   fg(p.Accent),
		Error:   fg(p.Error),
		Warning: fg(p.Warning),
		Success: fg(p.Success),
		Help:    fg(p.Secondary),

		TableHeader:   fg(p.Accent).Bold(true),
		TableRow:      fg(p.Primary),
		TableRowAlt:   fg(p.Secondary),
		TableSelected: lipgloss.NewStyle().Background(p.Accent).Foreground(p.Background),
		TableBorder:   fg(p.Muted),
	}
}
