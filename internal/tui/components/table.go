// Package components provides reusable TUI components.
package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Column defines a table column. Width is the fixed width, or the minimum
// width when Weight is set. Columns with the lowest Priority are dropped
// first on narrow terminals.
type Column struct {
	Title    string
	Width    int
	Weight   float64
	Priority int
	Align    lipgloss.Position
}

const (
	columnSeparator = 3 // " │ "
	rowPadding      = 2
)

// Table lists rows under a header and keeps one row selected, scrolling
// to keep the selection in view.
type Table struct {
	columns     []Column
	rows        [][]string
	selected    int
	offset      int
	visibleRows int
	focused     bool
	styles      Styles
}

// NewTable creates a new table with the given columns.
func NewTable(columns []Column) *Table {
	return &Table{
		columns:     columns,
		visibleRows: 10,
		styles:      DefaultStyles(),
	}
}

// SetRows sets the table data. The selection is kept when still in range.
func (t *Table) SetRows(rows [][]string) {
	t.rows = rows
	if t.selected >= len(rows) {
		t.selected = max(len(rows)-1, 0)
	}
	if t.offset > t.selected {
		t.offset = t.selected
	}
}

// SetVisibleRows sets the number of visible rows.
func (t *Table) SetVisibleRows(n int) {
	if n < 1 {
		n = 1
	}
	t.visibleRows = n
}

// ApplyStyles restyles the table.
func (t *Table) ApplyStyles(s Styles) {
	t.styles = s
}

// Focus sets the table focus state.
func (t *Table) Focus(focused bool) {
	t.focused = focused
}

// Selected returns the currently selected row index.
func (t *Table) Selected() int {
	return t.selected
}

// MoveUp moves the selection up.
func (t *Table) MoveUp() {
	if t.selected > 0 {
		t.selected--
		if t.selected < t.offset {
			t.offset = t.selected
		}
	}
}

// MoveDown moves the selection down.
func (t *Table) MoveDown() {
	if t.selected < len(t.rows)-1 {
		t.selected++
		if t.selected >= t.offset+t.visibleRows {
			t.offset = t.selected - t.visibleRows + 1
		}
	}
}

// GoToTop selects the first row.
func (t *Table) GoToTop() {
	t.selected = 0
	t.offset = 0
}

// Render renders the table at the declared column widths.
func (t *Table) Render() string {
	return t.RenderResponsive(0)
}

// RenderResponsive renders the table to fit width. A width of zero or less
// renders every column at its declared width.
func (t *Table) RenderResponsive(width int) string {
	widths := t.computeWidths(width)

	totalWidth := rowPadding
	visible := 0
	for _, w := range widths {
		if w > 0 {
			totalWidth += w
			visible++
		}
	}
	if visible > 1 {
		totalWidth += (visible - 1) * columnSeparator
	}

	var b strings.Builder
	b.WriteString(t.renderRow(t.headers(), widths, t.styles.TableHeader))
	b.WriteString("\n")
	b.WriteString(t.styles.TableBorder.Render(strings.Repeat("─", totalWidth)))
	b.WriteString("\n")

	end := min(t.offset+t.visibleRows, len(t.rows))
	for i := t.offset; i < end; i++ {
		style := t.styles.TableRow
		switch {
		case i == t.selected && t.focused:
			style = t.styles.TableSelected
		case (i-t.offset)%2 == 1:
			style = t.styles.TableRowAlt
		}
		b.WriteString(t.renderRow(t.rows[i], widths, style))
		b.WriteString("\n")
	}

	return b.String()
}

// computeWidths distributes available among the columns. Weighted columns
// share what the fixed ones leave, never going below their Width. Hidden
// columns get zero.
func (t *Table) computeWidths(available int) []int {
	widths := make([]int, len(t.columns))
	if available <= 0 {
		for i, col := range t.columns {
			widths[i] = col.Width
		}
		return widths
	}

	visible := make([]bool, len(t.columns))
	for i := range visible {
		visible[i] = true
	}
	count := len(t.columns)

	remaining := func() (int, float64) {
		used, weight := 0, 0.0
		for i, col := range t.columns {
			if !visible[i] {
				continue
			}
			used += col.Width
			weight += col.Weight
		}
		if count > 1 {
			used += (count - 1) * columnSeparator
		}
		return available - used - rowPadding, weight
	}

	spare, weight := remaining()
	for spare < 0 && count > 1 {
		lowest := -1
		for i, col := range t.columns {
			if visible[i] && (lowest < 0 || col.Priority < t.columns[lowest].Priority) {
				lowest = i
			}
		}
		visible[lowest] = false
		count--
		spare, weight = remaining()
	}
	spare = max(spare, 0)

	for i, col := range t.columns {
		switch {
		case !visible[i]:
			widths[i] = 0
		case col.Weight > 0 && weight > 0:
			widths[i] = col.Width + int(float64(spare)*col.Weight/weight)
		default:
			widths[i] = col.Width
		}
	}
	return widths
}

func (t *Table) headers() []string {
	headers := make([]string, len(t.columns))
	for i, col := range t.columns {
		headers[i] = col.Title
	}
	return headers
}

func (t *Table) renderRow(cells []string, widths []int, style lipgloss.Style) string {
	parts := make([]string, 0, len(t.columns))

	for i, col := range t.columns {
		width := widths[i]
		if width == 0 {
			continue
		}
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		cell = fit(cell, width)

		pad := width - lipgloss.Width(cell)
		switch col.Align {
		case lipgloss.Right:
			cell = strings.Repeat(" ", pad) + cell
		case lipgloss.Center:
			left := pad / 2
			cell = strings.Repeat(" ", left) + cell + strings.Repeat(" ", pad-left)
		default:
			cell += strings.Repeat(" ", pad)
		}

		parts = append(parts, style.Render(cell))
	}

	return " " + strings.Join(parts, " │ ") + " "
}

// fit truncates s to width display cells, marking the cut with an ellipsis.
func fit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}

// Empty returns true if the table has no rows.
func (t *Table) Empty() bool {
	return len(t.rows) == 0
}
