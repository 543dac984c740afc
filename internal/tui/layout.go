package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Panel draws a rounded box of the given outer width. A non-empty title
// is set into the top border.
func (t *Theme) Panel(title, content string, width int) string {
	border := lipgloss.RoundedBorder()
	body := lipgloss.NewStyle().
		Border(border).
		BorderTop(title == "").
		BorderForeground(t.palette.Secondary).
		Width(width-2).
		Padding(0, 1).
		Render(content)
	if title == "" {
		return body
	}

	edge := lipgloss.NewStyle().Foreground(t.palette.Secondary)
	label := t.Accent.Bold(true).Render(" " + title + " ")
	rest := max(width-lipgloss.Width(label)-3, 0)
	return edge.Render(border.TopLeft+border.Top) + label +
		edge.Render(strings.Repeat(border.Top, rest)+border.TopRight) + "\n" + body
}

// Gauge draws how much of a pool is in use followed by the count. It turns
// amber past 60% and red past 90%.
func (t *Theme) Gauge(used, total, width int) string {
	cells := max(width-2, 4)
	filled := 0
	if total > 0 {
		filled = min(max(used, 0)*cells/total, cells)
	}
	bar := "[" + strings.Repeat("█", filled) + strings.Repeat("░", cells-filled) + "]"

	style := t.Success
	switch {
	case total > 0 && used*10 > total*9:
		style = t.Error
	case total > 0 && used*10 > total*6:
		style = t.Warning
	}
	return style.Render(bar) + " " + t.Muted.Render(fmt.Sprintf("%d/%d", used, total))
}

// SideBySide lays two blocks out in columns when both fit in totalWidth
// and stacks them otherwise.
func SideBySide(left, right string, totalWidth, gap int) string {
	lw := lipgloss.Width(left)
	if lw+lipgloss.Width(right)+gap > totalWidth {
		return left + "\n\n" + right
	}

	ls := strings.Split(left, "\n")
	rs := strings.Split(right, "\n")
	col := max(lw+gap, totalWidth/2)

	rows := make([]string, max(len(ls), len(rs)))
	for i := range rows {
		var l, r string
		if i < len(ls) {
			l = ls[i]
		}
		if i < len(rs) {
			r = rs[i]
		}
		rows[i] = PadRight(l, col) + r
	}
	return strings.Join(rows, "\n")
}

// Truncate cuts s to maxWidth cells, ending in an ellipsis when cut.
func Truncate(s string, maxWidth int) string {
	switch {
	case maxWidth <= 0:
		return ""
	case lipgloss.Width(s) <= maxWidth:
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r)) >= maxWidth {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}

// PadRight fills s with spaces up to width cells.
func PadRight(s string, width int) string {
	if gap := width - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

// ContentWidth clamps the terminal width to [minWidth, maxWidth]; a zero
// maxWidth leaves it unbounded.
func ContentWidth(termWidth, minWidth, maxWidth int) int {
	w := max(termWidth, minWidth)
	if maxWidth > 0 {
		w = min(w, maxWidth)
	}
	return w
}

// ContentHeight is what remains of the terminal after chromeLines of
// header, footer and alert bar, never less than five rows.
func ContentHeight(termHeight, chromeLines int) int {
	return max(termHeight-chromeLines, 5)
}
