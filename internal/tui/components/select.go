package components

import "strings"

// Select picks one of a fixed list of options with the arrow keys.
type Select struct {
	label    string
	options  []string
	selected int
	focused  bool
	styles   Styles
}

func NewSelect(label string, options []string) *Select {
	return &Select{
		label:   label,
		options: options,
		styles:  DefaultStyles(),
	}
}

func (s *Select) SetStyles(st Styles) {
	s.styles = st
}

// SetSelected moves the selection; out-of-range indexes are ignored.
func (s *Select) SetSelected(idx int) *Select {
	if idx >= 0 && idx < len(s.options) {
		s.selected = idx
	}
	return s
}

// SetValue selects the option equal to v, if present.
func (s *Select) SetValue(v string) *Select {
	for i, opt := range s.options {
		if opt == v {
			s.selected = i
		}
	}
	return s
}

func (s *Select) Focus(focused bool) {
	s.focused = focused
}

func (s *Select) IsFocused() bool {
	return s.focused
}

func (s *Select) Label() string {
	return s.label
}

// Value returns the selected option, empty when there are none.
func (s *Select) Value() string {
	if s.selected < len(s.options) {
		return s.options[s.selected]
	}
	return ""
}

func (s *Select) SelectedIndex() int {
	return s.selected
}

// HandleKey moves the selection. Left and right stop at the ends; space
// cycles.
func (s *Select) HandleKey(key string) {
	if !s.focused || len(s.options) == 0 {
		return
	}

	switch key {
	case "left", "h":
		s.selected = max(s.selected-1, 0)
	case "right", "l":
		s.selected = min(s.selected+1, len(s.options)-1)
	case "space", " ":
		s.selected = (s.selected + 1) % len(s.options)
	}
}

func (s *Select) Render() string {
	sel := s.styles.Value.Bold(true)

	var b strings.Builder
	b.WriteString(s.styles.Label.Width(labelWidth).Render(s.label + ":"))
	for i, opt := range s.options {
		b.WriteString(" ")
		switch {
		case i != s.selected:
			b.WriteString(s.styles.Label.Render(" " + opt + " "))
		case s.focused:
			b.WriteString(sel.Render("[" + opt + "]"))
		default:
			b.WriteString(sel.Render("(" + opt + ")"))
		}
	}
	return b.String()
}
