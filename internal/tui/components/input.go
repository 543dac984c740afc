package components

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Accept filters the runes an Input takes from the keyboard.
type Accept func(r rune) bool

// Numeric accepts quantities and amounts as operators type them:
// digits, separators, a sign and the peso symbol.
func Numeric(r rune) bool {
	return unicode.IsDigit(r) || strings.ContainsRune(".,-$", r)
}

// Input is a single-line text field. The value is edited as runes so
// accented characters count as one position.
type Input struct {
	label       string
	value       []rune
	placeholder string
	width       int
	maxLength   int
	required    bool
	accept      Accept
	focused     bool
	cursor      int
	err         string
	styles      Styles
}

// NewInput creates an empty field 20 columns wide accepting up to 100 runes.
func NewInput(label string) *Input {
	return &Input{
		label:     label,
		width:     20,
		maxLength: 100,
		styles:    DefaultStyles(),
	}
}

// SetValue replaces the value and moves the cursor to its end.
func (i *Input) SetValue(v string) *Input {
	i.value = []rune(v)
	if len(i.value) > i.maxLength {
		i.value = i.value[:i.maxLength]
	}
	i.cursor = len(i.value)
	return i
}

func (i *Input) SetStyles(s Styles) {
	i.styles = s
}

func (i *Input) SetPlaceholder(p string) *Input {
	i.placeholder = p
	return i
}

func (i *Input) SetWidth(w int) *Input {
	i.width = w
	return i
}

func (i *Input) SetMaxLength(m int) *Input {
	i.maxLength = m
	return i
}

func (i *Input) SetRequired(r bool) *Input {
	i.required = r
	return i
}

// SetAccept restricts typed runes. Nil accepts everything printable.
func (i *Input) SetAccept(a Accept) *Input {
	i.accept = a
	return i
}

func (i *Input) SetError(e string) *Input {
	i.err = e
	return i
}

func (i *Input) Focus(focused bool) {
	i.focused = focused
	i.cursor = min(i.cursor, len(i.value))
}

func (i *Input) IsFocused() bool {
	return i.focused
}

func (i *Input) Label() string {
	return i.label
}

func (i *Input) Value() string {
	return string(i.value)
}

// HandleKey edits the value for a bubbletea key name. Ignored unless focused.
func (i *Input) HandleKey(key string) {
	if !i.focused {
		return
	}

	switch key {
	case "backspace":
		if i.cursor > 0 {
			i.value = append(i.value[:i.cursor-1], i.value[i.cursor:]...)
			i.cursor--
		}
	case "delete":
		if i.cursor < len(i.value) {
			i.value = append(i.value[:i.cursor], i.value[i.cursor+1:]...)
		}
	case "left":
		i.cursor = max(i.cursor-1, 0)
	case "right":
		i.cursor = min(i.cursor+1, len(i.value))
	case "home", "ctrl+a":
		i.cursor = 0
	case "end", "ctrl+e":
		i.cursor = len(i.value)
	case "ctrl+u":
		i.value = i.value[i.cursor:]
		i.cursor = 0
	case "space":
		i.insert(' ')
	default:
		if utf8.RuneCountInString(key) == 1 {
			r, _ := utf8.DecodeRuneInString(key)
			i.insert(r)
		}
	}
}

func (i *Input) insert(r rune) {
	if len(i.value) >= i.maxLength || !unicode.IsPrint(r) {
		return
	}
	if i.accept != nil && !i.accept(r) {
		return
	}
	i.value = append(i.value[:i.cursor], append([]rune{r}, i.value[i.cursor:]...)...)
	i.cursor++
}

// Validate marks a blank required field with "Requerido" and clears the
// mark otherwise.
func (i *Input) Validate() bool {
	if i.required && strings.TrimSpace(string(i.value)) == "" {
		i.err = "Requerido"
		return false
	}
	i.err = ""
	return true
}

func (i *Input) Render() string {
	label := i.label
	if i.required {
		label += "*"
	}

	var display string
	shown := len(i.value)
	switch {
	case i.focused:
		display = i.styles.Focus.Render(string(i.value[:i.cursor]) + "_" + string(i.value[i.cursor:]))
		shown++
	case len(i.value) == 0 && i.placeholder != "":
		display = i.styles.Muted.Render(i.placeholder)
		shown = utf8.RuneCountInString(i.placeholder)
	default:
		display = i.styles.Value.Render(string(i.value))
	}
	if shown < i.width {
		display += strings.Repeat(" ", i.width-shown)
	}

	out := i.styles.Label.Width(labelWidth).Render(label+":") + " " + display
	if i.err != "" {
		out += " " + i.styles.Error.Render(i.err)
	}
	return out
}
