package components

import (
	"fmt"
	"strings"
)

// labelWidth aligns field values in a form.
const labelWidth = 22

const formHelp = "Tab/Abajo:Siguiente  Shift+Tab/Arriba:Anterior  Enter/Ctrl+S:Guardar  Esc:Cancelar"

// FormField is a focusable, labelled component a Form can hold.
type FormField interface {
	Label() string
	Value() string
	Focus(bool)
	IsFocused() bool
	HandleKey(string)
	Render() string
}

var (
	_ FormField = (*Input)(nil)
	_ FormField = (*Select)(nil)
)

// Form stacks fields vertically and tracks submission. Fields are looked
// up by label.
type Form struct {
	title     string
	fields    []FormField
	focus     int
	submitted bool
	cancelled bool
	err       string
	styles    Styles
}

func NewForm(title string) *Form {
	return &Form{
		title:  title,
		styles: DefaultStyles(),
	}
}

// SetStyles restyles the form and every field added so far.
func (f *Form) SetStyles(s Styles) *Form {
	f.styles = s
	for _, field := range f.fields {
		restyle(field, s)
	}
	return f
}

func restyle(field FormField, s Styles) {
	if st, ok := field.(interface{ SetStyles(Styles) }); ok {
		st.SetStyles(s)
	}
}

// AddField appends a field in the form's style. The first field takes focus.
func (f *Form) AddField(field FormField) *Form {
	restyle(field, f.styles)
	f.fields = append(f.fields, field)
	if len(f.fields) == 1 {
		field.Focus(true)
	}
	return f
}

func (f *Form) Title() string {
	return f.title
}

// Field returns the field labelled label, or nil.
func (f *Form) Field(label string) FormField {
	for _, field := range f.fields {
		if field.Label() == label {
			return field
		}
	}
	return nil
}

// Value returns the trimmed value of the field labelled label.
func (f *Form) Value(label string) string {
	if field := f.Field(label); field != nil {
		return strings.TrimSpace(field.Value())
	}
	return ""
}

// Validate runs every field's validation, marking each failure, and
// reports whether all passed.
func (f *Form) Validate() bool {
	ok := true
	for _, field := range f.fields {
		if v, is := field.(interface{ Validate() bool }); is && !v.Validate() {
			ok = false
		}
	}
	return ok
}

// Reopen clears the submitted state after a rejected submission so the
// operator can correct the fields.
func (f *Form) Reopen(err string) {
	f.submitted = false
	f.err = err
}

// HandleKey moves focus, submits or cancels, and passes anything else to
// the focused field. Enter on the last field submits.
func (f *Form) HandleKey(key string) {
	switch key {
	case "tab", "down":
		f.move(1)
	case "shift+tab", "up":
		f.move(-1)
	case "ctrl+s":
		f.submitted = true
	case "esc":
		f.cancelled = true
	case "enter":
		if f.focus == len(f.fields)-1 {
			f.submitted = true
		} else {
			f.move(1)
		}
	default:
		if f.focus < len(f.fields) {
			f.fields[f.focus].HandleKey(key)
		}
	}
}

func (f *Form) move(delta int) {
	n := len(f.fields)
	if n == 0 {
		return
	}
	f.fields[f.focus].Focus(false)
	f.focus = ((f.focus+delta)%n + n) % n
	f.fields[f.focus].Focus(true)
}

func (f *Form) IsSubmitted() bool {
	return f.submitted
}

func (f *Form) IsCancelled() bool {
	return f.cancelled
}

func (f *Form) SetError(err string) {
	f.err = err
}

// Error returns the form-level error, empty when none.
func (f *Form) Error() string {
	return f.err
}

func (f *Form) Render() string {
	var b strings.Builder

	b.WriteString(f.styles.Title.Render(fmt.Sprintf("=== %s ===", f.title)))
	b.WriteString("\n\n")

	for _, field := range f.fields {
		b.WriteString(field.Render())
		b.WriteString("\n")
	}

	if f.err != "" {
		b.WriteString("\n")
		b.WriteString(f.styles.Error.Render("Error: " + f.err))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(f.styles.Help.Render(formHelp))
	return b.String()
}
