package ledger

import (
	"errors"
	"fmt"
	"math"
)

// Sentinel errors matched with errors.Is against any *Error.
var (
	// ErrPrecondition means the operation was refused before any mutation.
	ErrPrecondition = errors.New("precondition violated")
	// ErrValidation means the input was malformed or incomplete.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound means a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means the input collides with an existing record.
	ErrConflict = errors.New("conflict")
)

// Kind classifies a ledger error.
type Kind int

const (
	KindPrecondition Kind = iota + 1
	KindValidation
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindPrecondition:
		return "precondition"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Error describes a refused ledger operation.
type Error struct {
	Kind   Kind
	Op     string
	Entity string
	ID     string
	Msg    string
}

func (e *Error) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s %s: %s", e.Op, e.Entity, e.ID, e.Msg)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Entity, e.Msg)
}

// Is reports whether target is the sentinel for this error's kind.
// A missing record is also a precondition failure, and a duplicate is
// also a validation failure.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrPrecondition:
		return e.Kind == KindPrecondition || e.Kind == KindNotFound
	case ErrValidation:
		return e.Kind == KindValidation || e.Kind == KindConflict
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrConflict:
		return e.Kind == KindConflict
	}
	return false
}

func preconditionf(op, entity, id, format string, args ...any) error {
	return &Error{Kind: KindPrecondition, Op: op, Entity: entity, ID: id, Msg: fmt.Sprintf(format, args...)}
}

func notFound(op, entity, id string) error {
	return &Error{Kind: KindNotFound, Op: op, Entity: entity, ID: id, Msg: "does not exist"}
}

func conflictf(op, entity, id, format string, args ...any) error {
	return &Error{Kind: KindConflict, Op: op, Entity: entity, ID: id, Msg: fmt.Sprintf(format, args...)}
}

// validation collects field problems for a single entity and reports them together.
type validation struct {
	op     string
	entity string
	id     string
	errs   []error
}

func newValidation(op, entity, id string) *validation {
	return &validation{op: op, entity: entity, id: id}
}

func (v *validation) addf(format string, args ...any) {
	v.errs = append(v.errs, &Error{
		Kind:   KindValidation,
		Op:     v.op,
		Entity: v.entity,
		ID:     v.id,
		Msg:    fmt.Sprintf(format, args...),
	})
}

func (v *validation) check(ok bool, format string, args ...any) {
	if !ok {
		v.addf(format, args...)
	}
}

func (v *validation) err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return errors.Join(v.errs...)
}

// Messages returns the human-readable message of every ledger error in err.
func Messages(err error) []string {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, Messages(e)...)
		}
		return out
	}
	var le *Error
	if errors.As(err, &le) {
		return []string{le.Msg}
	}
	return []string{err.Error()}
}

// positive and nonNegative also reject NaN and the infinities, which would
// pass a bare comparison.
func positive(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f > 0
}

func nonNegative(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f >= 0
}
