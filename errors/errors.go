package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in generation the error occurred
type Phase string

const (
	PhaseResolve  Phase = "resolve"  // control-flow target resolution
	PhaseGenerate Phase = "generate" // statement generation
	PhaseAllocate Phase = "allocate" // register and slot assignment
	PhaseAssemble Phase = "assemble" // lowering to bytes
	PhaseLoad     Phase = "load"     // fixture and config loading
)

// Kind categorizes the error
type Kind string

const (
	KindUnknownTarget     Kind = "unknown_target"
	KindDuplicateLabel    Kind = "duplicate_label"
	KindAmbiguousGoto     Kind = "ambiguous_goto"
	KindUnexpectedReturn  Kind = "unexpected_return"
	KindProtocol          Kind = "protocol"
	KindUnresolvedOperand Kind = "unresolved_operand"
	KindNotFound          Kind = "not_found"
	KindInvalidInput      Kind = "invalid_input"
)

// Pos is a source position attached to a diagnostic. The zero value means unknown.
type Pos struct {
	Line   int
	Column int
}

// IsValid reports whether the position is known.
func (p Pos) IsValid() bool {
	return p.Line > 0
}

func (p Pos) String() string {
	if p.Column > 0 {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%d", p.Line)
}

// Error is the structured error type used throughout the generator
type Error struct {
	Value     any
	Cause     error
	Phase     Phase
	Kind      Kind
	Label     string
	Criterion string
	Detail    string
	Pos       Pos
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Pos.IsValid() {
		b.WriteString(" at ")
		b.WriteString(e.Pos.String())
	}

	if e.Criterion != "" || e.Label != "" {
		b.WriteString(": ")
		switch {
		case e.Criterion != "" && e.Label != "":
			b.WriteString(e.Criterion)
			b.WriteString(" ")
			b.WriteString(e.Label)
		case e.Criterion != "":
			b.WriteString(e.Criterion)
		default:
			b.WriteString("label ")
			b.WriteString(e.Label)
		}
	}

	if e.Detail != "" {
		if e.Criterion != "" || e.Label != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// At returns a copy of the error positioned at p.
func (e *Error) At(p Pos) *Error {
	c := *e
	c.Pos = p
	return &c
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Label sets the label text the error refers to
func (b *Builder) Label(label string) *Builder {
	b.err.Label = label
	return b
}

// Criterion sets the name of the search criterion that failed
func (b *Builder) Criterion(name string) *Builder {
	b.err.Criterion = name
	return b
}

// Pos sets the source position
func (b *Builder) Pos(p Pos) *Builder {
	b.err.Pos = p
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// UnknownTarget creates an error for a criterion that matched no active context
func UnknownTarget(criterion, label string) *Error {
	return &Error{
		Phase:     PhaseResolve,
		Kind:      KindUnknownTarget,
		Criterion: criterion,
		Label:     label,
		Detail:    "no active control-flow context matches",
	}
}

// DuplicateLabel creates an error for a label already visible at its declaration
func DuplicateLabel(label string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindDuplicateLabel,
		Label:  label,
		Detail: "label is already defined in an enclosing statement",
	}
}

// AmbiguousGoto creates an error for a goto that sees more than one matching label
func AmbiguousGoto(label string, count int) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindAmbiguousGoto,
		Label:  label,
		Detail: fmt.Sprintf("%d labels are visible", count),
		Value:  count,
	}
}

// UnexpectedReturn creates an error for a return with no enclosing function body
func UnexpectedReturn() *Error {
	return &Error{
		Phase:  PhaseGenerate,
		Kind:   KindUnexpectedReturn,
		Detail: "return outside of a function body",
	}
}

// Protocol creates a generator-internal protocol violation.
// Callers panic with it; it never describes malformed input.
func Protocol(format string, args ...any) *Error {
	return &Error{
		Phase:  PhaseGenerate,
		Kind:   KindProtocol,
		Detail: fmt.Sprintf(format, args...),
	}
}

// UnresolvedOperand creates an error for a deferred operand that was never assigned
func UnresolvedOperand(what string) *Error {
	return &Error{
		Phase:  PhaseAssemble,
		Kind:   KindUnresolvedOperand,
		Detail: fmt.Sprintf("%s has no assigned register", what),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Load creates a fixture or config loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidInput,
		Detail: detail,
		Cause:  cause,
	}
}

// IsProtocol reports whether a recovered panic value is a protocol violation.
func IsProtocol(v any) (*Error, bool) {
	e, ok := v.(*Error)
	if !ok || e.Kind != KindProtocol {
		return nil, false
	}
	return e, true
}
