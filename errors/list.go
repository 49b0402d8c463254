package errors

import (
	"go.uber.org/multierr"
)

// List accumulates diagnostics for one function body.
// It is owned by a single generation and is not safe for concurrent use.
type List struct {
	items []*Error
}

// Add appends a diagnostic. Nil is ignored.
func (l *List) Add(err *Error) {
	if err == nil {
		return
	}
	l.items = append(l.items, err)
}

// Len returns the number of diagnostics.
func (l *List) Len() int {
	return len(l.items)
}

// Items returns the diagnostics in the order they were reported.
func (l *List) Items() []*Error {
	return l.items
}

// HasKind reports whether any diagnostic has the given kind.
func (l *List) HasKind(kind Kind) bool {
	for _, e := range l.items {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// Err combines the diagnostics into one error, or nil when empty.
func (l *List) Err() error {
	var err error
	for _, e := range l.items {
		err = multierr.Append(err, e)
	}
	return err
}
