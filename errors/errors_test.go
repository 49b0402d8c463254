package errors

import (
	"errors"
	"strings"
	"testing"

	"go.uber.org/multierr"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:     PhaseResolve,
				Kind:      KindUnknownTarget,
				Criterion: "labeled break",
				Label:     "outer",
				Pos:       Pos{Line: 4, Column: 9},
				Detail:    "no match",
			},
			contains: []string{"[resolve]", "unknown_target", "4:9", "labeled break", "outer", "no match"},
		},
		{
			name: "label only",
			err: &Error{
				Phase: PhaseResolve,
				Kind:  KindDuplicateLabel,
				Label: "L",
			},
			contains: []string{"[resolve]", "duplicate_label", "label L"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseAssemble,
				Kind:  KindUnresolvedOperand,
			},
			contains: []string{"[assemble]", "unresolved_operand"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseLoad,
				Kind:   KindInvalidInput,
				Detail: "bad fixture",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[load]", "invalid_input", "bad fixture", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(PhaseLoad, KindInvalidInput, cause, "decode")

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := UnknownTarget("break", "")

	if !errors.Is(err, &Error{Phase: PhaseResolve, Kind: KindUnknownTarget}) {
		t.Error("errors.Is should match same phase and kind")
	}
	if errors.Is(err, &Error{Phase: PhaseResolve, Kind: KindAmbiguousGoto}) {
		t.Error("errors.Is should not match different kind")
	}

	var target *Error
	if !errors.As(err, &target) {
		t.Fatal("errors.As failed")
	}
	if target.Criterion != "break" {
		t.Errorf("criterion = %q, want break", target.Criterion)
	}
}

func TestError_At(t *testing.T) {
	base := DuplicateLabel("L")
	moved := base.At(Pos{Line: 3})

	if base.Pos.IsValid() {
		t.Error("At must not modify the receiver")
	}
	if moved.Pos.Line != 3 || moved.Label != "L" {
		t.Errorf("unexpected copy: %+v", moved)
	}
}

func TestBuilder(t *testing.T) {
	err := New(PhaseResolve, KindAmbiguousGoto).
		Label("retry").
		Criterion("goto").
		Pos(Pos{Line: 7}).
		Value(2).
		Detail("%d candidates", 2).
		Build()

	if err.Kind != KindAmbiguousGoto || err.Label != "retry" || err.Detail != "2 candidates" {
		t.Errorf("unexpected error: %+v", err)
	}
	if err.Value != 2 {
		t.Errorf("value = %v, want 2", err.Value)
	}
}

func TestIsProtocol(t *testing.T) {
	if _, ok := IsProtocol(Protocol("stack empty")); !ok {
		t.Error("Protocol error not recognized")
	}
	if _, ok := IsProtocol(UnknownTarget("break", "")); ok {
		t.Error("resolution error recognized as protocol violation")
	}
	if _, ok := IsProtocol("boom"); ok {
		t.Error("string panic recognized as protocol violation")
	}
}

func TestList(t *testing.T) {
	var l List
	if l.Err() != nil {
		t.Fatal("empty list should have nil Err")
	}

	l.Add(nil)
	l.Add(UnknownTarget("break", ""))
	l.Add(AmbiguousGoto("L", 2))

	if l.Len() != 2 {
		t.Fatalf("len = %d, want 2", l.Len())
	}
	if !l.HasKind(KindAmbiguousGoto) {
		t.Error("HasKind(ambiguous_goto) = false")
	}
	if l.HasKind(KindProtocol) {
		t.Error("HasKind(protocol) = true")
	}
	if got := len(multierr.Errors(l.Err())); got != 2 {
		t.Errorf("combined error holds %d errors, want 2", got)
	}
}
