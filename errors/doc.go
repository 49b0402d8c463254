// Package errors provides structured error types for the flowgen generator.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the label text, the failed search criterion, a source
// position and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseResolve, errors.KindUnknownTarget).
//		Criterion("labeled break").
//		Label("outer").
//		Pos(errors.Pos{Line: 12, Column: 5}).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.UnknownTarget("continue", "")
//	err := errors.AmbiguousGoto("retry", 2)
//
// Protocol violations (KindProtocol) describe bugs in the generator itself and are
// raised with panic; everything else is returned or collected in a List.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
