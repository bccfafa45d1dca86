// Package errors provides structured error types for the luauhost library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type carries a human-readable detail and a cause chain.
//
// Use convenience constructors for common patterns:
//
//	err := errors.NotFound(errors.PhaseRuntime, "export", "luau_alloc")
//	err := errors.OutOfBounds(offset, length)
//
// All errors implement the standard error interface and support errors.Is/As.
// Two *Error values match under errors.Is when Phase and Kind agree, which is
// how call sites classify failures without string matching.
package errors
