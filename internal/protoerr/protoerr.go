// Package protoerr defines protobase's canonical error kinds: ValidationError,
// CorruptionError, ConcurrencyError, and IOError. Every error the core
// returns across its public surface is classified into one of these four so
// callers can branch on Kind without string matching.
package protoerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error per spec §7.
type Kind int

const (
	// Validation covers precondition violations: unknown database,
	// double-create, transaction state not running, invalid pointer text in
	// the root slot, missing field during strict load.
	Validation Kind = iota
	// Corruption covers invariant violations detectable at runtime: a
	// nested atom saved without receiving a pointer, a literal save that
	// produced no pointer, a JSON envelope missing required keys.
	Corruption
	// Concurrency is reserved for the set/counted-set op-log rebase path:
	// an optimistic rebase failed because the log cannot replay without
	// contradiction.
	Concurrency
	// IO wraps errors bubbled up from the backing file.
	IO
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "ValidationError"
	case Corruption:
		return "CorruptionError"
	case Concurrency:
		return "ConcurrencyError"
	case IO:
		return "IOError"
	default:
		return "UnknownError"
	}
}

// Error is the concrete error type returned across the core's public
// surface.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is a *Error with the same Kind, so
// errors.Is(err, protoerr.ErrFieldMissing) matches any ValidationError;
// callers branch on a Kind directly via KindOf or errors.As.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ValidationErrorf builds a ValidationError.
func ValidationErrorf(format string, args ...any) *Error {
	return newf(Validation, format, args...)
}

// CorruptionErrorf builds a CorruptionError.
func CorruptionErrorf(format string, args ...any) *Error {
	return newf(Corruption, format, args...)
}

// ConcurrencyErrorf builds a ConcurrencyError.
func ConcurrencyErrorf(format string, args ...any) *Error {
	return newf(Concurrency, format, args...)
}

// IOErrorf builds an IOError wrapping cause.
func IOErrorf(cause error, format string, args ...any) *Error {
	e := newf(IO, format, args...)
	e.Cause = cause
	return e
}

// ErrFieldMissing is returned by an atom's LoadFields when a field it
// requires is absent from the loaded record. Field names an atom does not
// use are ignored, not reported.
var ErrFieldMissing = ValidationErrorf("field missing")

// KindOf returns the Kind of err if it is (or wraps) a *Error, and false
// otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
