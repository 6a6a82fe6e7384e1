// Package fault defines the error taxonomy shared by the reasoning core.
//
// Five kinds cover everything the core can fail with: resource ceilings
// (Capacity), dangling ids (Reference), malformed input (Validation),
// sandbox failures (Execution), and disk trouble (Persistence). Callers
// branch on kind via IsKind rather than matching message text.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies an error for programmatic handling.
type Kind string

const (
	// KindCapacity means a hard resource ceiling was reached
	// (node/edge/cell/execution/thought limits).
	KindCapacity Kind = "capacity_exceeded"

	// KindReference means a referenced entity does not exist
	// (node, edge, session, notebook, cell).
	KindReference Kind = "reference"

	// KindValidation means the input itself is malformed
	// (weight out of range, unknown enum value, bad position).
	KindValidation Kind = "validation"

	// KindExecution means sandboxed code failed or timed out.
	KindExecution Kind = "execution"

	// KindPersistence means a disk read/write or parse failed.
	// These are logged and swallowed at the point of occurrence;
	// in-memory state stays authoritative.
	KindPersistence Kind = "persistence"
)

// Error is the concrete error type for all core faults.
type Error struct {
	Kind    Kind
	Message string
	Err     error // optional wrapped cause
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Capacityf builds a capacity-exceeded error.
func Capacityf(format string, args ...any) *Error {
	return &Error{Kind: KindCapacity, Message: fmt.Sprintf(format, args...)}
}

// Referencef builds a missing-reference error.
func Referencef(format string, args ...any) *Error {
	return &Error{Kind: KindReference, Message: fmt.Sprintf(format, args...)}
}

// Validationf builds a malformed-input error.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Executionf builds a sandbox-failure error.
func Executionf(format string, args ...any) *Error {
	return &Error{Kind: KindExecution, Message: fmt.Sprintf(format, args...)}
}

// Persistencef builds a persistence error.
func Persistencef(format string, args ...any) *Error {
	return &Error{Kind: KindPersistence, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a fault built by one of the constructors.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

// IsKind reports whether err (or anything it wraps) is a fault of the
// given kind.
func IsKind(err error, kind Kind) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind == kind
	}
	return false
}

// KindOf returns the fault kind of err, or "" when err carries none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
