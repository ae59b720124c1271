// Package apperr defines the structured error taxonomy shared by the journal
// storage layer, the recording coordinator and the CLI surface.
//
// Every failure that crosses a package boundary is an *Error carrying a Kind,
// the operation that failed, a human-readable message and an optional cause.
// Callers branch on Kind via KindOf or the IsXxx helpers; errors.Is and
// errors.As see through to the cause.
package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind categorizes a failure.
type Kind string

const (
	// KindValidation marks malformed input rejected before any I/O.
	KindValidation Kind = "validation"

	// KindConflict marks unique or foreign key constraint failures that
	// could not be resolved transparently.
	KindConflict Kind = "conflict"

	// KindNotFound marks reads or deletes of a missing resource.
	KindNotFound Kind = "not_found"

	// KindIO marks disk, permission or database engine failures.
	KindIO Kind = "io"

	// KindState marks calls made in the wrong lifecycle state
	// (start while recording, stop while idle, use after close).
	KindState Kind = "state"
)

// Error is the structured error returned across package boundaries.
type Error struct {
	// Kind identifies the error category.
	Kind Kind

	// Op names the failed operation, e.g. "write blob" or "create entry".
	Op string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause (optional).
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// MarshalJSON renders the error as {kind, op, message, cause}.
func (e *Error) MarshalJSON() ([]byte, error) {
	payload := struct {
		Kind    Kind   `json:"kind"`
		Op      string `json:"op,omitempty"`
		Message string `json:"message"`
		Cause   string `json:"cause,omitempty"`
	}{
		Kind:    e.Kind,
		Op:      e.Op,
		Message: e.Message,
	}
	if e.Err != nil {
		payload.Cause = e.Err.Error()
	}
	if payload.Message == "" {
		payload.Message = payload.Cause
	}
	return json.Marshal(payload)
}

// New creates an Error without a cause.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap creates an Error around an existing cause.
// Returns nil if err is nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Wrapf creates an Error around an existing cause with a formatted message.
func Wrapf(kind Kind, op string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...), Err: err}
}

// Validation is shorthand for a KindValidation error.
func Validation(op, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of the outermost *Error in err's chain,
// or the empty Kind if there is none.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return Is(err, KindValidation) }

// IsConflict reports whether err is a constraint conflict.
func IsConflict(err error) bool { return Is(err, KindConflict) }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return Is(err, KindNotFound) }

// IsIO reports whether err is an I/O or substrate failure.
func IsIO(err error) bool { return Is(err, KindIO) }

// IsState reports whether err is a lifecycle state error.
func IsState(err error) bool { return Is(err, KindState) }
