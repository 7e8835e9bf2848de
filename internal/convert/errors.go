package convert

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a backend failure. The scheduler treats every kind as
// a per-item failure; none abort the batch.
type ErrorKind string

const (
	UnsupportedInput ErrorKind = "unsupported_input"
	CorruptSource    ErrorKind = "corrupt_source"
	IOFailure        ErrorKind = "io_failure"
	CapabilityError  ErrorKind = "capability_error"
)

// Error is the typed conversion error returned by backends.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// NewUnsupportedInput reports a source incompatible with the requested mode.
func NewUnsupportedInput(msg string, err error) *Error {
	return &Error{Kind: UnsupportedInput, Msg: msg, Err: err}
}

// NewCorruptSource reports an unreadable or malformed source file.
func NewCorruptSource(msg string, err error) *Error {
	return &Error{Kind: CorruptSource, Msg: msg, Err: err}
}

// NewIOFailure reports a filesystem read/write problem.
func NewIOFailure(msg string, err error) *Error {
	return &Error{Kind: IOFailure, Msg: msg, Err: err}
}

// NewCapabilityError reports a decode/encode library failure.
func NewCapabilityError(msg string, err error) *Error {
	return &Error{Kind: CapabilityError, Msg: msg, Err: err}
}

// KindOf extracts the ErrorKind from err, unwrapping as needed. Errors that
// are not *Error classify as CapabilityError.
func KindOf(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return CapabilityError
}
