package stages

import (
	"errors"
	"fmt"

	ferrors "github.com/craigdanielk/web-builder/internal/foundation/errors"
)

// ErrorKind classifies the outcome of a stage.
type ErrorKind string

const (
	ErrorFatal    ErrorKind = "fatal"    // Run must abort.
	ErrorWarning  ErrorKind = "warning"  // Non-fatal; record and continue.
	ErrorCanceled ErrorKind = "canceled" // Context cancellation.
)

// Error is a structured stage failure carrying kind and underlying cause.
type Error struct {
	Kind  ErrorKind
	Stage Name
	Err   error
}

func (e *Error) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Transient reports whether the underlying error condition is likely transient.
func (e *Error) Transient() bool {
	if e == nil || e.Kind == ErrorCanceled {
		return false
	}
	if ce, ok := ferrors.AsClassified(e.Err); ok {
		return ce.IsTransient()
	}
	return false
}

// Result captures the high-level outcome of a stage.
type Result string

const (
	ResultSuccess  Result = "success"
	ResultWarning  Result = "warning"
	ResultFatal    Result = "fatal"
	ResultCanceled Result = "canceled"
	ResultSkipped  Result = "skipped"
)

// NewFatalError creates a new fatal stage error.
func NewFatalError(stage Name, err error) *Error {
	return &Error{Kind: ErrorFatal, Stage: stage, Err: err}
}

func NewWarnError(stage Name, err error) *Error {
	return &Error{Kind: ErrorWarning, Stage: stage, Err: err}
}

func NewCanceledError(stage Name, err error) *Error {
	return &Error{Kind: ErrorCanceled, Stage: stage, Err: err}
}

// AsError extracts a stage error from err's chain.
func AsError(err error) (*Error, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
