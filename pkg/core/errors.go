package core

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers and the HTTP layer. Synchronous
// failures (validation, not-found, rate-limited) are returned from the call
// that detected them; anything after a job has been accepted becomes data
// in the job's reason field instead.
type Code string

const (
	CodeValidationFailed Code = "validation_failed"
	CodeNotFound         Code = "not_found"
	CodeRateLimited      Code = "rate_limited"
	CodeUpstreamFailure  Code = "upstream_failure"
	CodeInternal         Code = "internal_error"
)

// ErrJobFinalized is reported by stores when an update targets a job that
// is already terminal or does not exist.
var ErrJobFinalized = errors.New("aidoc: job already finalized or missing")

// Error is a coded error carrying a stable classification alongside the
// human-readable message.
type Error struct {
	Code Code
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError creates a coded error.
func NewError(code Code, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// Errorf creates a coded error with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// WrapError wraps err with a code and message, preserving the chain for
// errors.Is/As.
func WrapError(code Code, err error, msg string) *Error {
	return &Error{Code: code, Msg: msg, Err: err}
}

// CodeOf extracts the classification from err. Unclassified errors are
// internal.
func CodeOf(err error) Code {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
