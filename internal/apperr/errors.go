// Package apperr defines the coded error type shared by the collection layer.
package apperr

import "errors"

// Code classifies a failure so callers can decide how to surface it.
type Code string

const (
	// CodeNotFound marks a single-item lookup miss. Repositories return a nil
	// result instead; the code exists for boundaries that must report it.
	CodeNotFound Code = "NOT_FOUND"

	// CodeReadFailure marks an unreachable store or malformed data.
	CodeReadFailure Code = "READ_FAILURE"

	// CodeWriteFailure marks a mutation rejected by the store.
	CodeWriteFailure Code = "WRITE_FAILURE"

	// CodeConfiguration marks invalid settings such as a non-positive page size.
	CodeConfiguration Code = "CONFIGURATION"

	// CodeInvalidInput marks a request the caller can fix, such as an empty name.
	CodeInvalidInput Code = "INVALID_INPUT"
)

// Error is a failure tagged with a Code.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates an error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Sentinels for errors.Is checks. They match any Error with the same code.
var (
	ErrNotFound      = New(CodeNotFound, "not found")
	ErrReadFailure   = New(CodeReadFailure, "read failed")
	ErrWriteFailure  = New(CodeWriteFailure, "write failed")
	ErrConfiguration = New(CodeConfiguration, "invalid configuration")
	ErrInvalidInput  = New(CodeInvalidInput, "invalid input")
)

// CodeOf returns the code of the first Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
