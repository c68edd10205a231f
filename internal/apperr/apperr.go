// Package apperr defines the coded error taxonomy shared by every layer of the
// service. Handlers map codes to HTTP statuses; callers use the code to decide
// whether an operation is safe to retry.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error into one of the kinds the service surfaces.
type Code string

const (
	// CodeValidation marks malformed or out-of-range input. Safe to retry
	// after the client corrects the request.
	CodeValidation Code = "validation"
	// CodeInvalidState marks an operation that is not legal for the current
	// proposal status. Never retry without re-fetching state.
	CodeInvalidState Code = "invalid_state"
	// CodeNotFound marks a lookup of an unknown resource.
	CodeNotFound Code = "not_found"
	// CodeConflict marks transient contention (a lost compare-and-swap).
	// Safe to retry.
	CodeConflict Code = "conflict"
	// CodeStorage marks a persistence or audit-log write failure. The
	// operation's effects are not visible; safe to retry.
	CodeStorage Code = "storage"
	// CodeUnauthorized marks a request without a valid actor identity.
	CodeUnauthorized Code = "unauthorized"
	// CodeInternal marks everything else.
	CodeInternal Code = "internal"
)

// Error is a coded error with an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// NotFound creates a CodeNotFound error for a resource lookup.
func NotFound(resource string, id any) *Error {
	return Newf(CodeNotFound, "%s %v not found", resource, id)
}

// InvalidInput creates a CodeValidation error for a single field.
func InvalidInput(field, message string) *Error {
	return Newf(CodeValidation, "%s: %s", field, message)
}

// InvalidState creates a CodeInvalidState error.
func InvalidState(message string) *Error {
	return New(CodeInvalidState, message)
}

// Conflict creates a CodeConflict error.
func Conflict(message string) *Error {
	return New(CodeConflict, message)
}

// CodeOf extracts the code from an error chain, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsRetryable reports whether the caller may retry the operation as-is.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CodeConflict, CodeStorage:
		return true
	}
	return false
}

// HTTPStatus maps an error to the HTTP status code handlers respond with.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidState, CodeConflict:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
