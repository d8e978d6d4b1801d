// Package apperr defines the stable error taxonomy shared by the REST
// handlers and the websocket hub.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable error codes. Clients match on these, not on messages.
const (
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeConflict        = "CONFLICT"
	CodeInternal        = "INTERNAL"
)

// Error is a code-bearing error. Validation and authorization failures are
// resolved locally and returned synchronously with one of these.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// WithCause attaches an underlying cause and returns the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

func Unauthorized(msg string) *Error    { return &Error{Code: CodeUnauthorized, Message: msg} }
func Forbidden(msg string) *Error       { return &Error{Code: CodeForbidden, Message: msg} }
func NotFound(msg string) *Error        { return &Error{Code: CodeNotFound, Message: msg} }
func InvalidArgument(msg string) *Error { return &Error{Code: CodeInvalidArgument, Message: msg} }
func Conflict(msg string) *Error        { return &Error{Code: CodeConflict, Message: msg} }
func Internal(msg string) *Error        { return &Error{Code: CodeInternal, Message: msg} }

// CodeOf extracts the taxonomy code from any error. Unclassified errors
// report as INTERNAL.
func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	return CodeOf(err) == code
}

// HTTPStatus maps an error to its HTTP response status.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// MessageOf returns the client-safe message for an error. Internal causes
// are never leaked.
func MessageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return "internal error"
}
