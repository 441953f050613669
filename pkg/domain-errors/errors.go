// Package domainerrors defines the typed error vocabulary shared by services
// and transport. Services return these; the HTTP layer maps them to statuses.
// Infrastructure facts (not found, expired, already used) start life as
// pkg/platform/sentinel errors inside stores and are translated here at the
// service boundary.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code identifies the class of a domain error. The string form is what the
// HTTP layer emits in the "error" field of the response envelope.
type Code string

const (
	CodeInvalidArgument    Code = "invalid_argument"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeFailedPrecondition Code = "failed_precondition"
	CodeTooManyRequests    Code = "too_many_requests"
	CodeInternal           Code = "internal_error"
)

// Error carries a code plus a human-readable message. The message is safe to
// surface to scanning agents; it names the failing factor so the agent can
// prompt an immediate retry without operator intervention.
type Error struct {
	Code    Code
	Message string
	wrapped error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.wrapped }

// New constructs a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap constructs a domain error that preserves the underlying cause for
// errors.Is/As chains while presenting a clean message outward.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, wrapped: cause}
}

// HasCode reports whether err is (or wraps) a domain error with the code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal so unclassified
// failures never leak details through the transport layer.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a domain error code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeFailedPrecondition:
		return http.StatusPreconditionFailed
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
