// Package errors provides coded domain errors for the Pilgrim API.
//
// Services return these errors; the HTTP layer turns the Code into a status
// and the Message into the response body.
//
//	if errors.Is(err, errors.ErrNotFriends) {
//	    // caller may not see this user's visits
//	}
//
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    status := domainErr.HTTPStatus()
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeNotFound                Code = "NOT_FOUND"
	CodeNoPendingRequest        Code = "NO_PENDING_REQUEST"
	CodeAlreadyExists           Code = "ALREADY_EXISTS"
	CodeAlreadyFriends          Code = "ALREADY_FRIENDS"
	CodeReciprocalRequestExists Code = "RECIPROCAL_REQUEST_EXISTS"
	CodeConflict                Code = "CONFLICT"
	CodeUnauthorized            Code = "UNAUTHORIZED"
	CodeTokenExpired            Code = "TOKEN_EXPIRED"
	CodeForbidden               Code = "FORBIDDEN"
	CodeNotFriends              Code = "NOT_FRIENDS"
	CodeValidation              Code = "VALIDATION"
	CodeRateLimited             Code = "RATE_LIMITED"
	CodeUpstreamUnavailable     Code = "UPSTREAM_UNAVAILABLE"
	CodeInternal                Code = "INTERNAL"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound, CodeNoPendingRequest:
		return http.StatusNotFound
	case CodeAlreadyExists, CodeAlreadyFriends, CodeReciprocalRequestExists, CodeConflict:
		return http.StatusConflict
	case CodeUnauthorized, CodeTokenExpired:
		return http.StatusUnauthorized
	case CodeForbidden, CodeNotFriends:
		return http.StatusForbidden
	case CodeValidation:
		return http.StatusBadRequest
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeUpstreamUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound                = &Error{Code: CodeNotFound, Message: "not found"}
	ErrNoPendingRequest        = &Error{Code: CodeNoPendingRequest, Message: "no pending request"}
	ErrAlreadyExists           = &Error{Code: CodeAlreadyExists, Message: "already exists"}
	ErrAlreadyFriends          = &Error{Code: CodeAlreadyFriends, Message: "already friends"}
	ErrReciprocalRequestExists = &Error{Code: CodeReciprocalRequestExists, Message: "they already requested you"}
	ErrConflict                = &Error{Code: CodeConflict, Message: "conflict"}
	ErrUnauthorized            = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrTokenExpired            = &Error{Code: CodeTokenExpired, Message: "token expired"}
	ErrForbidden               = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrNotFriends              = &Error{Code: CodeNotFriends, Message: "not friends"}
	ErrValidation              = &Error{Code: CodeValidation, Message: "validation error"}
	ErrRateLimited             = &Error{Code: CodeRateLimited, Message: "too many requests"}
	ErrUpstreamUnavailable     = &Error{Code: CodeUpstreamUnavailable, Message: "upstream unavailable"}
	ErrInternal                = &Error{Code: CodeInternal, Message: "internal error"}
)

// Constructor functions for creating errors with custom messages.

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Conflict creates a conflict error.
func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// UpstreamUnavailable wraps a failure of an external dependency.
func UpstreamUnavailable(msg string, cause error) *Error {
	return &Error{Code: CodeUpstreamUnavailable, Message: msg, cause: cause}
}
