package store

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a domain error with an HTTP status code.
type Error struct {
	Code    int    // HTTP status code
	Message string // User-facing message
	Err     error  // Underlying error (optional)
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error carrying the same status code, so errors derived
// with WithMessage still satisfy errors.Is against the sentinel.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPCode returns the HTTP status code associated with this error.
func (e *Error) HTTPCode() int { return e.Code }

// WithMessage returns a new error with a custom message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{
		Code:    e.Code,
		Message: msg,
		Err:     e.Err,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// Sentinel errors.
var (
	ErrNotFound = &Error{
		Code:    http.StatusNotFound,
		Message: "resource not found",
	}

	ErrAlreadyExists = &Error{
		Code:    http.StatusConflict,
		Message: "resource already exists",
	}

	ErrInvalidInput = &Error{
		Code:    http.StatusBadRequest,
		Message: "invalid input",
	}
)

// Transaction errors.
var (
	// ErrConditionFailed is matched by every *TxnCanceledError.
	ErrConditionFailed = errors.New("transaction condition failed")
	// ErrTxnConflict is returned when a concurrent transaction committed first.
	// The whole transaction had no effect and may be retried.
	ErrTxnConflict = errors.New("transaction conflict")
)

// TxnCanceledError reports which op's condition aborted a transaction.
type TxnCanceledError struct {
	Index int    // position of the failing op
	Kind  OpKind // kind of the failing op
	Key   string
}

func (e *TxnCanceledError) Error() string {
	return fmt.Sprintf("transaction canceled: op %d (%s) condition failed on %q", e.Index, e.Kind, e.Key)
}

// Is reports true for ErrConditionFailed.
func (e *TxnCanceledError) Is(target error) bool {
	return target == ErrConditionFailed
}
