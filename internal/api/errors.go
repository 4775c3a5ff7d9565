package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/pilgrimapp/pilgrim-server/internal/errors"
	"github.com/pilgrimapp/pilgrim-server/internal/store"
)

// APIError is a custom error type that implements huma.StatusError.
// It maps domain errors to HTTP responses with consistent structure.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status  int
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

// RegisterErrorHandler configures huma to use domain errors.
// Call this after creating the huma.API but before registering routes.
func RegisterErrorHandler() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		var fieldErrs []fieldError
		for _, err := range errs {
			if apiErr := toAPIError(err); apiErr != nil {
				return apiErr
			}

			var detail *huma.ErrorDetail
			if errors.As(err, &detail) {
				fieldErrs = append(fieldErrs, fieldError{Location: detail.Location, Message: detail.Message})
			}
		}

		// Schema violations are reported as plain validation failures.
		if status == http.StatusUnprocessableEntity {
			status = http.StatusBadRequest
		}
		apiErr := &APIError{
			status:  status,
			Code:    statusToCode(status),
			Message: message,
		}
		if len(fieldErrs) > 0 {
			apiErr.Details = fieldErrs
		}
		return apiErr
	}
}

type fieldError struct {
	Location string `json:"location"`
	Message  string `json:"message"`
}

// toAPIError converts errors the services return. Internal causes never
// reach the response body.
func toAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		msg := domainErr.Message
		if domainErr.HTTPStatus() >= http.StatusInternalServerError && domainErr.Code == domainerrors.CodeInternal {
			msg = "internal error"
		}
		return &APIError{
			status:  domainErr.HTTPStatus(),
			Code:    string(domainErr.Code),
			Message: msg,
			Details: domainErr.Details,
		}
	}

	if isNotFoundError(err) {
		return &APIError{
			status:  http.StatusNotFound,
			Code:    string(domainerrors.CodeNotFound),
			Message: "not found",
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &APIError{
			status:  http.StatusServiceUnavailable,
			Code:    string(domainerrors.CodeUpstreamUnavailable),
			Message: "request timed out",
		}
	}
	return nil
}

// isNotFoundError checks if the error is a "not found" type error from the store.
func isNotFoundError(err error) bool {
	// Catches ErrNotFound and all ErrNotFound.WithMessage() variants.
	var storeErr *store.Error
	if errors.As(err, &storeErr) && storeErr.HTTPCode() == http.StatusNotFound {
		return true
	}

	return errors.Is(err, store.ErrVisitNotFound) ||
		errors.Is(err, store.ErrFriendshipNotFound) ||
		errors.Is(err, store.ErrFriendRequestNotFound)
}

// statusToCode maps HTTP status codes to our domain error codes.
func statusToCode(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return string(domainerrors.CodeValidation)
	case http.StatusUnauthorized:
		return string(domainerrors.CodeUnauthorized)
	case http.StatusForbidden:
		return string(domainerrors.CodeForbidden)
	case http.StatusNotFound:
		return string(domainerrors.CodeNotFound)
	case http.StatusConflict:
		return string(domainerrors.CodeConflict)
	case http.StatusTooManyRequests:
		return string(domainerrors.CodeRateLimited)
	case http.StatusServiceUnavailable:
		return string(domainerrors.CodeUpstreamUnavailable)
	default:
		return string(domainerrors.CodeInternal)
	}
}
