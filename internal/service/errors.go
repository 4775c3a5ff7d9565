package service

import (
	"context"
	"errors"
	"fmt"

	domainerrors "github.com/pilgrimapp/pilgrim-server/internal/errors"
	"github.com/pilgrimapp/pilgrim-server/internal/normalize"
	"github.com/pilgrimapp/pilgrim-server/internal/store"
)

// storeError turns a store failure into a domain error. Context errors pass
// through so the HTTP layer can tell cancellation from failure.
func storeError(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return err
	}

	var storeErr *store.Error
	if errors.As(err, &storeErr) && errors.Is(err, store.ErrInvalidInput) {
		return domainerrors.Validation(storeErr.Message)
	}

	return domainerrors.Internal("storage failure").WithCause(fmt.Errorf("%s: %w", op, err))
}

// requireID trims an identifier and rejects empty ones or ones containing ':'.
func requireID(field, value string) (string, error) {
	id, ok := normalize.ID(value)
	if !ok {
		return "", domainerrors.Validationf("%s must be a non-empty id without ':'", field).
			WithDetails(map[string]string{field: "invalid"})
	}
	return id, nil
}
