package store_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/pilgrimapp/pilgrim-server/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestError_ErrorWithCause(t *testing.T) {
	cause := errors.New("underlying error")
	err := &store.Error{
		Code:    http.StatusNotFound,
		Message: "not found",
		Err:     cause,
	}

	assert.Equal(t, "not found: underlying error", err.Error())
	assert.Equal(t, cause, err.Unwrap())
}

func TestError_WithMessageStillMatchesSentinel(t *testing.T) {
	err := store.ErrInvalidInput.WithMessage("identifier must not contain ':'")

	assert.True(t, errors.Is(err, store.ErrInvalidInput))
	assert.False(t, errors.Is(err, store.ErrNotFound))
	assert.Equal(t, http.StatusBadRequest, err.HTTPCode())
}

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      *store.Error
		wantCode int
	}{
		{"not found", store.ErrNotFound, http.StatusNotFound},
		{"already exists", store.ErrAlreadyExists, http.StatusConflict},
		{"invalid input", store.ErrInvalidInput, http.StatusBadRequest},
		{"user not found", store.ErrUserNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, tt.err.HTTPCode())
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestTxnCanceledError_MatchesConditionFailed(t *testing.T) {
	var err error = &store.TxnCanceledError{Index: 1, Kind: store.OpCheckAbsent, Key: "freq:a:b"}
	wrapped := fmt.Errorf("request friend: %w", err)

	assert.True(t, errors.Is(wrapped, store.ErrConditionFailed))
	assert.False(t, errors.Is(wrapped, store.ErrTxnConflict))
	assert.Contains(t, err.Error(), "check_absent")

	var canceled *store.TxnCanceledError
	assert.True(t, errors.As(wrapped, &canceled))
	assert.Equal(t, 1, canceled.Index)
}
