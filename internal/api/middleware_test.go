package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilgrimapp/pilgrim-server/internal/ratelimit"
)

func TestEnvelopeTransformer_AlwaysIncludesVersion(t *testing.T) {
	tests := []struct {
		name   string
		status string
		input  any
	}{
		{
			name:   "success response",
			status: "200",
			input:  map[string]string{"key": "value"},
		},
		{
			name:   "no content response",
			status: "204",
			input:  nil,
		},
		{
			name:   "plain error",
			status: "400",
			input:  errors.New("invalid input"),
		},
		{
			name:   "coded error",
			status: "409",
			input: &APIError{
				Code:    "ALREADY_FRIENDS",
				Message: "already friends",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := EnvelopeTransformer(nil, tt.status, tt.input)
			require.NoError(t, err)

			jsonBytes, err := json.Marshal(result)
			require.NoError(t, err)

			var envelope map[string]any
			require.NoError(t, json.Unmarshal(jsonBytes, &envelope))

			require.Contains(t, envelope, "v", "Envelope must contain version field 'v'")
			assert.Equal(t, float64(EnvelopeVersion), envelope["v"])
		})
	}
}

func TestEnvelopeTransformer_SuccessResponse(t *testing.T) {
	data := map[string]string{"placeId": "p1"}

	result, err := EnvelopeTransformer(nil, "200", data)
	require.NoError(t, err)

	envelope, ok := result.(APIEnvelope)
	require.True(t, ok, "Expected APIEnvelope type")

	assert.Equal(t, EnvelopeVersion, envelope.Version)
	assert.True(t, envelope.Success)
	assert.Equal(t, data, envelope.Data)
	assert.Empty(t, envelope.Error)
}

func TestEnvelopeTransformer_ErrorStatusWithoutErrorValue(t *testing.T) {
	result, err := EnvelopeTransformer(nil, "404", map[string]string{"detail": "gone"})
	require.NoError(t, err)

	envelope, ok := result.(APIEnvelope)
	require.True(t, ok)
	assert.False(t, envelope.Success)
}

func TestEnvelopeTransformer_PlainError(t *testing.T) {
	result, err := EnvelopeTransformer(nil, "400", errors.New("validation failed"))
	require.NoError(t, err)

	envelope, ok := result.(APIEnvelope)
	require.True(t, ok, "Expected APIEnvelope type")

	assert.False(t, envelope.Success)
	assert.Nil(t, envelope.Data)
	assert.Equal(t, "validation failed", envelope.Error)
}

func TestEnvelopeTransformer_CodedError(t *testing.T) {
	apiErr := &APIError{
		Code:    "VALIDATION",
		Message: "rating out of range",
		Details: map[string]string{"rating": "lte"},
	}

	result, err := EnvelopeTransformer(nil, "400", apiErr)
	require.NoError(t, err)

	envelope, ok := result.(APIErrorEnvelope)
	require.True(t, ok, "Expected APIErrorEnvelope type")

	assert.Equal(t, EnvelopeVersion, envelope.Version)
	assert.False(t, envelope.Success)
	assert.Equal(t, "VALIDATION", envelope.Code)
	assert.Equal(t, "rating out of range", envelope.Message)
	assert.Equal(t, map[string]string{"rating": "lte"}, envelope.Details)
}

// withIPLimit installs a per-IP limiter that allows burst requests.
func withIPLimit(t *testing.T, burst int) func(*Options) {
	t.Helper()
	limiter := ratelimit.New(0.0001, burst)
	t.Cleanup(limiter.Stop)
	return func(o *Options) { o.IPLimiter = limiter }
}

func TestRateLimitMiddleware_LimitsPerIP(t *testing.T) {
	ts := setupTestServer(t, withIPLimit(t, 2))
	alice := ts.bearer(t, "alice", "")

	for range 2 {
		require.Equal(t, http.StatusOK, ts.api.Get("/api/v1/visits", alice).Code)
	}

	resp := ts.api.Get("/api/v1/visits", alice)
	require.Equal(t, http.StatusTooManyRequests, resp.Code)
	env := decode[any](t, resp.Body.Bytes())
	assert.Equal(t, "RATE_LIMITED", env.Code)
	assert.Equal(t, EnvelopeVersion, env.Version)

	// Another client still gets through.
	resp = ts.api.Get("/api/v1/visits", alice, "X-Forwarded-For: 203.0.113.9")
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestRateLimitMiddleware_NilLimiterPassesThrough(t *testing.T) {
	called := false
	h := RateLimitMiddleware(nil, slog.Default())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/visits", http.NoBody))
	assert.True(t, called)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded for chain", map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.1"}, "10.0.0.2:5000", "198.51.100.1"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.2"}, "10.0.0.2:5000", "198.51.100.2"},
		{"remote addr", nil, "192.0.2.7:5000", "192.0.2.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(r))
		})
	}
}

func TestAccessLog_LevelsByStatus(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	serve := func(status int) {
		h := requestContext(base)(accessLog(base, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		})))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", http.NoBody))
	}

	serve(http.StatusOK)
	assert.Empty(t, buf.String(), "successful requests log at debug")

	serve(http.StatusNotFound)
	assert.Contains(t, buf.String(), `"level":"INFO"`)
	assert.Contains(t, buf.String(), `"request_id"`)

	buf.Reset()
	serve(http.StatusInternalServerError)
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
}
