package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pilgrimapp/pilgrim-server/internal/id"
	"github.com/pilgrimapp/pilgrim-server/internal/logger"
	"github.com/pilgrimapp/pilgrim-server/internal/metrics"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// APIEnvelope wraps every successful response and simple errors.
type APIEnvelope struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// APIErrorEnvelope wraps coded errors.
type APIErrorEnvelope struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// EnvelopeTransformer is a huma transformer that wraps response bodies in the
// versioned envelope clients expect.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	var apiErr *APIError
	if err, ok := v.(error); ok {
		if errors.As(err, &apiErr) && apiErr.Code != "" {
			return APIErrorEnvelope{
				Version: EnvelopeVersion,
				Success: false,
				Code:    apiErr.Code,
				Message: apiErr.Message,
				Details: apiErr.Details,
			}, nil
		}
		return APIEnvelope{Version: EnvelopeVersion, Success: false, Error: err.Error()}, nil
	}

	code, err := strconv.Atoi(status)
	if err != nil {
		code = http.StatusOK
	}
	return APIEnvelope{
		Version: EnvelopeVersion,
		Success: code < http.StatusBadRequest,
		Data:    v,
	}, nil
}

// writeError writes an error envelope from plain chi middleware, outside huma.
func writeError(w http.ResponseWriter, apiErr *APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", CacheNoStore)
	w.WriteHeader(apiErr.status)
	_ = json.NewEncoder(w).Encode(APIErrorEnvelope{
		Version: EnvelopeVersion,
		Success: false,
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Details: apiErr.Details,
	})
}

// requestContext assigns a request id, echoes it, and stores a request-scoped
// logger in the context.
func requestContext(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(RequestIDHeader)
			if reqID == "" || len(reqID) > 64 {
				reqID = id.RequestID()
			}
			w.Header().Set(RequestIDHeader, reqID)

			l := &logger.Logger{Logger: base.With("request_id", reqID)}
			next.ServeHTTP(w, r.WithContext(logger.IntoContext(r.Context(), l)))
		})
	}
}

// accessLog logs and counts every request once it completes, labelled with
// the matched route pattern rather than the raw path.
func accessLog(base *slog.Logger, rec *metrics.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				route = rctx.RoutePattern()
			}
			rec.Request(r.Method, route, status)

			l := logger.FromContext(r.Context(), &logger.Logger{Logger: base})
			level := slog.LevelDebug
			switch {
			case status >= http.StatusInternalServerError:
				level = slog.LevelError
			case status >= http.StatusBadRequest:
				level = slog.LevelInfo
			}
			l.Log(r.Context(), level, "request",
				"method", r.Method,
				"route", route,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}
