package api

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	domainerrors "github.com/pilgrimapp/pilgrim-server/internal/errors"
	"github.com/pilgrimapp/pilgrim-server/internal/ratelimit"
)

// RateLimitMiddleware creates a middleware that rate limits API requests by IP.
// Returns 429 Too Many Requests when limit is exceeded. Health and metrics
// endpoints are not limited.
func RateLimitMiddleware(limiter *ratelimit.KeyedRateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || !strings.HasPrefix(r.URL.Path, "/api/") {
				next.ServeHTTP(w, r)
				return
			}

			key := getClientIP(r)
			if !limiter.AllowKey(key) {
				logger.Warn("rate limit exceeded",
					"ip", key,
					"path", r.URL.Path,
				)
				writeError(w, &APIError{
					status:  http.StatusTooManyRequests,
					Code:    string(domainerrors.CodeRateLimited),
					Message: "too many requests, try again later",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP extracts the client IP from the request.
// Checks X-Forwarded-For and X-Real-IP headers before falling back to RemoteAddr.
func getClientIP(r *http.Request) string {
	// First entry in X-Forwarded-For is the client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
