package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pilgrimapp/pilgrim-server/internal/auth"
	domainerrors "github.com/pilgrimapp/pilgrim-server/internal/errors"
	"github.com/pilgrimapp/pilgrim-server/internal/logger"
	"github.com/pilgrimapp/pilgrim-server/internal/normalize"
	"github.com/pilgrimapp/pilgrim-server/internal/service"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

// authKey is the context key for the authentication outcome.
const authKey ctxKey = "auth"

// authState is what the auth middleware learned about the caller. Either
// identity is set or err explains why not.
type authState struct {
	identity *auth.Identity
	err      error
}

// GetIdentity returns the authenticated caller from context.
// Returns a 401 error if the request carried no usable token.
func GetIdentity(ctx context.Context) (*auth.Identity, error) {
	state, ok := ctx.Value(authKey).(*authState)
	if !ok || state == nil {
		return nil, toAPIError(domainerrors.Unauthorized("authentication required"))
	}
	if state.err != nil {
		return nil, toAPIError(state.err)
	}
	return state.identity, nil
}

// GetUserID returns the authenticated subject from context.
func GetUserID(ctx context.Context) (string, error) {
	identity, err := GetIdentity(ctx)
	if err != nil {
		return "", err
	}
	return identity.Subject, nil
}

// authMiddleware returns a middleware that validates Bearer tokens, registers
// the subject in the user directory and stores the outcome in context.
// Requests without a token continue; handlers use GetIdentity to require one.
func authMiddleware(verifier auth.Verifier, profiles *service.ProfileService, base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			state := authenticate(ctx, verifier, profiles, authHeader)
			if state.err != nil {
				var domainErr *domainerrors.Error
				if errors.As(state.err, &domainErr) && domainErr.Code != domainerrors.CodeUnauthorized {
					logger.FromContext(ctx, &logger.Logger{Logger: base}).
						WithError(state.err).Error("user directory provisioning failed")
				}
			} else {
				l := logger.FromContext(ctx, &logger.Logger{Logger: base}).WithUser(state.identity.Subject)
				ctx = logger.IntoContext(ctx, l)
			}

			ctx = context.WithValue(ctx, authKey, state)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(ctx context.Context, verifier auth.Verifier, profiles *service.ProfileService, authHeader string) *authState {
	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return &authState{err: domainerrors.Unauthorized("invalid authorization header format")}
	}

	identity, err := verifier.Verify(ctx, strings.TrimSpace(token))
	if err != nil {
		return &authState{err: domainerrors.Unauthorized("invalid or expired token")}
	}

	subject, ok := normalize.ID(identity.Subject)
	if !ok {
		return &authState{err: domainerrors.Unauthorized("token subject is not a usable user id")}
	}
	identity = &auth.Identity{Subject: subject, Email: identity.Email}

	if profiles != nil {
		if err := profiles.EnsureUser(ctx, subject, identity.Email); err != nil {
			return &authState{err: domainerrors.UpstreamUnavailable("user directory unavailable", err)}
		}
	}
	return &authState{identity: identity}
}
