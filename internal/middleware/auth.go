package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/warden/warden/internal/auth"
	"github.com/warden/warden/internal/model"
	"github.com/warden/warden/internal/service"
)

// SessionResolver maps a bearer token to a user.
type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (*model.User, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger   *slog.Logger
	Sessions SessionResolver
}

// Authenticate resolves the bearer token and stores the user in the request
// context. Every token failure gets the same 401 so callers cannot tell a
// bad signature from an expired token or a deleted user.
func Authenticate(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				cfg.Logger.WarnContext(r.Context(), "authentication failed",
					slog.String("reason", "missing_token"),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeUnauthenticated(w)
				return
			}

			user, err := cfg.Sessions.ResolveSession(r.Context(), token)
			if err != nil {
				if errors.Is(err, service.ErrUnauthenticated) {
					cfg.Logger.WarnContext(r.Context(), "authentication failed",
						slog.String("reason", "invalid_token"),
						slog.String("request_id", GetRequestID(r.Context())),
					)
					writeUnauthenticated(w)
					return
				}
				cfg.Logger.ErrorContext(r.Context(), "session resolution failed",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
				return
			}

			r = r.WithContext(auth.ContextWithUser(r.Context(), user))
			notePrincipal(r)
			next.ServeHTTP(w, r)
		})
	}
}

// RequireActive rejects deactivated users with 403. It must run after
// Authenticate.
func RequireActive(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := service.RequireActive(auth.UserFromContext(r.Context()))
		switch {
		case err == nil:
			next.ServeHTTP(w, r)
		case errors.Is(err, service.ErrInactiveAccount):
			writeError(w, http.StatusForbidden, "INACTIVE_ACCOUNT", service.ErrInactiveAccount.Error())
		default:
			writeUnauthenticated(w)
		}
	})
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeUnauthenticated(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", service.ErrUnauthenticated.Error())
}
