package auth

import (
	"context"

	"github.com/warden/warden/internal/model"
)

type contextKey string

const userContextKey contextKey = "auth_user"

// ContextWithUser attaches the resolved principal to ctx.
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the principal set by the authentication
// middleware, or nil.
func UserFromContext(ctx context.Context) *model.User {
	user, ok := ctx.Value(userContextKey).(*model.User)
	if !ok {
		return nil
	}
	return user
}

// MustUserFromContext panics if no principal is present.
// Only call it behind the Authenticate middleware.
func MustUserFromContext(ctx context.Context) *model.User {
	user := UserFromContext(ctx)
	if user == nil {
		panic("auth user not found - ensure Authenticate middleware is applied")
	}
	return user
}

// UserIDFromContext returns the principal's id, or 0 when unauthenticated.
func UserIDFromContext(ctx context.Context) int64 {
	user := UserFromContext(ctx)
	if user == nil {
		return 0
	}
	return user.ID
}
