// ABOUTME: Authentication context carrying the signed-in user through call chains
// ABOUTME: Provides WithAuth/FromContext for propagating identity via context

package auth

import (
	"context"
	"time"
)

// AuthContext is the identity of the signed-in console user.
type AuthContext struct {
	Username  string
	ExpiresAt time.Time
}

// Expired reports whether the login has lapsed at t.
func (a *AuthContext) Expired(t time.Time) bool {
	return !a.ExpiresAt.IsZero() && !t.Before(a.ExpiresAt)
}

type authContextKey struct{}

// WithAuth returns a new context with the AuthContext attached.
func WithAuth(ctx context.Context, auth *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, auth)
}

// FromContext retrieves the AuthContext, or nil if none is attached.
func FromContext(ctx context.Context) *AuthContext {
	auth, _ := ctx.Value(authContextKey{}).(*AuthContext)
	return auth
}
