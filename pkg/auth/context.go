package auth

import (
	"context"
	"errors"
)

// ErrNoUserInContext is returned when a request carries no authenticated user
var ErrNoUserInContext = errors.New("no user in context")

type contextKey struct{}

// UserContext describes the authenticated caller
type UserContext struct {
	UserID string
	Email  string
	Roles  []string
}

// SetUserInContext attaches user to ctx
func SetUserInContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// GetUserFromContext returns the user attached by the auth middleware
func GetUserFromContext(ctx context.Context) (*UserContext, error) {
	user, ok := ctx.Value(contextKey{}).(*UserContext)
	if !ok || user == nil {
		return nil, ErrNoUserInContext
	}
	return user, nil
}

// UserFromClaims builds the request user from validated claims
func UserFromClaims(claims *Claims) *UserContext {
	return &UserContext{
		UserID: claims.Subject,
		Email:  claims.Email,
		Roles:  claims.Roles,
	}
}
