package auth

import (
	"context"

	"authcore/internal/models"
)

type ctxKey string

const (
	claimsKey ctxKey = "claims"
	userKey   ctxKey = "user"
)

func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func ClaimsFromContext(ctx context.Context) Claims {
	if v, ok := ctx.Value(claimsKey).(Claims); ok {
		return v
	}
	return Claims{}
}

func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext returns the principal set by the auth middleware, or nil on
// unauthenticated requests.
func UserFromContext(ctx context.Context) *models.User {
	if v, ok := ctx.Value(userKey).(*models.User); ok {
		return v
	}
	return nil
}

func Subject(ctx context.Context) string {
	return ClaimsFromContext(ctx).Subject
}
