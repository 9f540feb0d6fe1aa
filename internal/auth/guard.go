package auth

import (
	"context"
	"fmt"

	"authcore/internal/apperr"
	"authcore/internal/models"
	"authcore/internal/store"
)

// Guard derives the authenticated principal from a bearer token. Token
// signature checks alone are not enough: logout and forced logout revoke the
// session row, so the ledger is consulted on every request.
type Guard struct {
	issuer   *Issuer
	users    store.UserRepository
	sessions store.SessionRepository
}

func NewGuard(issuer *Issuer, users store.UserRepository, sessions store.SessionRepository) *Guard {
	return &Guard{issuer: issuer, users: users, sessions: sessions}
}

// Authenticate verifies the token, checks session revocation state and loads
// the account. Status detail is surfaced only for a structurally valid token.
func (g *Guard) Authenticate(ctx context.Context, token string) (*models.User, Claims, error) {
	claims, err := g.issuer.Verify(token)
	if err != nil {
		return nil, Claims{}, apperr.Unauthenticated("invalid authentication credentials")
	}
	sess, err := g.sessions.FindByTokenID(ctx, claims.TokenID)
	if err != nil || sess == nil || !sess.IsActive {
		return nil, Claims{}, apperr.Unauthenticated("session is no longer active")
	}
	user, err := g.users.FindByID(ctx, claims.Subject)
	if err != nil || user == nil {
		return nil, Claims{}, apperr.Unauthenticated("user not found")
	}
	if user.IsBlocked() {
		return nil, Claims{}, apperr.Forbidden(fmt.Sprintf("account is %s, contact administrator", user.Status))
	}
	return user, claims, nil
}

// RequireAdmin is evaluated after Authenticate; authorization never runs on an
// unauthenticated principal.
func (g *Guard) RequireAdmin(user *models.User) error {
	if user.Role != models.RoleAdmin {
		return apperr.Forbidden("admin access required")
	}
	if !user.IsActive() {
		return apperr.Forbidden("admin account is not active")
	}
	return nil
}
