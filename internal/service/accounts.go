package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"authcore/internal/apperr"
	"authcore/internal/auth"
	"authcore/internal/metrics"
	"authcore/internal/models"
	"authcore/internal/store"
)

// AccountService owns user records, credential checks and status transitions.
type AccountService struct {
	users    store.UserRepository
	sessions store.SessionRepository
	audit    store.AuditRepository
	issuer   *auth.Issuer
	lg       *zap.SugaredLogger
}

func NewAccountService(users store.UserRepository, sessions store.SessionRepository, audit store.AuditRepository, issuer *auth.Issuer, lg *zap.SugaredLogger) *AccountService {
	return &AccountService{users: users, sessions: sessions, audit: audit, issuer: issuer, lg: lg}
}

type RegisterInput struct {
	Name     string
	Email    string
	Mobile   string
	Password string
}

type AdminCreateInput struct {
	RegisterInput
	Role string
}

type LoginResult struct {
	User      *models.User
	Token     string
	TokenID   string
	ExpiresIn int64
}

func (s *AccountService) validateNewAccount(in RegisterInput) error {
	if err := validateName(in.Name); err != nil {
		return err
	}
	if err := validateEmail(normalizeEmail(in.Email)); err != nil {
		return err
	}
	if err := validateMobile(in.Mobile); err != nil {
		return err
	}
	if ok, reason := auth.CheckStrength(in.Password); !ok {
		return apperr.InvalidInput(reason)
	}
	return nil
}

// Register creates a self-service account: role user, unverified email.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := s.validateNewAccount(in); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	u := &models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        normalizeEmail(in.Email),
		Mobile:       strings.TrimSpace(in.Mobile),
		Role:         models.RoleUser,
		PasswordHash: hash,
		Status:       models.StatusActive,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	metrics.Registration()
	s.lg.Infow("user registered", "user_id", u.ID, "email", u.Email)
	return u, nil
}

// AdminCreate is the privileged creation path: caller picks the role and the
// account starts email-verified. Password policy is the same as self-service.
func (s *AccountService) AdminCreate(ctx context.Context, actor *models.User, in AdminCreateInput) (*models.User, error) {
	if !models.ValidRole(in.Role) {
		return nil, apperr.InvalidInput(`role must be either "user" or "admin"`)
	}
	if err := s.validateNewAccount(in.RegisterInput); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	u := &models.User{
		Name:            strings.TrimSpace(in.Name),
		Email:           normalizeEmail(in.Email),
		Mobile:          strings.TrimSpace(in.Mobile),
		Role:            in.Role,
		PasswordHash:    hash,
		Status:          models.StatusActive,
		IsEmailVerified: true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.appendAudit(ctx, &actor.ID, &u.ID, "user.create", map[string]any{"role": in.Role})
	s.lg.Infow("user created by admin", "actor_id", actor.ID, "user_id", u.ID, "role", u.Role)
	return u, nil
}

// Authenticate checks credentials. Unknown email and wrong password are
// indistinguishable; account status is only surfaced after the password
// matched, so probing cannot map emails to statuses.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.LoginAttempt("invalid")
			return nil, apperr.Unauthenticated("incorrect email or password")
		}
		return nil, apperr.Internal(err)
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		metrics.LoginAttempt("invalid")
		return nil, apperr.Unauthenticated("incorrect email or password")
	}
	if !u.IsActive() {
		metrics.LoginAttempt("blocked")
		return nil, apperr.Forbidden(fmt.Sprintf("account is %s, contact administrator for assistance", u.Status))
	}
	now := time.Now()
	u.LastLoginAt = &now
	if err := s.users.UpdateFields(ctx, u.ID, map[string]any{"last_login_at": &now}); err != nil {
		return nil, apperr.Internal(err)
	}
	metrics.LoginAttempt("success")
	return u, nil
}

// Login authenticates, mints a bearer token and opens a session keyed by the
// token's jti.
func (s *AccountService) Login(ctx context.Context, email, password, ip, userAgent string) (*LoginResult, error) {
	u, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	token, jti, err := s.issuer.Issue(u.ID, u.Email, u.Role)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	sess := &models.Session{
		UserID:    u.ID,
		TokenID:   jti,
		LoginTime: time.Now(),
		IPAddress: ip,
		UserAgent: userAgent,
		IsActive:  true,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, apperr.Internal(err)
	}
	s.lg.Infow("login", "user_id", u.ID, "ip", ip)
	return &LoginResult{
		User:      u,
		Token:     token,
		TokenID:   jti,
		ExpiresIn: int64(s.issuer.TTL().Seconds()),
	}, nil
}

type UpdateProfileInput struct {
	Name     *string
	Email    *string
	Mobile   *string
	Password *string
}

// UpdateProfile applies only the supplied fields and always bumps updated_at.
func (s *AccountService) UpdateProfile(ctx context.Context, id string, in UpdateProfileInput) (*models.User, error) {
	fields := map[string]any{}
	if in.Name != nil {
		if err := validateName(*in.Name); err != nil {
			return nil, err
		}
		fields["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		norm := normalizeEmail(*in.Email)
		if err := validateEmail(norm); err != nil {
			return nil, err
		}
		if existing, err := s.users.FindByEmail(ctx, norm); err == nil && existing.ID != id {
			return nil, apperr.Conflict("email already registered")
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Internal(err)
		}
		fields["email"] = norm
	}
	if in.Mobile != nil {
		if err := validateMobile(*in.Mobile); err != nil {
			return nil, err
		}
		fields["mobile"] = strings.TrimSpace(*in.Mobile)
	}
	if in.Password != nil {
		if ok, reason := auth.CheckStrength(*in.Password); !ok {
			return nil, apperr.InvalidInput(reason)
		}
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		fields["password_hash"] = hash
	}
	if err := s.users.UpdateFields(ctx, id, fields); err != nil {
		return nil, apperr.Internal(err)
	}
	return s.Get(ctx, id)
}

// ChangeStatus runs the moderation state machine:
//
//	active    -> blocked | suspended  (not self, not another admin)
//	blocked   -> active
//	suspended -> active
func (s *AccountService) ChangeStatus(ctx context.Context, actor *models.User, targetID, newStatus string, reason *string) (*models.User, error) {
	target, err := s.Get(ctx, targetID)
	if err != nil {
		return nil, err
	}
	switch newStatus {
	case models.StatusBlocked, models.StatusSuspended:
		if target.ID == actor.ID {
			return nil, apperr.Forbidden("cannot change your own account status")
		}
		if target.Role == models.RoleAdmin {
			return nil, apperr.Forbidden("cannot block or suspend another administrator")
		}
		now := time.Now()
		ok, err := s.users.UpdateStatusFrom(ctx, targetID,
			[]string{models.StatusActive},
			map[string]any{
				"status":         newStatus,
				"blocked_at":     &now,
				"blocked_by":     &actor.ID,
				"blocked_reason": reason,
			})
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if !ok {
			return nil, apperr.Conflict(fmt.Sprintf("account is not active, cannot transition to %s", newStatus))
		}
	case models.StatusActive:
		ok, err := s.users.UpdateStatusFrom(ctx, targetID,
			[]string{models.StatusBlocked, models.StatusSuspended, models.StatusPendingVerification},
			map[string]any{
				"status":         models.StatusActive,
				"blocked_at":     nil,
				"blocked_by":     nil,
				"blocked_reason": nil,
			})
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if !ok {
			return nil, apperr.Conflict("account is already active")
		}
	default:
		return nil, apperr.InvalidInput("unsupported status transition")
	}
	meta := map[string]any{"status": newStatus}
	if reason != nil {
		meta["reason"] = *reason
	}
	s.appendAudit(ctx, &actor.ID, &targetID, "user.status_change", meta)
	s.lg.Infow("status changed", "actor_id", actor.ID, "target_id", targetID, "status", newStatus)
	return s.Get(ctx, targetID)
}

// ChangeRole promotes or demotes an account. Changing your own role is
// forbidden for the same reason self-blocking is: an admin must not be able to
// lock the admin corps out singlehandedly.
func (s *AccountService) ChangeRole(ctx context.Context, actor *models.User, targetID, newRole string) (*models.User, error) {
	if !models.ValidRole(newRole) {
		return nil, apperr.InvalidInput(`role must be either "user" or "admin"`)
	}
	if targetID == actor.ID {
		return nil, apperr.Forbidden("cannot change your own role")
	}
	target, err := s.Get(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateFields(ctx, targetID, map[string]any{"role": newRole}); err != nil {
		return nil, apperr.Internal(err)
	}
	s.appendAudit(ctx, &actor.ID, &targetID, "user.role_change", map[string]any{"from": target.Role, "to": newRole})
	s.lg.Infow("role changed", "actor_id", actor.ID, "target_id", targetID, "role", newRole)
	return s.Get(ctx, targetID)
}

func (s *AccountService) Get(ctx context.Context, id string) (*models.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal(err)
	}
	return u, nil
}

func (s *AccountService) List(ctx context.Context, includeBlocked bool) ([]models.User, error) {
	users, err := s.users.List(ctx, includeBlocked)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return users, nil
}

func (s *AccountService) ListBlocked(ctx context.Context) ([]models.User, error) {
	users, err := s.users.ListBlocked(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return users, nil
}

func (s *AccountService) Stats(ctx context.Context) (store.UserStats, error) {
	stats, err := s.users.Stats(ctx)
	if err != nil {
		return stats, apperr.Internal(err)
	}
	return stats, nil
}

func (s *AccountService) appendAudit(ctx context.Context, actorID, targetID *string, action string, meta map[string]any) {
	entry := &models.AuditLog{
		ActorID:   actorID,
		TargetID:  targetID,
		Action:    action,
		Metadata:  models.Meta(meta),
		CreatedAt: time.Now(),
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.lg.Warnw("audit append failed", "action", action, "error", err)
	}
}
