// Package storetest provides in-memory repository implementations for tests.
// The maps are mutex-guarded so concurrency properties (duplicate
// registration, double redemption) are exercised for real.
package storetest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"authcore/internal/apperr"
	"authcore/internal/models"
	"authcore/internal/store"
)

type MemoryUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{users: map[string]*models.User{}}
}

var _ store.UserRepository = (*MemoryUsers)(nil)

func (r *MemoryUsers) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, user.Email) {
			return apperr.Conflict("email already registered")
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *MemoryUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *MemoryUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *MemoryUsers) FindByResetTokenHash(_ context.Context, hash string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ResetTokenHash != nil && *u.ResetTokenHash == hash {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *MemoryUsers) FindByVerificationTokenHash(_ context.Context, hash string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.EmailVerificationTokenHash != nil && *u.EmailVerificationTokenHash == hash {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *MemoryUsers) Update(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *user
	cp.UpdatedAt = time.Now()
	r.users[user.ID] = &cp
	return nil
}

func (r *MemoryUsers) UpdateFields(_ context.Context, id string, fields map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	applyFields(u, fields)
	u.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryUsers) UpdateStatusFrom(_ context.Context, id string, from []string, fields map[string]any) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return false, nil
	}
	matched := false
	for _, s := range from {
		if u.Status == s {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	applyFields(u, fields)
	u.UpdatedAt = time.Now()
	return true, nil
}

func (r *MemoryUsers) ConsumeResetToken(_ context.Context, id, tokenHash, newPasswordHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.ResetTokenHash == nil || *u.ResetTokenHash != tokenHash {
		return false, nil
	}
	u.PasswordHash = newPasswordHash
	u.ResetTokenHash = nil
	u.ResetTokenExpires = nil
	u.UpdatedAt = time.Now()
	return true, nil
}

func (r *MemoryUsers) ConsumeVerificationToken(_ context.Context, id, tokenHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.EmailVerificationTokenHash == nil || *u.EmailVerificationTokenHash != tokenHash {
		return false, nil
	}
	u.IsEmailVerified = true
	u.EmailVerificationTokenHash = nil
	u.EmailVerificationExpires = nil
	u.UpdatedAt = time.Now()
	return true, nil
}

func (r *MemoryUsers) List(_ context.Context, includeBlocked bool) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.User
	for _, u := range r.users {
		if !includeBlocked && u.Status != models.StatusActive {
			continue
		}
		out = append(out, *u)
	}
	return out, nil
}

func (r *MemoryUsers) ListBlocked(_ context.Context) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.User
	for _, u := range r.users {
		if u.Status == models.StatusBlocked || u.Status == models.StatusSuspended {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *MemoryUsers) Stats(_ context.Context) (store.UserStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var s store.UserStats
	startOfDay := time.Now().Truncate(24 * time.Hour)
	for _, u := range r.users {
		s.TotalUsers++
		switch u.Status {
		case models.StatusActive:
			s.ActiveUsers++
		case models.StatusBlocked:
			s.BlockedUsers++
		case models.StatusSuspended:
			s.SuspendedUsers++
		case models.StatusPendingVerification:
			s.PendingVerification++
		}
		if !u.CreatedAt.Before(startOfDay) {
			s.UsersToday++
		}
	}
	return s, nil
}

func applyFields(u *models.User, fields map[string]any) {
	for k, v := range fields {
		switch k {
		case "name":
			u.Name = v.(string)
		case "email":
			u.Email = v.(string)
		case "mobile":
			u.Mobile = v.(string)
		case "role":
			u.Role = v.(string)
		case "status":
			u.Status = v.(string)
		case "password_hash":
			u.PasswordHash = v.(string)
		case "is_email_verified":
			u.IsEmailVerified = v.(bool)
		case "last_login_at":
			u.LastLoginAt = asTimePtr(v)
		case "blocked_at":
			u.BlockedAt = asTimePtr(v)
		case "blocked_by":
			u.BlockedBy = asStringPtr(v)
		case "blocked_reason":
			u.BlockedReason = asStringPtr(v)
		case "reset_token_hash":
			u.ResetTokenHash = asStringPtr(v)
		case "reset_token_expires":
			u.ResetTokenExpires = asTimePtr(v)
		case "email_verification_token_hash":
			u.EmailVerificationTokenHash = asStringPtr(v)
		case "email_verification_expires":
			u.EmailVerificationExpires = asTimePtr(v)
		case "verification_last_sent_at":
			u.VerificationLastSentAt = asTimePtr(v)
		case "updated_at":
			// set by the caller below
		}
	}
}

func asStringPtr(v any) *string {
	if p, ok := v.(*string); ok {
		return p
	}
	return nil
}

func asTimePtr(v any) *time.Time {
	if p, ok := v.(*time.Time); ok {
		return p
	}
	return nil
}

type MemorySessions struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
}

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{sessions: map[string]*models.Session{}}
}

var _ store.SessionRepository = (*MemorySessions)(nil)

func (r *MemorySessions) Create(_ context.Context, session *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	cp := *session
	r.sessions[session.TokenID] = &cp
	return nil
}

func (r *MemorySessions) FindByTokenID(_ context.Context, tokenID string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[tokenID]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *MemorySessions) Close(_ context.Context, tokenID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[tokenID]; ok && s.IsActive {
		now := time.Now()
		s.LogoutTime = &now
		s.IsActive = false
	}
	return nil
}

func (r *MemorySessions) ListActive(_ context.Context, userID string) ([]models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Session
	for _, s := range r.sessions {
		if s.UserID == userID && s.IsActive {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *MemorySessions) CloseAll(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	now := time.Now()
	for _, s := range r.sessions {
		if s.UserID == userID && s.IsActive {
			s.LogoutTime = &now
			s.IsActive = false
			count++
		}
	}
	return count, nil
}

type MemoryAudit struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func NewMemoryAudit() *MemoryAudit { return &MemoryAudit{} }

var _ store.AuditRepository = (*MemoryAudit)(nil)

func (r *MemoryAudit) Append(_ context.Context, entry *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = int64(len(r.entries) + 1)
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *MemoryAudit) Recent(_ context.Context, limit int) ([]models.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.entries)
	if limit > n {
		limit = n
	}
	out := make([]models.AuditLog, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, r.entries[i])
	}
	return out, nil
}

// Entries returns a snapshot for assertions.
func (r *MemoryAudit) Entries() []models.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.AuditLog(nil), r.entries...)
}
