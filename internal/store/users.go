package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"authcore/internal/apperr"
	"authcore/internal/models"
)

// ErrNotFound is returned by Find* methods when no row matches.
var ErrNotFound = gorm.ErrRecordNotFound

type UserStats struct {
	TotalUsers          int64 `json:"total_users"`
	ActiveUsers         int64 `json:"active_users"`
	BlockedUsers        int64 `json:"blocked_users"`
	SuspendedUsers      int64 `json:"suspended_users"`
	PendingVerification int64 `json:"pending_verification"`
	UsersToday          int64 `json:"users_today"`
}

type UserRepository interface {
	// Create inserts the user, failing with apperr.Conflict when the email is
	// already taken. The check and the insert run in one transaction.
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByResetTokenHash(ctx context.Context, hash string) (*models.User, error)
	FindByVerificationTokenHash(ctx context.Context, hash string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	// UpdateFields applies a partial update; nil values clear columns.
	UpdateFields(ctx context.Context, id string, fields map[string]any) error
	// UpdateStatusFrom transitions status only when the current status is in
	// from, reporting whether a row changed. This is the compare-and-set that
	// keeps concurrent moderation actions from double-applying.
	UpdateStatusFrom(ctx context.Context, id string, from []string, fields map[string]any) (bool, error)
	// ConsumeResetToken clears the reset token and writes the new password
	// hash in one conditional update; false means the token was already spent.
	ConsumeResetToken(ctx context.Context, id, tokenHash, newPasswordHash string) (bool, error)
	// ConsumeVerificationToken marks the email verified and clears the token;
	// false means the token was already spent.
	ConsumeVerificationToken(ctx context.Context, id, tokenHash string) (bool, error)
	List(ctx context.Context, includeBlocked bool) ([]models.User, error)
	ListBlocked(ctx context.Context) ([]models.User, error)
	Stats(ctx context.Context) (UserStats, error)
}

type userRepo struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &userRepo{db: db} }

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("LOWER(email) = ?", user.Email).Count(&count).Error; err != nil {
			return apperr.Internal(err)
		}
		if count > 0 {
			return apperr.Conflict("email already registered")
		}
		if err := tx.Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("email already registered")
			}
			return apperr.Internal(err)
		}
		return nil
	})
}

func (r *userRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).First(&u, "LOWER(email) = ?", email).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) FindByResetTokenHash(ctx context.Context, hash string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).First(&u, "reset_token_hash = ?", hash).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) FindByVerificationTokenHash(ctx context.Context, hash string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).First(&u, "email_verification_token_hash = ?", hash).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *userRepo) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	fields["updated_at"] = time.Now()
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields).Error
}

func (r *userRepo) UpdateStatusFrom(ctx context.Context, id string, from []string, fields map[string]any) (bool, error) {
	fields["updated_at"] = time.Now()
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *userRepo) ConsumeResetToken(ctx context.Context, id, tokenHash, newPasswordHash string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND reset_token_hash = ?", id, tokenHash).
		Updates(map[string]any{
			"password_hash":       newPasswordHash,
			"reset_token_hash":    nil,
			"reset_token_expires": nil,
			"updated_at":          time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *userRepo) ConsumeVerificationToken(ctx context.Context, id, tokenHash string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND email_verification_token_hash = ?", id, tokenHash).
		Updates(map[string]any{
			"is_email_verified":             true,
			"email_verification_token_hash": nil,
			"email_verification_expires":    nil,
			"updated_at":                    time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *userRepo) List(ctx context.Context, includeBlocked bool) ([]models.User, error) {
	q := r.db.WithContext(ctx).Order("created_at desc")
	if !includeBlocked {
		q = q.Where("status = ?", models.StatusActive)
	}
	var users []models.User
	if err := q.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepo) ListBlocked(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("status IN ?", []string{models.StatusBlocked, models.StatusSuspended}).
		Order("created_at desc").Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepo) Stats(ctx context.Context) (UserStats, error) {
	var s UserStats
	db := r.db.WithContext(ctx).Model(&models.User{})
	if err := db.Count(&s.TotalUsers).Error; err != nil {
		return s, err
	}
	counts := map[string]*int64{
		models.StatusActive:              &s.ActiveUsers,
		models.StatusBlocked:             &s.BlockedUsers,
		models.StatusSuspended:           &s.SuspendedUsers,
		models.StatusPendingVerification: &s.PendingVerification,
	}
	for status, dst := range counts {
		if err := r.db.WithContext(ctx).Model(&models.User{}).Where("status = ?", status).Count(dst).Error; err != nil {
			return s, err
		}
	}
	startOfDay := time.Now().Truncate(24 * time.Hour)
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("created_at >= ?", startOfDay).Count(&s.UsersToday).Error; err != nil {
		return s, err
	}
	return s, nil
}
