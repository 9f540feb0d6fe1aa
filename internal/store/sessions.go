package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"authcore/internal/models"
)

type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	FindByTokenID(ctx context.Context, tokenID string) (*models.Session, error)
	// Close is idempotent: closing an unknown or already-closed session is a no-op.
	Close(ctx context.Context, tokenID string) error
	ListActive(ctx context.Context, userID string) ([]models.Session, error)
	// CloseAll ends every active session for the user and returns how many it closed.
	CloseAll(ctx context.Context, userID string) (int64, error)
}

type sessionRepo struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &sessionRepo{db: db} }

func (r *sessionRepo) Create(ctx context.Context, session *models.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepo) FindByTokenID(ctx context.Context, tokenID string) (*models.Session, error) {
	var s models.Session
	if err := r.db.WithContext(ctx).First(&s, "token_id = ?", tokenID).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepo) Close(ctx context.Context, tokenID string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&models.Session{}).
		Where("token_id = ? AND is_active = ?", tokenID, true).
		Updates(map[string]any{"logout_time": &now, "is_active": false}).Error
}

func (r *sessionRepo) ListActive(ctx context.Context, userID string) ([]models.Session, error) {
	var sessions []models.Session
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("login_time desc").Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *sessionRepo) CloseAll(ctx context.Context, userID string) (int64, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&models.Session{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Updates(map[string]any{"logout_time": &now, "is_active": false})
	return res.RowsAffected, res.Error
}
