package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"authcore/internal/apperr"
	"authcore/internal/models"
	"authcore/internal/store"
)

// SessionService is the ledger over issued bearer tokens.
type SessionService struct {
	sessions store.SessionRepository
	audit    store.AuditRepository
	lg       *zap.SugaredLogger
}

func NewSessionService(sessions store.SessionRepository, audit store.AuditRepository, lg *zap.SugaredLogger) *SessionService {
	return &SessionService{sessions: sessions, audit: audit, lg: lg}
}

// Close ends the session for the given token ID. Closing an unknown or
// already-closed session is a no-op.
func (s *SessionService) Close(ctx context.Context, tokenID string) error {
	if err := s.sessions.Close(ctx, tokenID); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *SessionService) ListActive(ctx context.Context, userID string) ([]models.Session, error) {
	sessions, err := s.sessions.ListActive(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return sessions, nil
}

// CloseAll force-logs-out every active session of the target account.
func (s *SessionService) CloseAll(ctx context.Context, actor *models.User, targetID string) (int64, error) {
	count, err := s.sessions.CloseAll(ctx, targetID)
	if err != nil {
		return 0, apperr.Internal(err)
	}
	entry := &models.AuditLog{
		ActorID:   &actor.ID,
		TargetID:  &targetID,
		Action:    "user.logout_all",
		Metadata:  models.Meta(map[string]any{"sessions_ended": count}),
		CreatedAt: time.Now(),
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.lg.Warnw("audit append failed", "action", "user.logout_all", "error", err)
	}
	s.lg.Infow("forced logout", "actor_id", actor.ID, "target_id", targetID, "sessions_ended", count)
	return count, nil
}
