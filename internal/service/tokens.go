package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"authcore/internal/apperr"
	"authcore/internal/auth"
	"authcore/internal/mailer"
	"authcore/internal/metrics"
	"authcore/internal/models"
	"authcore/internal/store"
)

// The affirmative reply both enumeration-sensitive endpoints return
// unconditionally, whether or not the address is registered.
const (
	ResetRequestedMessage       = "If the email exists, a reset link has been sent."
	VerificationRequestMessage  = "If the email exists and is unverified, a verification link has been sent."
	AlreadyVerifiedMessage      = "Email is already verified."
	VerificationSuccessMessage  = "Email verified successfully. Your account is now fully activated."
	PasswordResetSuccessMessage = "Password has been reset successfully. You can now login with your new password."
)

// TokenService issues and redeems single-use out-of-band tokens for password
// reset and email verification. Only SHA-256 digests of raw tokens are stored.
type TokenService struct {
	users  store.UserRepository
	sender mailer.Sender
	lg     *zap.SugaredLogger

	resetTTL    time.Duration
	verifyTTL   time.Duration
	cooldown    time.Duration
	frontendURL string
}

func NewTokenService(users store.UserRepository, sender mailer.Sender, lg *zap.SugaredLogger, resetTTL, verifyTTL, cooldown time.Duration, frontendURL string) *TokenService {
	return &TokenService{
		users:       users,
		sender:      sender,
		lg:          lg,
		resetTTL:    resetTTL,
		verifyTTL:   verifyTTL,
		cooldown:    cooldown,
		frontendURL: frontendURL,
	}
}

// RequestPasswordReset mints a reset token for an active account. The caller
// always gets the same success reply; whether a token was actually minted is
// internal, so the endpoint cannot be used to enumerate accounts.
func (s *TokenService) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return apperr.Internal(err)
	}
	if !u.IsActive() {
		// Inactive accounts get no token, and no different reply either.
		s.lg.Infow("reset requested for inactive account", "user_id", u.ID, "status", u.Status)
		return nil
	}
	raw, err := auth.NewRawToken()
	if err != nil {
		return apperr.Internal(err)
	}
	hash := auth.HashToken(raw)
	expires := time.Now().Add(s.resetTTL)
	err = s.users.UpdateFields(ctx, u.ID, map[string]any{
		"reset_token_hash":    &hash,
		"reset_token_expires": &expires,
	})
	if err != nil {
		return apperr.Internal(err)
	}
	link := fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, raw)
	if !s.sender.Send(u.Email, mailer.KindPasswordReset, link) {
		// Token stays issued; the caller can re-request after the send failure.
		s.lg.Warnw("reset email send failed", "user_id", u.ID)
	}
	s.lg.Infow("password reset issued", "user_id", u.ID)
	return nil
}

// ResetPassword redeems a reset token. Redemption is single-use: the password
// update and the token clear happen in one conditional write, so a second
// redemption of the same raw token fails.
func (s *TokenService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	if ok, reason := auth.CheckStrength(newPassword); !ok {
		return apperr.InvalidInput(reason)
	}
	hash := auth.HashToken(rawToken)
	u, err := s.users.FindByResetTokenHash(ctx, hash)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.TokenRedemption("reset", "invalid")
			return apperr.NotFound("invalid or expired reset token")
		}
		return apperr.Internal(err)
	}
	if u.ResetTokenExpires == nil || time.Now().After(*u.ResetTokenExpires) {
		// Expired tokens are cleared so a fresh one can be requested.
		if err := s.users.UpdateFields(ctx, u.ID, map[string]any{
			"reset_token_hash":    nil,
			"reset_token_expires": nil,
		}); err != nil {
			return apperr.Internal(err)
		}
		metrics.TokenRedemption("reset", "expired")
		return apperr.NotFound("reset token has expired, please request a new one")
	}
	passwordHash, err := auth.HashPassword(newPassword)
	if err != nil {
		return apperr.Internal(err)
	}
	ok, err := s.users.ConsumeResetToken(ctx, u.ID, hash, passwordHash)
	if err != nil {
		return apperr.Internal(err)
	}
	if !ok {
		metrics.TokenRedemption("reset", "invalid")
		return apperr.NotFound("invalid or expired reset token")
	}
	metrics.TokenRedemption("reset", "success")
	s.lg.Infow("password reset redeemed", "user_id", u.ID)
	return nil
}

// CanResend reports whether the verification resend cooldown has elapsed.
func (s *TokenService) CanResend(u *models.User) bool {
	if u.VerificationLastSentAt == nil {
		return true
	}
	return time.Since(*u.VerificationLastSentAt) > s.cooldown
}

// SendVerification mints a verification token and mails the link. Used both at
// registration time and by the resend endpoint; the resend path must check
// CanResend first.
func (s *TokenService) SendVerification(ctx context.Context, u *models.User) error {
	raw, err := auth.NewRawToken()
	if err != nil {
		return apperr.Internal(err)
	}
	hash := auth.HashToken(raw)
	now := time.Now()
	expires := now.Add(s.verifyTTL)
	err = s.users.UpdateFields(ctx, u.ID, map[string]any{
		"email_verification_token_hash": &hash,
		"email_verification_expires":    &expires,
		"verification_last_sent_at":     &now,
	})
	if err != nil {
		return apperr.Internal(err)
	}
	link := fmt.Sprintf("%s/verify-email?token=%s", s.frontendURL, raw)
	if !s.sender.Send(u.Email, mailer.KindEmailVerification, link) {
		s.lg.Warnw("verification email send failed", "user_id", u.ID)
	}
	s.lg.Infow("verification token issued", "user_id", u.ID)
	return nil
}

// ResendVerification re-issues the verification token behind the cooldown.
// Unknown emails yield the generic success reply; already-verified accounts
// are reported as such.
func (s *TokenService) ResendVerification(ctx context.Context, email string) (alreadyVerified bool, err error) {
	u, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, apperr.Internal(err)
	}
	if u.IsEmailVerified {
		return true, nil
	}
	if !s.CanResend(u) {
		return false, apperr.RateLimited("please wait 5 minutes before requesting another verification email")
	}
	return false, s.SendVerification(ctx, u)
}

// VerifyEmail redeems a verification token, marking the email verified and
// promoting pending_verification accounts to active. Single-use, like reset.
func (s *TokenService) VerifyEmail(ctx context.Context, rawToken string) (alreadyVerified bool, err error) {
	hash := auth.HashToken(rawToken)
	u, err := s.users.FindByVerificationTokenHash(ctx, hash)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.TokenRedemption("verification", "invalid")
			return false, apperr.NotFound("invalid or expired verification token")
		}
		return false, apperr.Internal(err)
	}
	if u.IsEmailVerified {
		return true, nil
	}
	if u.EmailVerificationExpires == nil || time.Now().After(*u.EmailVerificationExpires) {
		if err := s.users.UpdateFields(ctx, u.ID, map[string]any{
			"email_verification_token_hash": nil,
			"email_verification_expires":    nil,
		}); err != nil {
			return false, apperr.Internal(err)
		}
		metrics.TokenRedemption("verification", "expired")
		return false, apperr.NotFound("verification token has expired, please request a new one")
	}
	ok, err := s.users.ConsumeVerificationToken(ctx, u.ID, hash)
	if err != nil {
		return false, apperr.Internal(err)
	}
	if !ok {
		metrics.TokenRedemption("verification", "invalid")
		return false, apperr.NotFound("invalid or expired verification token")
	}
	if u.Status == models.StatusPendingVerification {
		if _, err := s.users.UpdateStatusFrom(ctx, u.ID,
			[]string{models.StatusPendingVerification},
			map[string]any{"status": models.StatusActive}); err != nil {
			return false, apperr.Internal(err)
		}
	}
	metrics.TokenRedemption("verification", "success")
	s.lg.Infow("email verified", "user_id", u.ID)
	return false, nil
}
