package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"authcore/internal/service"
)

type forgotPasswordReq struct {
	Email string `json:"email"`
}

// ForgotPassword answers identically whether or not the email is registered.
func ForgotPassword(tokens *service.TokenService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req forgotPasswordReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if err := tokens.RequestPasswordReset(r.Context(), req.Email); err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"message": service.ResetRequestedMessage,
			"success": true,
		})
	}
}

type resetPasswordReq struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func ResetPassword(tokens *service.TokenService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resetPasswordReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if err := tokens.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"message": service.PasswordResetSuccessMessage,
			"success": true,
		})
	}
}

type verifyEmailReq struct {
	Token string `json:"token"`
}

func VerifyEmail(tokens *service.TokenService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req verifyEmailReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		already, err := tokens.VerifyEmail(r.Context(), req.Token)
		if err != nil {
			respondError(w, err)
			return
		}
		msg := service.VerificationSuccessMessage
		if already {
			msg = service.AlreadyVerifiedMessage
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"message":     msg,
			"success":     true,
			"is_verified": true,
		})
	}
}

type resendVerificationReq struct {
	Email string `json:"email"`
}

func ResendVerification(tokens *service.TokenService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resendVerificationReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		already, err := tokens.ResendVerification(r.Context(), req.Email)
		if err != nil {
			respondError(w, err)
			return
		}
		if already {
			respondJSON(w, http.StatusOK, map[string]any{
				"message":     service.AlreadyVerifiedMessage,
				"success":     true,
				"is_verified": true,
			})
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"message": service.VerificationRequestMessage,
			"success": true,
		})
	}
}
