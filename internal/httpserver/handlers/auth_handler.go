package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"authcore/internal/auth"
	"authcore/internal/service"
)

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
}

func Register(accounts *service.AccountService, tokens *service.TokenService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		ip, _ := clientInfo(r)
		lg.Infow("registration attempt", "email", req.Email, "ip", ip)
		u, err := accounts.Register(r.Context(), service.RegisterInput{
			Name:     req.Name,
			Email:    req.Email,
			Mobile:   req.Mobile,
			Password: req.Password,
		})
		if err != nil {
			respondError(w, err)
			return
		}
		// The verification link is best-effort; a send failure never unwinds
		// the registration.
		if err := tokens.SendVerification(r.Context(), u); err != nil {
			lg.Warnw("verification send after register failed", "user_id", u.ID, "error", err)
		}
		respondJSON(w, http.StatusCreated, u)
	}
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResp struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func Login(accounts *service.AccountService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		ip, userAgent := clientInfo(r)
		res, err := accounts.Login(r.Context(), req.Email, req.Password, ip, userAgent)
		if err != nil {
			lg.Infow("login failed", "email", req.Email, "ip", ip)
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, tokenResp{
			AccessToken: res.Token,
			TokenType:   "bearer",
			ExpiresIn:   res.ExpiresIn,
		})
	}
}

func Logout(sessions *service.SessionService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := auth.ClaimsFromContext(r.Context())
		if err := sessions.Close(r.Context(), claims.TokenID); err != nil {
			respondError(w, err)
			return
		}
		lg.Infow("logout", "user_id", claims.Subject)
		respondJSON(w, http.StatusOK, map[string]string{"message": "successfully logged out"})
	}
}

func Me() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, auth.UserFromContext(r.Context()))
	}
}

type updateMeReq struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Mobile   *string `json:"mobile,omitempty"`
	Password *string `json:"password,omitempty"`
}

func UpdateMe(accounts *service.AccountService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateMeReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		u, err := accounts.UpdateProfile(r.Context(), auth.Subject(r.Context()), service.UpdateProfileInput{
			Name:     req.Name,
			Email:    req.Email,
			Mobile:   req.Mobile,
			Password: req.Password,
		})
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, u)
	}
}

func VerificationStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := auth.UserFromContext(r.Context())
		respondJSON(w, http.StatusOK, map[string]any{
			"user_id":     u.ID,
			"email":       u.Email,
			"is_verified": u.IsEmailVerified,
		})
	}
}
