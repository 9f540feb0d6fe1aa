package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"authcore/internal/auth"
	"authcore/internal/models"
	"authcore/internal/service"
	"authcore/internal/store"
)

func ListUsers(accounts *service.AccountService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		includeBlocked := r.URL.Query().Get("include_blocked") != "false"
		users, err := accounts.List(r.Context(), includeBlocked)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, users)
	}
}

func ListBlockedUsers(accounts *service.AccountService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := accounts.ListBlocked(r.Context())
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, users)
	}
}

type adminCreateUserReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func CreateUser(accounts *service.AccountService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req adminCreateUserReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if req.Role == "" {
			req.Role = models.RoleUser
		}
		actor := auth.UserFromContext(r.Context())
		u, err := accounts.AdminCreate(r.Context(), actor, service.AdminCreateInput{
			RegisterInput: service.RegisterInput{
				Name:     req.Name,
				Email:    req.Email,
				Mobile:   req.Mobile,
				Password: req.Password,
			},
			Role: req.Role,
		})
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, u)
	}
}

type blockUserReq struct {
	Reason *string `json:"reason,omitempty"`
}

func changeStatus(accounts *service.AccountService, newStatus string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		targetID := chi.URLParam(r, "id")
		actor := auth.UserFromContext(r.Context())
		var reason *string
		if newStatus != models.StatusActive && r.Body != nil {
			var req blockUserReq
			// Body is optional for moderation actions.
			_ = json.NewDecoder(r.Body).Decode(&req)
			reason = req.Reason
		}
		u, err := accounts.ChangeStatus(r.Context(), actor, targetID, newStatus, reason)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"user": u})
	}
}

func BlockUser(accounts *service.AccountService, lg *zap.SugaredLogger) http.HandlerFunc {
	return changeStatus(accounts, models.StatusBlocked)
}

func SuspendUser(accounts *service.AccountService, lg *zap.SugaredLogger) http.HandlerFunc {
	return changeStatus(accounts, models.StatusSuspended)
}

func UnblockUser(accounts *service.AccountService, lg *zap.SugaredLogger) http.HandlerFunc {
	return changeStatus(accounts, models.StatusActive)
}

type changeRoleReq struct {
	Role string `json:"role"`
}

func ChangeUserRole(accounts *service.AccountService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req changeRoleReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		actor := auth.UserFromContext(r.Context())
		u, err := accounts.ChangeRole(r.Context(), actor, chi.URLParam(r, "id"), req.Role)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"user": u})
	}
}

func UserStats(accounts *service.AccountService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := accounts.Stats(r.Context())
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, stats)
	}
}

func UserSessions(accounts *service.AccountService, sessions *service.SessionService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		targetID := chi.URLParam(r, "id")
		if _, err := accounts.Get(r.Context(), targetID); err != nil {
			respondError(w, err)
			return
		}
		list, err := sessions.ListActive(r.Context(), targetID)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}

func LogoutAll(accounts *service.AccountService, sessions *service.SessionService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		targetID := chi.URLParam(r, "id")
		if _, err := accounts.Get(r.Context(), targetID); err != nil {
			respondError(w, err)
			return
		}
		actor := auth.UserFromContext(r.Context())
		count, err := sessions.CloseAll(r.Context(), actor, targetID)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"sessions_ended": count})
	}
}

func AuditLogs(audit store.AuditRepository, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logs, err := audit.Recent(r.Context(), 200)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, logs)
	}
}
