package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"authcore/internal/auth"
	"authcore/internal/httpserver/handlers"
	"authcore/internal/metrics"
	"authcore/internal/service"
	"authcore/internal/store"
)

type Deps struct {
	Accounts *service.AccountService
	Sessions *service.SessionService
	Tokens   *service.TokenService
	Guard    *auth.Guard
	Audit    store.AuditRepository
	Logger   *zap.SugaredLogger
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, middleware.Logger)

	r.Post("/v1/auth/register", handlers.Register(d.Accounts, d.Tokens, d.Logger))
	r.Post("/v1/auth/login", handlers.Login(d.Accounts, d.Logger))
	r.Post("/v1/auth/forgot-password", handlers.ForgotPassword(d.Tokens, d.Logger))
	r.Post("/v1/auth/reset-password", handlers.ResetPassword(d.Tokens, d.Logger))
	r.Post("/v1/auth/verify-email", handlers.VerifyEmail(d.Tokens, d.Logger))
	r.Post("/v1/auth/resend-verification", handlers.ResendVerification(d.Tokens, d.Logger))

	r.Group(func(protected chi.Router) {
		protected.Use(auth.RequireAuth(d.Guard))
		protected.Get("/v1/auth/me", handlers.Me())
		protected.Patch("/v1/auth/me", handlers.UpdateMe(d.Accounts))
		protected.Post("/v1/auth/logout", handlers.Logout(d.Sessions, d.Logger))
		protected.Get("/v1/auth/verification-status", handlers.VerificationStatus())

		protected.Group(func(admin chi.Router) {
			admin.Use(auth.RequireAdmin(d.Guard))
			admin.Get("/v1/admin/users", handlers.ListUsers(d.Accounts, d.Logger))
			admin.Get("/v1/admin/users/blocked", handlers.ListBlockedUsers(d.Accounts, d.Logger))
			admin.Post("/v1/admin/users", handlers.CreateUser(d.Accounts, d.Logger))
			admin.Post("/v1/admin/users/{id}/block", handlers.BlockUser(d.Accounts, d.Logger))
			admin.Post("/v1/admin/users/{id}/unblock", handlers.UnblockUser(d.Accounts, d.Logger))
			admin.Post("/v1/admin/users/{id}/suspend", handlers.SuspendUser(d.Accounts, d.Logger))
			admin.Put("/v1/admin/users/{id}/role", handlers.ChangeUserRole(d.Accounts, d.Logger))
			admin.Get("/v1/admin/users/{id}/sessions", handlers.UserSessions(d.Accounts, d.Sessions, d.Logger))
			admin.Post("/v1/admin/users/{id}/logout-all", handlers.LogoutAll(d.Accounts, d.Sessions, d.Logger))
			admin.Get("/v1/admin/stats", handlers.UserStats(d.Accounts, d.Logger))
			admin.Get("/v1/admin/audit", handlers.AuditLogs(d.Audit, d.Logger))
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	return r
}
