package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"authcore/internal/apperr"
)

// RequireAuth authenticates the bearer token and stores claims and principal
// in the request context.
func RequireAuth(guard *Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				denyJSON(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			raw := strings.TrimPrefix(h, "Bearer ")
			user, claims, err := guard.Authenticate(r.Context(), raw)
			if err != nil {
				code := http.StatusUnauthorized
				if apperr.KindOf(err) == apperr.KindForbidden {
					code = http.StatusForbidden
				}
				denyJSON(w, code, apperr.PublicMessage(err))
				return
			}
			ctx := WithClaims(r.Context(), claims)
			ctx = WithUser(ctx, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin must be mounted inside a RequireAuth group.
func RequireAdmin(guard *Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil {
				denyJSON(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			if err := guard.RequireAdmin(user); err != nil {
				denyJSON(w, http.StatusForbidden, apperr.PublicMessage(err))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func denyJSON(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
