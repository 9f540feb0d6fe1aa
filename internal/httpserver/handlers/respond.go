package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"authcore/internal/apperr"
)

func respondJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func respondError(w http.ResponseWriter, err error) {
	respondJSON(w, statusOf(err), map[string]string{"error": apperr.PublicMessage(err)})
}

func statusOf(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindInvalidInput:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// clientInfo extracts caller IP (honoring X-Forwarded-For) and user agent.
func clientInfo(r *http.Request) (ip, userAgent string) {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip = strings.TrimSpace(strings.Split(fwd, ",")[0])
	} else {
		ip = r.RemoteAddr
		if i := strings.LastIndex(ip, ":"); i > 0 {
			ip = ip[:i]
		}
	}
	userAgent = r.Header.Get("User-Agent")
	if userAgent == "" {
		userAgent = "unknown"
	}
	return ip, userAgent
}
