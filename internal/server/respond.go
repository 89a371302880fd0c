package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"fleetonboard/pkg/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// authenticated resolves the bearer token to a user and rejects the
// request with 401 otherwise.
func (s *Server) authenticated(next func(http.ResponseWriter, *http.Request, domain.User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		user, ok := s.app.UserFromToken(token)
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid or expired session")
			return
		}
		next(w, r, user)
	}
}

// adminOnly layers a role check on top of authenticated: a valid session
// without the admin grant gets 403, not 401.
func (s *Server) adminOnly(next func(http.ResponseWriter, *http.Request, domain.User)) http.HandlerFunc {
	return s.authenticated(func(w http.ResponseWriter, r *http.Request, user domain.User) {
		// A failed grant lookup denies access rather than erroring: the
		// role table is the sole authority and absence of proof is refusal.
		isAdmin, err := s.app.HasRole(user.ID, domain.RoleAdmin)
		if err != nil || !isAdmin {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}
		next(w, r, user)
	})
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
