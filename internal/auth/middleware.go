package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"coachsite/internal/session"
)

type ctxKey struct{}

// WithSession stores the admin session in ctx.
func WithSession(ctx context.Context, s *session.AdminSession) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the admin session set by RequireAdmin.
func FromContext(ctx context.Context) (*session.AdminSession, bool) {
	s, ok := ctx.Value(ctxKey{}).(*session.AdminSession)
	return s, ok && s != nil
}

// TokenFromRequest reads a bearer token, falling back to the admin_token cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

// RequireAdmin rejects requests without a live admin session.
func (s *Service) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r)
		if token == "" {
			unauthorized(w, "authentication required")
			return
		}
		sess, err := s.Authenticate(r.Context(), token)
		if err != nil {
			s.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("rejected admin request")
			unauthorized(w, "invalid or expired session")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
	})
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="admin"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
