package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/domain"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/ports"
)

type contextKey string

const sessionKey contextKey = "session"

// SessionMiddleware resolves the bearer token of each request into the
// session it was issued for.
type SessionMiddleware struct {
	sessions ports.SessionService
	log      *zap.Logger
}

func NewSessionMiddleware(sessions ports.SessionService, log *zap.Logger) *SessionMiddleware {
	return &SessionMiddleware{sessions: sessions, log: log}
}

// WithSession stores session in ctx. Handlers read it back with SessionFrom.
func WithSession(ctx context.Context, session *domain.Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// SessionFrom returns the session resolved for this request, or nil.
func SessionFrom(ctx context.Context) *domain.Session {
	session, _ := ctx.Value(sessionKey).(*domain.Session)
	return session
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func (m *SessionMiddleware) RequireSession(next http.Handler) http.Handler {
	return m.require(func(*domain.Session) bool { return true }, next)
}

func (m *SessionMiddleware) RequirePatient(next http.Handler) http.Handler {
	return m.require((*domain.Session).IsPatient, next)
}

func (m *SessionMiddleware) RequireStaff(next http.Handler) http.Handler {
	return m.require((*domain.Session).IsStaff, next)
}

func (m *SessionMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return m.require((*domain.Session).IsAdmin, next)
}

func (m *SessionMiddleware) require(allowed func(*domain.Session) bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := BearerToken(r)
		if !ok {
			m.log.Debug("missing or malformed authorization header", zap.String("path", r.URL.Path))
			deny(w, http.StatusUnauthorized, "authentication required")
			return
		}

		session, err := m.sessions.Resolve(r.Context(), token)
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
			deny(w, http.StatusUnauthorized, "session expired or invalid")
			return
		case err != nil:
			m.log.Error("session lookup failed", zap.Error(err))
			deny(w, http.StatusServiceUnavailable, "service temporarily unavailable, please retry later")
			return
		}

		if !allowed(session) {
			m.log.Info("access denied",
				zap.String("user_id", session.User.ID),
				zap.String("role", string(session.User.Role)),
				zap.String("path", r.URL.Path),
			)
			deny(w, http.StatusForbidden, "forbidden")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
	})
}

func deny(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
