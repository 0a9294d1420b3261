package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/domain"
	"github.com/AchilleasB/planbee/clinic-portal-service/test/mocks"
)

type stubSessions struct {
	sessions map[string]*domain.Session
	err      error
}

func (s stubSessions) Resolve(_ context.Context, token string) (*domain.Session, error) {
	if s.err != nil {
		return nil, s.err
	}
	if session, ok := s.sessions[token]; ok {
		return session, nil
	}
	return nil, domain.ErrSessionNotFound
}

func (s stubSessions) Logout(context.Context, string) error { return nil }

func newTestMiddleware(err error) *SessionMiddleware {
	return NewSessionMiddleware(stubSessions{
		sessions: map[string]*domain.Session{
			"patient":   mocks.PatientSession(mocks.CreateTestPatient(time.Now().Add(time.Hour))),
			"hygienist": mocks.StaffSession(mocks.CreateTestStaff("staff-001", domain.StaffRoleHygienist)),
			"admin":     mocks.StaffSession(mocks.CreateTestStaff("staff-002", domain.StaffRoleAdmin)),
		},
		err: err,
	}, zap.NewNop())
}

func TestSessionMiddleware_Guards(t *testing.T) {
	m := newTestMiddleware(nil)

	tests := []struct {
		name       string
		guard      func(http.Handler) http.Handler
		header     string
		wantStatus int
	}{
		{"no header", m.RequireSession, "", http.StatusUnauthorized},
		{"basic scheme", m.RequireSession, "Basic patient", http.StatusUnauthorized},
		{"empty bearer", m.RequireSession, "Bearer ", http.StatusUnauthorized},
		{"unknown token", m.RequireSession, "Bearer nope", http.StatusUnauthorized},
		{"any session", m.RequireSession, "Bearer patient", http.StatusOK},
		{"lowercase scheme", m.RequireSession, "bearer hygienist", http.StatusOK},
		{"patient route with patient", m.RequirePatient, "Bearer patient", http.StatusOK},
		{"patient route with staff", m.RequirePatient, "Bearer hygienist", http.StatusForbidden},
		{"staff route with patient", m.RequireStaff, "Bearer patient", http.StatusForbidden},
		{"staff route with hygienist", m.RequireStaff, "Bearer hygienist", http.StatusOK},
		{"admin route with hygienist", m.RequireAdmin, "Bearer hygienist", http.StatusForbidden},
		{"admin route with admin", m.RequireAdmin, "Bearer admin", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen *domain.Session
			h := tt.guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = SessionFrom(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantStatus == http.StatusOK && seen == nil {
				t.Error("expected session in request context")
			}
			if tt.wantStatus != http.StatusOK && seen != nil {
				t.Error("handler must not run when access is denied")
			}
		})
	}
}

func TestSessionMiddleware_StoreFailure(t *testing.T) {
	m := newTestMiddleware(domain.External("load session", errors.New("redis down")))

	h := m.RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer patient")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestSessionFrom_Empty(t *testing.T) {
	if SessionFrom(context.Background()) != nil {
		t.Error("expected nil session for bare context")
	}
}

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("listed origin gets credentials", func(t *testing.T) {
		h := CORSMiddleware([]string{"https://portal.example.com"})(next)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://portal.example.com")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://portal.example.com" {
			t.Errorf("unexpected allow-origin %q", got)
		}
		if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
			t.Error("expected credentials allowed")
		}
	})

	t.Run("wildcard without credentials", func(t *testing.T) {
		h := CORSMiddleware([]string{"*"})(next)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://other.example.com")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("expected *, got %q", got)
		}
		if rec.Header().Get("Access-Control-Allow-Credentials") != "" {
			t.Error("wildcard must not allow credentials")
		}
	})

	t.Run("unlisted origin", func(t *testing.T) {
		h := CORSMiddleware([]string{"https://portal.example.com"})(next)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Header().Get("Access-Control-Allow-Origin") != "" {
			t.Error("unlisted origin must not be allowed")
		}
	})

	t.Run("preflight", func(t *testing.T) {
		h := CORSMiddleware([]string{"*"})(next)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/chat", nil))
		if rec.Code != http.StatusNoContent {
			t.Errorf("expected 204, got %d", rec.Code)
		}
	})
}
