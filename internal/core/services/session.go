package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/domain"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/ports"
)

// Sessions issues opaque bearer tokens and resolves them back to the
// identity that logged in.
type Sessions struct {
	store ports.SessionStore
	ttl   time.Duration
	now   func() time.Time
}

var _ ports.SessionService = (*Sessions)(nil)

func NewSessions(store ports.SessionStore, ttl time.Duration) *Sessions {
	return &Sessions{store: store, ttl: ttl, now: time.Now}
}

func (s *Sessions) open(ctx context.Context, user domain.AuthUser, patient *domain.Patient, staff *domain.Staff) (*domain.Session, error) {
	token, err := randomToken(32)
	if err != nil {
		return nil, err
	}

	now := s.now()
	session := &domain.Session{
		Token:     token,
		User:      user,
		Patient:   patient,
		Staff:     staff,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.Save(ctx, session); err != nil {
		return nil, domain.External("save session", err)
	}
	return session, nil
}

func (s *Sessions) Resolve(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, domain.ErrSessionNotFound
	}

	session, err := s.store.Get(ctx, token)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, domain.External("load session", err)
	}
	if !s.now().Before(session.ExpiresAt) {
		_ = s.store.Delete(ctx, token)
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *Sessions) Logout(ctx context.Context, token string) error {
	if err := s.store.Delete(ctx, token); err != nil {
		return domain.External("delete session", err)
	}
	return nil
}

// randomToken returns n random bytes, URL-safe base64 encoded.
func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
