package session

import (
	"context"
	"sync"
	"time"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/domain"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/ports"
)

// MemoryStore holds sessions in process. Used when Redis is not configured;
// sessions do not survive a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
	now      func() time.Time
}

var _ ports.SessionStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]domain.Session), now: time.Now}
}

func (s *MemoryStore) Save(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpired()
	s.sessions[session.Token] = *session
	return nil
}

func (s *MemoryStore) Get(_ context.Context, token string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[token]
	if !ok || !s.now().Before(session.ExpiresAt) {
		return nil, domain.ErrSessionNotFound
	}
	return &session, nil
}

func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

// evictExpired must be called with the write lock held.
func (s *MemoryStore) evictExpired() {
	now := s.now()
	for token, session := range s.sessions {
		if !now.Before(session.ExpiresAt) {
			delete(s.sessions, token)
		}
	}
}
