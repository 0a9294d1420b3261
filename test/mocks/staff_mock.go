package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/domain"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/ports"
)

// MockStaffRepository implements ports.StaffRepository for testing the
// staff login and registration flows.
type MockStaffRepository struct {
	mu sync.RWMutex

	staff map[string]domain.Staff

	// Outbox payloads passed to Create, in call order.
	OutboxPayloads   [][]byte
	FindByEmailCalls []string

	FindByEmailError error
	CreateError      error
	ApproveError     error
	DeleteError      error
}

var _ ports.StaffRepository = (*MockStaffRepository)(nil)

func NewMockStaffRepository() *MockStaffRepository {
	return &MockStaffRepository{staff: make(map[string]domain.Staff)}
}

func (m *MockStaffRepository) Seed(members ...domain.Staff) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range members {
		m.staff[s.ID] = s
	}
}

// Get returns the stored record, for assertions.
func (m *MockStaffRepository) Get(id string) (domain.Staff, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.staff[id]
	return s, ok
}

func (m *MockStaffRepository) FindByEmail(ctx context.Context, email string) (*domain.Staff, error) {
	m.mu.Lock()
	m.FindByEmailCalls = append(m.FindByEmailCalls, email)
	m.mu.Unlock()

	if m.FindByEmailError != nil {
		return nil, m.FindByEmailError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.staff {
		if s.Email == email {
			return &s, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockStaffRepository) FindByID(ctx context.Context, id string) (*domain.Staff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.staff[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (m *MockStaffRepository) ListByClinic(ctx context.Context, clinicID string, approved bool) ([]domain.Staff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Staff, 0)
	for _, s := range m.staff {
		if s.ClinicID == clinicID && s.Approved == approved {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MockStaffRepository) Create(ctx context.Context, staff domain.Staff, outboxPayload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateError != nil {
		return m.CreateError
	}
	for _, s := range m.staff {
		if s.Email == staff.Email {
			return domain.ErrConflict
		}
	}
	m.staff[staff.ID] = staff
	m.OutboxPayloads = append(m.OutboxPayloads, outboxPayload)
	return nil
}

func (m *MockStaffRepository) Approve(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ApproveError != nil {
		return m.ApproveError
	}
	s, ok := m.staff[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.Approved = true
	s.UpdatedAt = at
	m.staff[id] = s
	return nil
}

func (m *MockStaffRepository) DeletePending(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.DeleteError != nil {
		return m.DeleteError
	}
	s, ok := m.staff[id]
	if !ok || s.Approved {
		return domain.ErrNotFound
	}
	delete(m.staff, id)
	return nil
}
