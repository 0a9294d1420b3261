package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/domain"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/ports"
)

// MockPatientRepository implements ports.PatientRepository in memory.
type MockPatientRepository struct {
	mu sync.RWMutex

	patients map[string]domain.Patient

	UpdatePasscodeCalls []string

	FindError           error
	CreateError         error
	UpdatePasscodeError error
}

var _ ports.PatientRepository = (*MockPatientRepository)(nil)

func NewMockPatientRepository() *MockPatientRepository {
	return &MockPatientRepository{patients: make(map[string]domain.Patient)}
}

func (m *MockPatientRepository) Seed(patients ...domain.Patient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range patients {
		m.patients[p.ID] = p
	}
}

// Get returns the stored record, for assertions.
func (m *MockPatientRepository) Get(id string) (domain.Patient, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.patients[id]
	return p, ok
}

func (m *MockPatientRepository) FindByCredentials(ctx context.Context, patientNumber, passcode string) (*domain.Patient, error) {
	if m.FindError != nil {
		return nil, m.FindError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.patients {
		if p.PatientNumber == patientNumber && p.CurrentPasscode == passcode {
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockPatientRepository) FindByID(ctx context.Context, id string) (*domain.Patient, error) {
	if m.FindError != nil {
		return nil, m.FindError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (m *MockPatientRepository) ListByClinic(ctx context.Context, clinicID string) ([]domain.Patient, error) {
	if m.FindError != nil {
		return nil, m.FindError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Patient, 0)
	for _, p := range m.patients {
		if p.ClinicID == clinicID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MockPatientRepository) Create(ctx context.Context, patient domain.Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateError != nil {
		return m.CreateError
	}
	for _, p := range m.patients {
		if p.ClinicID == patient.ClinicID && p.PatientNumber == patient.PatientNumber {
			return domain.ErrConflict
		}
	}
	m.patients[patient.ID] = patient
	return nil
}

func (m *MockPatientRepository) UpdatePasscode(ctx context.Context, id, passcode string, expiresAt, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpdatePasscodeCalls = append(m.UpdatePasscodeCalls, id)
	if m.UpdatePasscodeError != nil {
		return m.UpdatePasscodeError
	}
	p, ok := m.patients[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.CurrentPasscode = passcode
	p.PasscodeExpiresAt = expiresAt
	p.UpdatedAt = updatedAt
	m.patients[id] = p
	return nil
}
