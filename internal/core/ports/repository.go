package ports

import (
	"context"
	"time"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/domain"
)

// DataProvider bundles the repositories of one deployment mode. The fixture
// provider and the PostgreSQL provider both implement it; main picks one.
type DataProvider interface {
	Clinics() ClinicRepository
	Patients() PatientRepository
	Staff() StaffRepository
	TreatmentItems() TreatmentItemRepository
	TreatmentPlans() TreatmentPlanRepository
	Chat() ChatRepository
	Ping(ctx context.Context) error
}

type ClinicRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Clinic, error)
}

type PatientRepository interface {
	// FindByCredentials returns the patient whose number and current passcode
	// both match. Expiry is checked by the caller.
	FindByCredentials(ctx context.Context, patientNumber, passcode string) (*domain.Patient, error)
	FindByID(ctx context.Context, id string) (*domain.Patient, error)
	ListByClinic(ctx context.Context, clinicID string) ([]domain.Patient, error)
	Create(ctx context.Context, patient domain.Patient) error
	UpdatePasscode(ctx context.Context, id, passcode string, expiresAt, updatedAt time.Time) error
}

type StaffRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.Staff, error)
	FindByID(ctx context.Context, id string) (*domain.Staff, error)
	ListByClinic(ctx context.Context, clinicID string, approved bool) ([]domain.Staff, error)
	// Create stores a new staff record together with the outbox payload that
	// announces the registration.
	Create(ctx context.Context, staff domain.Staff, outboxPayload []byte) error
	Approve(ctx context.Context, id string, at time.Time) error
	DeletePending(ctx context.Context, id string) error
}

type TreatmentItemRepository interface {
	ListByClinic(ctx context.Context, clinicID string) ([]domain.TreatmentItem, error)
	Count(ctx context.Context, clinicID string) (int, error)
	Create(ctx context.Context, items ...domain.TreatmentItem) error
	SetActive(ctx context.Context, id string, active bool, at time.Time) error
	Delete(ctx context.Context, id string) error
}

type TreatmentPlanRepository interface {
	FindByPatient(ctx context.Context, patientID string) (*domain.TreatmentPlan, error)
	FindByID(ctx context.Context, id string) (*domain.TreatmentPlan, error)
	Create(ctx context.Context, plan domain.TreatmentPlan) error
	// Save replaces the plan header and its full item list.
	Save(ctx context.Context, plan domain.TreatmentPlan) error
}

type ChatRepository interface {
	// Recent returns at most limit messages, newest first.
	Recent(ctx context.Context, patientID string, limit int) ([]domain.ChatMessage, error)
	// Transcript returns every message, oldest first.
	Transcript(ctx context.Context, patientID string) ([]domain.ChatMessage, error)
	Append(ctx context.Context, msg domain.ChatMessage) error
	// Summaries returns summaries newest first.
	Summaries(ctx context.Context, patientID string) ([]domain.ChatSummary, error)
	SaveSummary(ctx context.Context, summary domain.ChatSummary) error
}
