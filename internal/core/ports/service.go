package ports

import (
	"context"
	"io"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/domain"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/validation"
)

type PatientAuthService interface {
	Login(ctx context.Context, in validation.PatientLogin) (*domain.Session, error)
}

type StaffAuthService interface {
	Login(ctx context.Context, in validation.StaffLogin) (*domain.Session, error)
	GoogleAuthURL() (url, state string, err error)
	LoginWithGoogle(ctx context.Context, code string) (*domain.Session, error)
}

type SessionService interface {
	Resolve(ctx context.Context, token string) (*domain.Session, error)
	Logout(ctx context.Context, token string) error
}

type RegistrationService interface {
	Register(ctx context.Context, in validation.StaffRegistration) (*domain.Staff, error)
	ListPending(ctx context.Context, actor *domain.Session) ([]domain.Staff, error)
	ListApproved(ctx context.Context, actor *domain.Session) ([]domain.Staff, error)
	Approve(ctx context.Context, actor *domain.Session, staffID string) error
	Reject(ctx context.Context, actor *domain.Session, staffID string) error
}

type PatientService interface {
	List(ctx context.Context, clinicID, search string) ([]domain.Patient, error)
	Get(ctx context.Context, clinicID, id string) (*domain.Patient, error)
	Create(ctx context.Context, clinicID string, in validation.NewPatient) (*domain.Patient, error)
	RefreshPasscode(ctx context.Context, clinicID, id string) (*domain.Patient, error)
}

type CatalogService interface {
	List(ctx context.Context, clinicID string) ([]domain.TreatmentItem, error)
	Create(ctx context.Context, clinicID string, in validation.NewTreatmentItem) (*domain.TreatmentItem, error)
	Delete(ctx context.Context, clinicID, id string) error
	ToggleActive(ctx context.Context, clinicID, id string) (*domain.TreatmentItem, error)
	Import(ctx context.Context, clinicID string, r io.Reader) ([]domain.TreatmentItem, error)
	Export(ctx context.Context, clinicID string, w io.Writer) error
}

type ChatService interface {
	Send(ctx context.Context, in validation.ChatRequest) (string, error)
	Transcript(ctx context.Context, patientID string) ([]domain.ChatMessage, error)
	Summaries(ctx context.Context, patientID string) ([]domain.ChatSummary, error)
	GenerateSummary(ctx context.Context, actor *domain.Session, patientID string) (*domain.ChatSummary, error)
}

type TreatmentPlanService interface {
	ForPatient(ctx context.Context, patientID string) (*domain.PlanView, error)
	Create(ctx context.Context, actor *domain.Session, patientID string, in domain.PlanInput) (*domain.TreatmentPlan, error)
	Save(ctx context.Context, actor *domain.Session, planID string, in domain.PlanInput) (*domain.TreatmentPlan, error)
}
