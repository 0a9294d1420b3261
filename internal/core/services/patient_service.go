package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/domain"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/passcode"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/ports"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/validation"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/metrics"
)

type PatientService struct {
	patients ports.PatientRepository
	metrics  *metrics.Collector
	log      *zap.Logger
	now      func() time.Time
}

var _ ports.PatientService = (*PatientService)(nil)

func NewPatientService(patients ports.PatientRepository, collector *metrics.Collector, log *zap.Logger) *PatientService {
	return &PatientService{patients: patients, metrics: collector, log: log, now: time.Now}
}

// List returns the clinic's patients whose name (case-insensitive) or
// patient number contains search. An empty search returns everyone.
func (s *PatientService) List(ctx context.Context, clinicID, search string) ([]domain.Patient, error) {
	all, err := s.patients.ListByClinic(ctx, clinicID)
	if err != nil {
		return nil, domain.External("list patients", err)
	}

	search = strings.TrimSpace(search)
	if search == "" {
		return all, nil
	}

	needle := strings.ToLower(search)
	out := make([]domain.Patient, 0, len(all))
	for _, p := range all {
		if strings.Contains(strings.ToLower(p.Name), needle) || strings.Contains(p.PatientNumber, search) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Get returns a patient of the given clinic. Patients of other clinics are
// reported as not found.
func (s *PatientService) Get(ctx context.Context, clinicID, id string) (*domain.Patient, error) {
	p, err := s.patients.FindByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, domain.External("find patient", err)
	}
	if p.ClinicID != clinicID {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (s *PatientService) Create(ctx context.Context, clinicID string, in validation.NewPatient) (*domain.Patient, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	number := in.PatientNumber
	if number == "" {
		generated, err := passcode.GeneratePatientNumber()
		if err != nil {
			return nil, err
		}
		number = generated
	}

	code := in.Passcode
	if code == "" {
		generated, err := passcode.Generate()
		if err != nil {
			return nil, err
		}
		code = generated
	}

	now := s.now()
	p := domain.Patient{
		ID:                uuid.NewString(),
		PatientNumber:     number,
		Name:              strings.TrimSpace(in.Name),
		BirthDate:         in.BirthDate,
		ClinicID:          clinicID,
		CurrentPasscode:   code,
		PasscodeExpiresAt: passcode.ExpiresAt(now),
		Email:             strings.TrimSpace(in.Email),
		Phone:             strings.TrimSpace(in.Phone),
		Address:           strings.TrimSpace(in.Address),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.patients.Create(ctx, p); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			var errs validation.Errors
			errs.Add("patient_number", "is already in use")
			return nil, errs.Err()
		}
		return nil, domain.External("create patient", err)
	}

	s.log.Info("patient created", zap.String("patient_id", p.ID), zap.String("clinic_id", clinicID))
	return &p, nil
}

// RefreshPasscode issues a new passcode valid for 60 minutes, on staff request.
func (s *PatientService) RefreshPasscode(ctx context.Context, clinicID, id string) (*domain.Patient, error) {
	p, err := s.Get(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}

	code, err := passcode.Rotate(p.CurrentPasscode)
	if err != nil {
		return nil, err
	}
	now := s.now()
	expiresAt := passcode.ExpiresAt(now)

	if err := s.patients.UpdatePasscode(ctx, p.ID, code, expiresAt, now); err != nil {
		return nil, domain.External("refresh passcode", err)
	}
	if s.metrics != nil {
		s.metrics.PasscodeRotated.Inc()
	}

	p.CurrentPasscode = code
	p.PasscodeExpiresAt = expiresAt
	p.UpdatedAt = now
	return p, nil
}
