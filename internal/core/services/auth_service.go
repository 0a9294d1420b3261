package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/domain"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/passcode"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/ports"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/validation"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/metrics"
)

// dummyHash is compared against when an email is unknown so the response time
// does not reveal which addresses are registered.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("planbee-dummy-password"), bcrypt.DefaultCost)

type PatientAuthService struct {
	patients ports.PatientRepository
	sessions *Sessions
	metrics  *metrics.Collector
	log      *zap.Logger
	now      func() time.Time
}

var _ ports.PatientAuthService = (*PatientAuthService)(nil)

func NewPatientAuthService(
	patients ports.PatientRepository,
	sessions *Sessions,
	collector *metrics.Collector,
	log *zap.Logger,
) *PatientAuthService {
	return &PatientAuthService{
		patients: patients,
		sessions: sessions,
		metrics:  collector,
		log:      log,
		now:      time.Now,
	}
}

// Login checks a patient number and passcode. On success the passcode is
// rotated and expires 60 minutes from now; the returned session carries the
// refreshed patient record. Any mismatch, including an expired passcode,
// yields domain.ErrInvalidCredentials.
//
// Rotation is a read followed by a write without a transaction: two racing
// logins for the same patient may both succeed, with the later write winning.
func (s *PatientAuthService) Login(ctx context.Context, in validation.PatientLogin) (*domain.Session, error) {
	session, err := s.login(ctx, in)
	s.metrics.Login("patient", err)
	return session, err
}

func (s *PatientAuthService) login(ctx context.Context, in validation.PatientLogin) (*domain.Session, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	patient, err := s.patients.FindByCredentials(ctx, in.PatientNumber, in.Passcode)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, domain.External("find patient", err)
	}

	now := s.now()
	if !patient.PasscodeValidAt(now) {
		s.log.Debug("expired passcode presented", zap.String("patient_id", patient.ID))
		return nil, domain.ErrInvalidCredentials
	}

	code, err := passcode.Rotate(patient.CurrentPasscode)
	if err != nil {
		return nil, err
	}
	expiresAt := passcode.ExpiresAt(now)

	if err := s.patients.UpdatePasscode(ctx, patient.ID, code, expiresAt, now); err != nil {
		return nil, domain.External("rotate passcode", err)
	}
	if s.metrics != nil {
		s.metrics.PasscodeRotated.Inc()
	}

	refreshed := *patient
	refreshed.CurrentPasscode = code
	refreshed.PasscodeExpiresAt = expiresAt
	refreshed.UpdatedAt = now

	user := domain.AuthUser{
		ID:        refreshed.ID,
		Role:      domain.RolePatient,
		PatientID: refreshed.ID,
	}

	s.log.Info("patient logged in", zap.String("patient_id", refreshed.ID))
	return s.sessions.open(ctx, user, &refreshed, nil)
}

type StaffAuthService struct {
	staff    ports.StaffRepository
	identity ports.IdentityVerifier
	sessions *Sessions
	metrics  *metrics.Collector
	log      *zap.Logger
}

var _ ports.StaffAuthService = (*StaffAuthService)(nil)

func NewStaffAuthService(
	staff ports.StaffRepository,
	identity ports.IdentityVerifier,
	sessions *Sessions,
	collector *metrics.Collector,
	log *zap.Logger,
) *StaffAuthService {
	return &StaffAuthService{
		staff:    staff,
		identity: identity,
		sessions: sessions,
		metrics:  collector,
		log:      log,
	}
}

// Login authenticates staff by email and password. Only approved staff
// may log in; every failure is reported as domain.ErrInvalidCredentials.
func (s *StaffAuthService) Login(ctx context.Context, in validation.StaffLogin) (*domain.Session, error) {
	session, err := s.login(ctx, in)
	s.metrics.Login("staff", err)
	return session, err
}

func (s *StaffAuthService) login(ctx context.Context, in validation.StaffLogin) (*domain.Session, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	member, err := s.staff.FindByEmail(ctx, normalizeEmail(in.Email))
	if errors.Is(err, domain.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(in.Password))
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, domain.External("find staff", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(in.Password)); err != nil {
		s.log.Warn("failed staff login attempt", zap.String("staff_id", member.ID))
		return nil, domain.ErrInvalidCredentials
	}

	return s.openApproved(ctx, member)
}

// GoogleAuthURL returns the consent screen URL and the CSRF state the
// callback must echo back.
func (s *StaffAuthService) GoogleAuthURL() (string, string, error) {
	state, err := randomToken(32)
	if err != nil {
		return "", "", err
	}
	return s.identity.AuthURL(state), state, nil
}

// LoginWithGoogle completes single sign-on. A verified Google account still
// needs an approved staff record with the same email.
func (s *StaffAuthService) LoginWithGoogle(ctx context.Context, code string) (*domain.Session, error) {
	session, err := s.loginWithGoogle(ctx, code)
	s.metrics.Login("google", err)
	return session, err
}

func (s *StaffAuthService) loginWithGoogle(ctx context.Context, code string) (*domain.Session, error) {
	if strings.TrimSpace(code) == "" {
		return nil, domain.ErrInvalidCredentials
	}

	email, err := s.identity.VerifyCode(ctx, code)
	if err != nil {
		s.log.Warn("google identity verification failed", zap.Error(err))
		return nil, domain.ErrInvalidCredentials
	}

	member, err := s.staff.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		s.log.Info("google login for unregistered email")
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, domain.External("find staff", err)
	}

	return s.openApproved(ctx, member)
}

func (s *StaffAuthService) openApproved(ctx context.Context, member *domain.Staff) (*domain.Session, error) {
	if !member.Approved {
		s.log.Info("login refused for unapproved staff", zap.String("staff_id", member.ID))
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidCredentials, domain.ErrStaffNotApproved)
	}

	user := domain.AuthUser{
		ID:      member.ID,
		Email:   member.Email,
		Role:    domain.RoleStaff,
		StaffID: member.ID,
	}

	s.log.Info("staff logged in", zap.String("staff_id", member.ID), zap.String("role", string(member.Role)))
	return s.sessions.open(ctx, user, nil, member)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
