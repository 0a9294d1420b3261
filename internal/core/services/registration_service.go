package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/domain"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/ports"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/validation"
)

type RegistrationService struct {
	staff           ports.StaffRepository
	defaultClinicID string
	log             *zap.Logger
	now             func() time.Time
}

var _ ports.RegistrationService = (*RegistrationService)(nil)

func NewRegistrationService(
	staff ports.StaffRepository,
	defaultClinicID string,
	log *zap.Logger,
) *RegistrationService {
	return &RegistrationService{
		staff:           staff,
		defaultClinicID: defaultClinicID,
		log:             log,
		now:             time.Now,
	}
}

// Register creates an unapproved hygienist account. An admin has to approve
// it before the owner can log in.
func (s *RegistrationService) Register(ctx context.Context, in validation.StaffRegistration) (*domain.Staff, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	clinicID := strings.TrimSpace(in.ClinicID)
	if clinicID == "" {
		clinicID = s.defaultClinicID
	}

	now := s.now()
	member := domain.Staff{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Email:        normalizeEmail(in.Email),
		ClinicID:     clinicID,
		Role:         domain.StaffRoleHygienist,
		Approved:     false,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	payload, err := json.Marshal(ports.StaffRegisteredEvent{
		StaffID:      member.ID,
		Name:         member.Name,
		Email:        member.Email,
		ClinicID:     member.ClinicID,
		RegisteredAt: now,
	})
	if err != nil {
		return nil, err
	}

	if err := s.staff.Create(ctx, member, payload); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		return nil, domain.External("create staff", err)
	}

	s.log.Info("staff registered, awaiting approval",
		zap.String("staff_id", member.ID),
		zap.String("clinic_id", member.ClinicID),
	)
	return &member, nil
}

func (s *RegistrationService) ListPending(ctx context.Context, actor *domain.Session) ([]domain.Staff, error) {
	return s.list(ctx, actor, false)
}

func (s *RegistrationService) ListApproved(ctx context.Context, actor *domain.Session) ([]domain.Staff, error) {
	return s.list(ctx, actor, true)
}

func (s *RegistrationService) list(ctx context.Context, actor *domain.Session, approved bool) ([]domain.Staff, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	members, err := s.staff.ListByClinic(ctx, actor.Staff.ClinicID, approved)
	if err != nil {
		return nil, domain.External("list staff", err)
	}
	return members, nil
}

// Approve lets a pending staff member of the admin's clinic log in.
func (s *RegistrationService) Approve(ctx context.Context, actor *domain.Session, staffID string) error {
	target, err := s.pendingTarget(ctx, actor, staffID)
	if err != nil {
		return err
	}
	if err := s.staff.Approve(ctx, target.ID, s.now()); err != nil {
		return domain.External("approve staff", err)
	}

	s.log.Info("staff approved",
		zap.String("staff_id", target.ID),
		zap.String("approved_by", actor.Staff.ID),
	)
	return nil
}

// Reject discards a pending registration.
func (s *RegistrationService) Reject(ctx context.Context, actor *domain.Session, staffID string) error {
	target, err := s.pendingTarget(ctx, actor, staffID)
	if err != nil {
		return err
	}
	if err := s.staff.DeletePending(ctx, target.ID); err != nil {
		return domain.External("reject staff", err)
	}

	s.log.Info("staff registration rejected",
		zap.String("staff_id", target.ID),
		zap.String("rejected_by", actor.Staff.ID),
	)
	return nil
}

func (s *RegistrationService) pendingTarget(ctx context.Context, actor *domain.Session, staffID string) (*domain.Staff, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	target, err := s.staff.FindByID(ctx, staffID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, domain.External("find staff", err)
	}
	if target.ClinicID != actor.Staff.ClinicID {
		return nil, domain.ErrNotFound
	}
	if target.Approved {
		return nil, fmt.Errorf("staff %s is already approved: %w", target.ID, domain.ErrConflict)
	}
	return target, nil
}
