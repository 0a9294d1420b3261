package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/domain"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/ports"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/validation"
)

type TreatmentPlanService struct {
	plans    ports.TreatmentPlanRepository
	patients ports.PatientRepository
	items    ports.TreatmentItemRepository
	log      *zap.Logger
	now      func() time.Time
}

var _ ports.TreatmentPlanService = (*TreatmentPlanService)(nil)

func NewTreatmentPlanService(
	plans ports.TreatmentPlanRepository,
	patients ports.PatientRepository,
	items ports.TreatmentItemRepository,
	log *zap.Logger,
) *TreatmentPlanService {
	return &TreatmentPlanService{plans: plans, patients: patients, items: items, log: log, now: time.Now}
}

// ForPatient returns the patient's plan with catalog details joined in and
// the progress figures the patient dashboard shows.
func (s *TreatmentPlanService) ForPatient(ctx context.Context, patientID string) (*domain.PlanView, error) {
	patient, err := s.findPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	plan, err := s.plans.FindByPatient(ctx, patientID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, domain.External("find treatment plan", err)
	}

	catalog, err := s.catalog(ctx, patient.ClinicID)
	if err != nil {
		return nil, err
	}
	for i := range plan.Items {
		if item, ok := catalog[plan.Items[i].TreatmentItemID]; ok {
			plan.Items[i].TreatmentItem = &item
		}
	}
	sort.SliceStable(plan.Items, func(i, j int) bool { return plan.Items[i].Order < plan.Items[j].Order })

	return BuildPlanView(plan), nil
}

// BuildPlanView derives progress (rounded percentage of completed items),
// upcoming items (pending and scheduled, soonest first) and done items
// (latest completion first).
func BuildPlanView(plan *domain.TreatmentPlan) *domain.PlanView {
	view := &domain.PlanView{
		Plan:     plan,
		Total:    len(plan.Items),
		Upcoming: []domain.TreatmentPlanItem{},
		Done:     []domain.TreatmentPlanItem{},
	}

	for _, item := range plan.Items {
		if item.Completed {
			view.Completed++
			view.Done = append(view.Done, item)
			continue
		}
		if item.ScheduledDate != nil {
			view.Upcoming = append(view.Upcoming, item)
		}
	}
	if view.Total > 0 {
		view.Progress = int(math.Round(float64(view.Completed) / float64(view.Total) * 100))
	}

	sort.SliceStable(view.Upcoming, func(i, j int) bool {
		return view.Upcoming[i].ScheduledDate.Before(*view.Upcoming[j].ScheduledDate)
	})
	sort.SliceStable(view.Done, func(i, j int) bool {
		a, b := doneAt(view.Done[i]), doneAt(view.Done[j])
		if a == nil || b == nil {
			return false
		}
		return a.After(*b)
	})
	return view
}

func doneAt(item domain.TreatmentPlanItem) *time.Time {
	if item.CompletedDate != nil {
		return item.CompletedDate
	}
	return item.ScheduledDate
}

// Create starts the patient's plan. A patient has at most one plan.
func (s *TreatmentPlanService) Create(ctx context.Context, actor *domain.Session, patientID string, in domain.PlanInput) (*domain.TreatmentPlan, error) {
	if !actor.IsStaff() {
		return nil, domain.ErrForbidden
	}
	patient, err := s.staffPatient(ctx, actor, patientID)
	if err != nil {
		return nil, err
	}

	if _, err := s.plans.FindByPatient(ctx, patientID); err == nil {
		return nil, fmt.Errorf("patient %s already has a treatment plan: %w", patientID, domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, domain.External("find treatment plan", err)
	}

	if in.Status == "" {
		in.Status = domain.PlanStatusDraft
	}
	now := s.now()
	items, err := s.buildItems(ctx, patient.ClinicID, in, now)
	if err != nil {
		return nil, err
	}

	plan := domain.TreatmentPlan{
		ID:        uuid.NewString(),
		PatientID: patientID,
		CreatedBy: actor.Staff.ID,
		StaffName: actor.Staff.Name,
		Title:     strings.TrimSpace(in.Title),
		Notes:     strings.TrimSpace(in.Notes),
		Items:     items,
		Status:    in.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.plans.Create(ctx, plan); err != nil {
		return nil, domain.External("create treatment plan", err)
	}

	s.log.Info("treatment plan created", zap.String("plan_id", plan.ID), zap.String("patient_id", patientID))
	return &plan, nil
}

// Save replaces the plan's header fields and item list. Items are renumbered
// in the order given.
func (s *TreatmentPlanService) Save(ctx context.Context, actor *domain.Session, planID string, in domain.PlanInput) (*domain.TreatmentPlan, error) {
	if !actor.IsStaff() {
		return nil, domain.ErrForbidden
	}

	plan, err := s.plans.FindByID(ctx, planID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, domain.External("find treatment plan", err)
	}
	patient, err := s.staffPatient(ctx, actor, plan.PatientID)
	if err != nil {
		return nil, err
	}

	if in.Status == "" {
		in.Status = plan.Status
	}
	now := s.now()
	items, err := s.buildItems(ctx, patient.ClinicID, in, now)
	if err != nil {
		return nil, err
	}

	plan.Title = strings.TrimSpace(in.Title)
	plan.Notes = strings.TrimSpace(in.Notes)
	plan.Status = in.Status
	plan.Items = items
	plan.UpdatedAt = now

	if err := s.plans.Save(ctx, *plan); err != nil {
		return nil, domain.External("save treatment plan", err)
	}
	return plan, nil
}

// buildItems validates the input and enforces that completed_date is only
// set on completed items.
func (s *TreatmentPlanService) buildItems(ctx context.Context, clinicID string, in domain.PlanInput, now time.Time) ([]domain.TreatmentPlanItem, error) {
	var errs validation.Errors
	if !in.Status.Valid() {
		errs.Add("status", "must be draft, active or completed")
	}

	catalog, err := s.catalog(ctx, clinicID)
	if err != nil {
		return nil, err
	}

	items := make([]domain.TreatmentPlanItem, 0, len(in.Items))
	for i, it := range in.Items {
		field := fmt.Sprintf("treatment_items[%d].treatment_item_id", i)
		if _, ok := catalog[it.TreatmentItemID]; !ok {
			errs.Add(field, "must reference a treatment item of this clinic")
		}
		if it.EstimatedSessions < 0 {
			errs.Add(fmt.Sprintf("treatment_items[%d].estimated_sessions", i), "must not be negative")
		}

		id := it.ID
		if id == "" {
			id = uuid.NewString()
		}
		completedDate := it.CompletedDate
		if !it.Completed {
			completedDate = nil
		} else if completedDate == nil {
			stamp := now
			completedDate = &stamp
		}

		items = append(items, domain.TreatmentPlanItem{
			ID:                id,
			TreatmentItemID:   it.TreatmentItemID,
			ToothNumber:       strings.TrimSpace(it.ToothNumber),
			EstimatedSessions: it.EstimatedSessions,
			ScheduledDate:     it.ScheduledDate,
			Notes:             strings.TrimSpace(it.Notes),
			Completed:         it.Completed,
			CompletedDate:     completedDate,
			Order:             i + 1,
		})
	}

	if err := errs.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *TreatmentPlanService) catalog(ctx context.Context, clinicID string) (map[string]domain.TreatmentItem, error) {
	list, err := s.items.ListByClinic(ctx, clinicID)
	if err != nil {
		return nil, domain.External("list treatment items", err)
	}
	byID := make(map[string]domain.TreatmentItem, len(list))
	for _, item := range list {
		byID[item.ID] = item
	}
	return byID, nil
}

func (s *TreatmentPlanService) findPatient(ctx context.Context, patientID string) (*domain.Patient, error) {
	patient, err := s.patients.FindByID(ctx, patientID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, domain.External("find patient", err)
	}
	return patient, nil
}

func (s *TreatmentPlanService) staffPatient(ctx context.Context, actor *domain.Session, patientID string) (*domain.Patient, error) {
	patient, err := s.findPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if patient.ClinicID != actor.Staff.ClinicID {
		return nil, domain.ErrNotFound
	}
	return patient, nil
}
