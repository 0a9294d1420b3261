package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/adapters/repository"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/domain"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/validation"
	"github.com/AchilleasB/planbee/clinic-portal-service/test/mocks"
)

func newPlanService(t *testing.T) (*TreatmentPlanService, *repository.FixtureProvider) {
	t.Helper()
	provider := repository.NewFixtureProvider()
	if err := repository.SeedDemoData(provider, testNow); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := NewTreatmentPlanService(provider.TreatmentPlans(), provider.Patients(), provider.TreatmentItems(), zap.NewNop())
	svc.now = fixedClock(testNow)
	return svc, provider
}

func at(d time.Duration) *time.Time {
	t := testNow.Add(d)
	return &t
}

func TestBuildPlanView(t *testing.T) {
	day := 24 * time.Hour
	tests := []struct {
		name         string
		items        []domain.TreatmentPlanItem
		wantProgress int
		wantUpcoming []string
		wantDone     []string
	}{
		{name: "empty_plan", items: nil, wantProgress: 0, wantUpcoming: []string{}, wantDone: []string{}},
		{
			name: "two_of_four_done",
			items: []domain.TreatmentPlanItem{
				{ID: "a", Completed: true, CompletedDate: at(-3 * day)},
				{ID: "b", Completed: true, CompletedDate: at(-1 * day)},
				{ID: "c", ScheduledDate: at(10 * day)},
				{ID: "d", ScheduledDate: at(3 * day)},
			},
			wantProgress: 50,
			wantUpcoming: []string{"d", "c"},
			wantDone:     []string{"b", "a"},
		},
		{
			name: "one_of_three_rounds",
			items: []domain.TreatmentPlanItem{
				{ID: "a", Completed: true, CompletedDate: at(-day)},
				{ID: "b"},
				{ID: "c", ScheduledDate: at(day)},
			},
			wantProgress: 33,
			wantUpcoming: []string{"c"},
			wantDone:     []string{"a"},
		},
		{
			name: "two_of_three_rounds_up",
			items: []domain.TreatmentPlanItem{
				{ID: "a", Completed: true},
				{ID: "b", Completed: true},
				{ID: "c"},
			},
			wantProgress: 67,
			wantUpcoming: []string{},
			wantDone:     []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := BuildPlanView(&domain.TreatmentPlan{Items: tt.items})
			if view.Progress != tt.wantProgress {
				t.Errorf("expected progress %d, got %d", tt.wantProgress, view.Progress)
			}
			if got := ids(view.Upcoming); !equalStrings(got, tt.wantUpcoming) {
				t.Errorf("expected upcoming %v, got %v", tt.wantUpcoming, got)
			}
			if got := ids(view.Done); !equalStrings(got, tt.wantDone) {
				t.Errorf("expected done %v, got %v", tt.wantDone, got)
			}
		})
	}
}

func ids(items []domain.TreatmentPlanItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestTreatmentPlanService_ForPatient(t *testing.T) {
	svc, _ := newPlanService(t)

	view, err := svc.ForPatient(context.Background(), "patient-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Total != 4 || view.Completed != 2 || view.Progress != 50 {
		t.Errorf("unexpected progress: total %d completed %d progress %d", view.Total, view.Completed, view.Progress)
	}
	for _, it := range view.Plan.Items {
		if it.TreatmentItem == nil {
			t.Errorf("item %s is missing catalog details", it.ID)
		}
	}
	if got := ids(view.Upcoming); !equalStrings(got, []string{"plan-item-003", "plan-item-004"}) {
		t.Errorf("unexpected upcoming order %v", got)
	}

	if _, err := svc.ForPatient(context.Background(), "patient-003"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected no plan for patient-003, got %v", err)
	}
}

func TestTreatmentPlanService_CreateAndSave(t *testing.T) {
	svc, _ := newPlanService(t)
	ctx := context.Background()
	staff := mocks.CreateTestStaff("staff-001", domain.StaffRoleHygienist)
	actor := mocks.StaffSession(staff)

	in := domain.PlanInput{
		Title: "初期治療",
		Items: []domain.PlanItemInput{
			{TreatmentItemID: "treatment-001", ScheduledDate: at(24 * time.Hour)},
			{TreatmentItemID: "treatment-002", CompletedDate: at(-time.Hour)},
		},
	}
	plan, err := svc.Create(ctx, actor, "patient-003", in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if plan.Status != domain.PlanStatusDraft || plan.CreatedBy != "staff-001" {
		t.Errorf("unexpected plan header: %+v", plan)
	}
	if plan.Items[0].Order != 1 || plan.Items[1].Order != 2 {
		t.Errorf("items must be numbered in order")
	}
	if plan.Items[1].CompletedDate != nil {
		t.Errorf("completed_date must be cleared on incomplete items")
	}

	if _, err := svc.Create(ctx, actor, "patient-003", in); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected second plan to conflict, got %v", err)
	}

	in.Status = domain.PlanStatusActive
	in.Items = []domain.PlanItemInput{
		{TreatmentItemID: "treatment-002", Completed: true},
		{TreatmentItemID: "treatment-001"},
	}
	saved, err := svc.Save(ctx, actor, plan.ID, in)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.Status != domain.PlanStatusActive || saved.Items[0].TreatmentItemID != "treatment-002" {
		t.Errorf("unexpected saved plan: %+v", saved)
	}
	if saved.Items[0].CompletedDate == nil || !saved.Items[0].CompletedDate.Equal(testNow) {
		t.Errorf("completed item without a date must be stamped now")
	}

	view, err := svc.ForPatient(ctx, "patient-003")
	if err != nil || view.Progress != 50 {
		t.Errorf("expected 50%% progress after save, got %+v, %v", view, err)
	}
}

func TestTreatmentPlanService_Create_Invalid(t *testing.T) {
	svc, _ := newPlanService(t)
	actor := mocks.StaffSession(mocks.CreateTestStaff("staff-001", domain.StaffRoleHygienist))

	_, err := svc.Create(context.Background(), actor, "patient-003", domain.PlanInput{
		Status: "paused",
		Items:  []domain.PlanItemInput{{TreatmentItemID: "treatment-999"}},
	})

	var verrs *validation.Errors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	if !verrs.Has("status") || !verrs.Has("treatment_items[0].treatment_item_id") {
		t.Errorf("unexpected fields: %+v", verrs.Fields)
	}

	patient := mocks.PatientSession(mocks.CreateTestPatient(testNow))
	if _, err := svc.Create(context.Background(), patient, "patient-003", domain.PlanInput{}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected patients to be forbidden, got %v", err)
	}
}
