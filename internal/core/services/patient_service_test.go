package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/domain"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/validation"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/metrics"
	"github.com/AchilleasB/planbee/clinic-portal-service/test/mocks"
)

func newPatientService(repo *mocks.MockPatientRepository) *PatientService {
	svc := NewPatientService(repo, metrics.NewCollector("test"), zap.NewNop())
	svc.now = fixedClock(testNow)
	return svc
}

func TestPatientService_List(t *testing.T) {
	repo := mocks.NewMockPatientRepository()
	second := mocks.CreateTestPatient(testNow)
	second.ID, second.PatientNumber, second.Name = "patient-002", "54321", "佐藤花子"
	other := mocks.CreateTestPatient(testNow)
	other.ID, other.ClinicID = "patient-900", "other-clinic"
	repo.Seed(mocks.CreateTestPatient(testNow), second, other)

	tests := []struct {
		name   string
		search string
		want   int
	}{
		{name: "empty_search_returns_clinic_patients", search: "", want: 2},
		{name: "by_name", search: "佐藤", want: 1},
		{name: "by_number", search: "123", want: 1},
		{name: "no_match", search: "鈴木", want: 0},
	}

	svc := newPatientService(repo)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.List(context.Background(), mocks.TestClinicID, tt.search)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("expected %d patients, got %d", tt.want, len(got))
			}
		})
	}
}

func TestPatientService_Create(t *testing.T) {
	tests := []struct {
		name      string
		input     validation.NewPatient
		wantField string
	}{
		{name: "generates_number_and_passcode", input: validation.NewPatient{Name: "山田花子"}},
		{name: "uses_given_number_and_passcode", input: validation.NewPatient{Name: "山田花子", PatientNumber: "22222", Passcode: "222222"}},
		{name: "missing_name", input: validation.NewPatient{}, wantField: "name"},
		{name: "bad_passcode", input: validation.NewPatient{Name: "山田花子", Passcode: "12"}, wantField: "current_passcode"},
		{name: "number_in_use", input: validation.NewPatient{Name: "山田花子", PatientNumber: "12345"}, wantField: "patient_number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := mocks.NewMockPatientRepository()
			repo.Seed(mocks.CreateTestPatient(testNow))
			svc := newPatientService(repo)

			p, err := svc.Create(context.Background(), mocks.TestClinicID, tt.input)
			if tt.wantField != "" {
				var verrs *validation.Errors
				if !errors.As(err, &verrs) || !verrs.Has(tt.wantField) {
					t.Fatalf("expected validation error on %s, got %v", tt.wantField, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !validation.IsPatientNumber(p.PatientNumber) || !validation.IsPasscode(p.CurrentPasscode) {
				t.Errorf("unexpected credentials %q / %q", p.PatientNumber, p.CurrentPasscode)
			}
			if tt.input.PatientNumber != "" && p.PatientNumber != tt.input.PatientNumber {
				t.Errorf("expected given patient number to be kept")
			}
			if !p.PasscodeExpiresAt.Equal(testNow.Add(time.Hour)) {
				t.Errorf("expected passcode to expire in an hour, got %v", p.PasscodeExpiresAt)
			}
			if _, ok := repo.Get(p.ID); !ok {
				t.Errorf("patient was not stored")
			}
		})
	}
}

func TestPatientService_RefreshPasscode(t *testing.T) {
	repo := mocks.NewMockPatientRepository()
	repo.Seed(mocks.CreateTestPatient(testNow.Add(-time.Hour)))
	svc := newPatientService(repo)

	p, err := svc.RefreshPasscode(context.Background(), mocks.TestClinicID, "patient-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.CurrentPasscode == "123456" {
		t.Errorf("expected a new passcode")
	}
	if !p.PasscodeValidAt(testNow) {
		t.Errorf("refreshed passcode must be valid now")
	}

	if _, err := svc.RefreshPasscode(context.Background(), "other-clinic", "patient-001"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected other clinics to get not found, got %v", err)
	}
}
