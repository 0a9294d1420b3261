package mocks

import (
	"time"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/domain"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/ports"
)

const TestClinicID = "hachi-dental-onojo"

// CreateTestPatient returns patient-001 with passcode 123456 valid until expiresAt.
func CreateTestPatient(expiresAt time.Time) domain.Patient {
	return domain.Patient{
		ID:                "patient-001",
		PatientNumber:     "12345",
		Name:              "田中太郎",
		BirthDate:         "1985-05-15",
		ClinicID:          TestClinicID,
		CurrentPasscode:   "123456",
		PasscodeExpiresAt: expiresAt,
	}
}

// CreateTestStaff returns an approved staff member with the given role.
func CreateTestStaff(id string, role domain.StaffRole) domain.Staff {
	return domain.Staff{
		ID:       id,
		Name:     "Staff " + id,
		Email:    id + "@hachi-dental.com",
		ClinicID: TestClinicID,
		Role:     role,
		Approved: true,
	}
}

// StaffSession builds the session a logged-in staff member carries.
func StaffSession(staff domain.Staff) *domain.Session {
	return &domain.Session{
		Token:     "staff-token-" + staff.ID,
		User:      domain.AuthUser{ID: staff.ID, Email: staff.Email, Role: domain.RoleStaff, StaffID: staff.ID},
		Staff:     &staff,
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

// PatientSession builds the session a logged-in patient carries.
func PatientSession(patient domain.Patient) *domain.Session {
	return &domain.Session{
		Token:     "patient-token-" + patient.ID,
		User:      domain.AuthUser{ID: patient.ID, Role: domain.RolePatient, PatientID: patient.ID},
		Patient:   &patient,
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func CreateTestEvent() ports.StaffRegisteredEvent {
	return ports.StaffRegisteredEvent{
		StaffID:      "staff-100",
		Name:         "新人衛生士",
		Email:        "new@hachi-dental.com",
		ClinicID:     TestClinicID,
		RegisteredAt: time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC),
	}
}
