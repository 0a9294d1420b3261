package domain

import "time"

type Patient struct {
	ID                string    `json:"id"`
	PatientNumber     string    `json:"patient_number"`
	Name              string    `json:"name"`
	BirthDate         string    `json:"birth_date"`
	ClinicID          string    `json:"clinic_id"`
	CurrentPasscode   string    `json:"current_passcode"`
	PasscodeExpiresAt time.Time `json:"passcode_expires_at"`
	Email             string    `json:"email,omitempty"`
	Phone             string    `json:"phone,omitempty"`
	Address           string    `json:"address,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// PasscodeValidAt reports whether the current passcode may still be used at t.
// The expiry instant itself is already invalid.
func (p *Patient) PasscodeValidAt(t time.Time) bool {
	return t.Before(p.PasscodeExpiresAt)
}
