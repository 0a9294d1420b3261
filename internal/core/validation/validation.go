// Package validation holds the format checks for login and registration input.
// Checks append to an Errors value so a caller gets every failing field at once.
package validation

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

var (
	patientNumberPattern = regexp.MustCompile(`^\d{5}$`)
	passcodePattern      = regexp.MustCompile(`^\d{6}$`)
	emailPattern         = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

const (
	MinNameLength     = 2
	MinPasswordLength = 6
)

func IsPatientNumber(s string) bool { return patientNumberPattern.MatchString(s) }

func IsPasscode(s string) bool { return passcodePattern.MatchString(s) }

func IsEmail(s string) bool { return emailPattern.MatchString(s) }

// FieldError is a single failed check on a named input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors collects field errors. A nil or empty Errors means the input is valid.
type Errors struct {
	Fields []FieldError
}

func (e *Errors) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *Errors) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Has reports whether field has at least one error.
func (e *Errors) Has(field string) bool {
	if e == nil {
		return false
	}
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// Err returns e as an error, or nil when no field failed.
func (e *Errors) Err() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	sort.SliceStable(e.Fields, func(i, j int) bool { return e.Fields[i].Field < e.Fields[j].Field })
	return e
}

func (e *Errors) Required(field, value string) bool {
	if strings.TrimSpace(value) == "" {
		e.Add(field, "is required")
		return false
	}
	return true
}

func (e *Errors) PatientNumber(field, value string) {
	if e.Required(field, value) && !IsPatientNumber(value) {
		e.Add(field, "must be a 5-digit number")
	}
}

func (e *Errors) Passcode(field, value string) {
	if e.Required(field, value) && !IsPasscode(value) {
		e.Add(field, "must be a 6-digit number")
	}
}

func (e *Errors) Email(field, value string) {
	if e.Required(field, value) && !IsEmail(value) {
		e.Add(field, "must be a valid email address")
	}
}

func (e *Errors) MinLength(field, value string, n int) {
	if e.Required(field, value) && utf8.RuneCountInString(value) < n {
		e.Add(field, "is too short")
	}
}

// PatientLogin is the patient login form.
type PatientLogin struct {
	PatientNumber string `json:"patient_number"`
	Passcode      string `json:"passcode"`
}

func (in PatientLogin) Validate() error {
	var errs Errors
	errs.PatientNumber("patient_number", in.PatientNumber)
	errs.Passcode("passcode", in.Passcode)
	return errs.Err()
}

// StaffLogin is the staff email/password form.
type StaffLogin struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in StaffLogin) Validate() error {
	var errs Errors
	errs.Email("email", in.Email)
	errs.Required("password", in.Password)
	return errs.Err()
}

// StaffRegistration is the self-registration form. ConfirmPassword is only
// checked when the client sends it.
type StaffRegistration struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password,omitempty"`
	ClinicID        string `json:"clinic_id"`
}

func (in StaffRegistration) Validate() error {
	var errs Errors
	errs.MinLength("name", in.Name, MinNameLength)
	errs.Email("email", in.Email)
	errs.MinLength("password", in.Password, MinPasswordLength)
	if in.ConfirmPassword != "" && in.ConfirmPassword != in.Password {
		errs.Add("confirm_password", "does not match password")
	}
	return errs.Err()
}

// NewPatient is the staff form for adding a patient. Blank PatientNumber and
// Passcode are generated by the service.
type NewPatient struct {
	PatientNumber string `json:"patient_number"`
	Passcode      string `json:"current_passcode"`
	Name          string `json:"name"`
	BirthDate     string `json:"birth_date"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
}

func (in NewPatient) Validate() error {
	var errs Errors
	errs.Required("name", in.Name)
	if in.PatientNumber != "" {
		errs.PatientNumber("patient_number", in.PatientNumber)
	}
	if in.Passcode != "" {
		errs.Passcode("current_passcode", in.Passcode)
	}
	if in.Email != "" {
		errs.Email("email", in.Email)
	}
	return errs.Err()
}

// NewTreatmentItem is the catalog entry form.
type NewTreatmentItem struct {
	InternalName string `json:"internal_name"`
	PatientName  string `json:"patient_name"`
	Category     string `json:"category"`
	Description  string `json:"description"`
}

func (in NewTreatmentItem) Validate() error {
	var errs Errors
	errs.Required("internal_name", in.InternalName)
	errs.Required("patient_name", in.PatientName)
	return errs.Err()
}

// ChatRequest is the body of the chat endpoint.
type ChatRequest struct {
	Message   string `json:"message"`
	PatientID string `json:"patientId"`
}

func (in ChatRequest) Validate() error {
	var errs Errors
	errs.Required("message", in.Message)
	errs.Required("patientId", in.PatientID)
	return errs.Err()
}
