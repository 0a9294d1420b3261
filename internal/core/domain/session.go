package domain

import "time"

type Role string

const (
	RolePatient Role = "patient"
	RoleStaff   Role = "staff"
)

// AuthUser is the authenticated identity carried by a session.
type AuthUser struct {
	ID        string `json:"id"`
	Email     string `json:"email,omitempty"`
	Role      Role   `json:"role"`
	PatientID string `json:"patient_id,omitempty"`
	StaffID   string `json:"staff_id,omitempty"`
}

// Session replaces the browser-side auth store: it is looked up per request
// and passed explicitly through the request context.
type Session struct {
	Token     string    `json:"token"`
	User      AuthUser  `json:"user"`
	Patient   *Patient  `json:"patient,omitempty"`
	Staff     *Staff    `json:"staff,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Session) IsPatient() bool { return s != nil && s.User.Role == RolePatient }

func (s *Session) IsStaff() bool { return s != nil && s.User.Role == RoleStaff && s.Staff != nil }

func (s *Session) IsAdmin() bool { return s.IsStaff() && s.Staff.IsAdmin() }
