package domain

import "time"

type StaffRole string

const (
	StaffRoleAdmin     StaffRole = "admin"
	StaffRoleHygienist StaffRole = "hygienist"
)

type Clinic struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Staff struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	ClinicID     string    `json:"clinic_id"`
	Role         StaffRole `json:"role"`
	Approved     bool      `json:"approved"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (s *Staff) IsAdmin() bool {
	return s != nil && s.Role == StaffRoleAdmin
}
