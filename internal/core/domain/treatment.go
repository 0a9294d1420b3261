package domain

import "time"

type TreatmentItem struct {
	ID           string    `json:"id"`
	ClinicID     string    `json:"clinic_id"`
	InternalName string    `json:"internal_name"`
	PatientName  string    `json:"patient_name"`
	Category     string    `json:"category,omitempty"`
	Description  string    `json:"description,omitempty"`
	Order        int       `json:"order"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type PlanStatus string

const (
	PlanStatusDraft     PlanStatus = "draft"
	PlanStatusActive    PlanStatus = "active"
	PlanStatusCompleted PlanStatus = "completed"
)

func (s PlanStatus) Valid() bool {
	switch s {
	case PlanStatusDraft, PlanStatusActive, PlanStatusCompleted:
		return true
	}
	return false
}

type TreatmentPlan struct {
	ID        string              `json:"id"`
	PatientID string              `json:"patient_id"`
	CreatedBy string              `json:"created_by"`
	StaffName string              `json:"staff_name,omitempty"`
	Title     string              `json:"title,omitempty"`
	Notes     string              `json:"notes,omitempty"`
	Items     []TreatmentPlanItem `json:"treatment_items"`
	Status    PlanStatus          `json:"status"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

type TreatmentPlanItem struct {
	ID                string         `json:"id"`
	TreatmentItemID   string         `json:"treatment_item_id"`
	ToothNumber       string         `json:"tooth_number,omitempty"`
	EstimatedSessions int            `json:"estimated_sessions,omitempty"`
	ScheduledDate     *time.Time     `json:"scheduled_date,omitempty"`
	Notes             string         `json:"notes,omitempty"`
	Completed         bool           `json:"completed"`
	CompletedDate     *time.Time     `json:"completed_date,omitempty"`
	Order             int            `json:"order"`
	TreatmentItem     *TreatmentItem `json:"treatment_item,omitempty"`
}

// PlanInput is the staff edit form for a plan. Items are saved in the order given.
type PlanInput struct {
	Title  string          `json:"title"`
	Notes  string          `json:"notes"`
	Status PlanStatus      `json:"status"`
	Items  []PlanItemInput `json:"treatment_items"`
}

type PlanItemInput struct {
	ID                string     `json:"id,omitempty"`
	TreatmentItemID   string     `json:"treatment_item_id"`
	ToothNumber       string     `json:"tooth_number,omitempty"`
	EstimatedSessions int        `json:"estimated_sessions,omitempty"`
	ScheduledDate     *time.Time `json:"scheduled_date,omitempty"`
	Notes             string     `json:"notes,omitempty"`
	Completed         bool       `json:"completed"`
	CompletedDate     *time.Time `json:"completed_date,omitempty"`
}

// PlanView is what a patient sees of their plan.
type PlanView struct {
	Plan      *TreatmentPlan      `json:"plan"`
	Total     int                 `json:"total"`
	Completed int                 `json:"completed"`
	Progress  int                 `json:"progress"`
	Upcoming  []TreatmentPlanItem `json:"upcoming"`
	Done      []TreatmentPlanItem `json:"done"`
}
