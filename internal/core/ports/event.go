package ports

import (
	"context"
	"time"
)

const StaffRegisteredEventType = "staff_registered"

type StaffRegisteredEvent struct {
	StaffID      string    `json:"staff_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	ClinicID     string    `json:"clinic_id"`
	RegisteredAt time.Time `json:"registered_at"`
}

type StaffEventPublisher interface {
	PublishStaffRegistered(ctx context.Context, evt StaffRegisteredEvent) error
}
