package models

import (
	"time"

	"github.com/google/uuid"
)

// RegistrationStatus is the lifecycle status of a registration.
type RegistrationStatus string

const (
	RegistrationRegistered RegistrationStatus = "registered"
	RegistrationAttended   RegistrationStatus = "attended"
	RegistrationCancelled  RegistrationStatus = "cancelled"
)

// Registration links a user to an event.
type Registration struct {
	ID           uuid.UUID          `json:"id"`
	EventID      uuid.UUID          `json:"event_id"`
	UserID       uuid.UUID          `json:"user_id"`
	Status       RegistrationStatus `json:"status"`
	RegisteredAt time.Time          `json:"registered_at"`
}

// RegistrationWithEvent is a registration with its event projection (student dashboard).
type RegistrationWithEvent struct {
	Registration
	Event EventWithDetails `json:"event"`
}

// RegistrationWithProfile is a registration with the attendee profile (admin attendee list).
type RegistrationWithProfile struct {
	Registration
	Profile *Profile `json:"profile"`
}
