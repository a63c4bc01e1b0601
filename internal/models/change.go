package models

import "github.com/google/uuid"

// ChangeKind names what changed on the backend.
type ChangeKind string

const (
	ChangeEventUpdated        ChangeKind = "event_changed"
	ChangeEventDeleted        ChangeKind = "event_deleted"
	ChangeClubUpdated         ChangeKind = "club_changed"
	ChangeRegistrationUpdated ChangeKind = "registration_changed"
)

// Change is a notification that remote data changed. Zero IDs mean "not applicable".
type Change struct {
	Kind    ChangeKind `json:"kind"`
	EventID uuid.UUID  `json:"event_id"`
	ClubID  uuid.UUID  `json:"club_id"`
	UserID  uuid.UUID  `json:"user_id"`
}
