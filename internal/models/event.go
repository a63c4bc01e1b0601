package models

import (
	"time"

	"github.com/google/uuid"
)

// EventStatus is the lifecycle status of an event.
type EventStatus string

const (
	EventOpen      EventStatus = "open"
	EventClosed    EventStatus = "closed"
	EventCancelled EventStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s EventStatus) Valid() bool {
	return s == EventOpen || s == EventClosed || s == EventCancelled
}

// CategoryAll is the filter sentinel meaning "no category filter".
const CategoryAll = "All"

// Event belongs to exactly one club.
type Event struct {
	ID          uuid.UUID   `json:"id"`
	Title       string      `json:"title"`
	Description *string     `json:"description"`
	ClubID      uuid.UUID   `json:"club_id"`
	EventDate   string      `json:"event_date"` // YYYY-MM-DD
	EventTime   string      `json:"event_time"` // HH:MM[:SS]
	Venue       string      `json:"venue"`
	Category    string      `json:"category"`
	TotalSeats  int         `json:"total_seats"`
	ImageEmoji  *string     `json:"image_emoji"`
	Status      EventStatus `json:"status"`
	CreatedBy   uuid.UUID   `json:"created_by"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// EventWithDetails is the read-only projection of an event joined with its club and the active registration count.
type EventWithDetails struct {
	Event
	ClubName      string  `json:"club_name"`
	ClubEmail     *string `json:"club_email"`
	ClubPhone     *string `json:"club_phone"`
	ClubInstagram *string `json:"club_instagram"`
	FilledSeats   int     `json:"filled_seats"`
}

// EventInput is the writable part of an event. Nil fields are left unchanged on update.
type EventInput struct {
	Title       *string      `json:"title,omitempty"`
	Description *string      `json:"description,omitempty"`
	ClubID      *uuid.UUID   `json:"club_id,omitempty"`
	EventDate   *string      `json:"event_date,omitempty"`
	EventTime   *string      `json:"event_time,omitempty"`
	Venue       *string      `json:"venue,omitempty"`
	Category    *string      `json:"category,omitempty"`
	TotalSeats  *int         `json:"total_seats,omitempty"`
	ImageEmoji  *string      `json:"image_emoji,omitempty"`
	Status      *EventStatus `json:"status,omitempty"`
}

// EventFilter narrows an event listing.
type EventFilter struct {
	Category string // "" or CategoryAll means no filter
	Limit    int    // 0 means no limit
}

// CategoryFilter returns the category to filter by, or "" when the filter is the sentinel.
func (f EventFilter) CategoryFilter() string {
	if f.Category == CategoryAll {
		return ""
	}
	return f.Category
}
