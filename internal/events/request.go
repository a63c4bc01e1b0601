package events

import (
	"github.com/google/uuid"

	"github.com/eventflow/eventflow/internal/models"
)

// CreateEventRequest is the body for POST /events. Seats default to 0 and status to open.
type CreateEventRequest struct {
	Title       string             `json:"title" binding:"required"`
	Description *string            `json:"description"`
	ClubID      uuid.UUID          `json:"club_id" binding:"required"`
	EventDate   string             `json:"event_date" binding:"required,datetime=2006-01-02"`
	EventTime   string             `json:"event_time" binding:"required,datetime=15:04|datetime=15:04:05"`
	Venue       string             `json:"venue" binding:"required"`
	Category    string             `json:"category" binding:"required,ne=All"`
	TotalSeats  int                `json:"total_seats" binding:"gte=0"`
	ImageEmoji  *string            `json:"image_emoji"`
	Status      models.EventStatus `json:"status" binding:"omitempty,oneof=open closed cancelled"`
}

// Input converts the request to a complete store input.
func (r CreateEventRequest) Input() models.EventInput {
	status := r.Status
	if status == "" {
		status = models.EventOpen
	}
	return models.EventInput{
		Title:       &r.Title,
		Description: r.Description,
		ClubID:      &r.ClubID,
		EventDate:   &r.EventDate,
		EventTime:   &r.EventTime,
		Venue:       &r.Venue,
		Category:    &r.Category,
		TotalSeats:  &r.TotalSeats,
		ImageEmoji:  r.ImageEmoji,
		Status:      &status,
	}
}

// UpdateEventRequest is the body for PATCH /events/:id. Absent fields stay unchanged.
type UpdateEventRequest struct {
	Title       *string             `json:"title" binding:"omitempty,min=1"`
	Description *string             `json:"description"`
	ClubID      *uuid.UUID          `json:"club_id"`
	EventDate   *string             `json:"event_date" binding:"omitempty,datetime=2006-01-02"`
	EventTime   *string             `json:"event_time" binding:"omitempty,datetime=15:04|datetime=15:04:05"`
	Venue       *string             `json:"venue" binding:"omitempty,min=1"`
	Category    *string             `json:"category" binding:"omitempty,min=1,ne=All"`
	TotalSeats  *int                `json:"total_seats" binding:"omitempty,gte=0"`
	ImageEmoji  *string             `json:"image_emoji"`
	Status      *models.EventStatus `json:"status" binding:"omitempty,oneof=open closed cancelled"`
}

// Input converts the request to a partial store input.
func (r UpdateEventRequest) Input() models.EventInput {
	return models.EventInput{
		Title:       r.Title,
		Description: r.Description,
		ClubID:      r.ClubID,
		EventDate:   r.EventDate,
		EventTime:   r.EventTime,
		Venue:       r.Venue,
		Category:    r.Category,
		TotalSeats:  r.TotalSeats,
		ImageEmoji:  r.ImageEmoji,
		Status:      r.Status,
	}
}
