// Package analytics serves registration statistics for club managers.
package analytics

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventflow/eventflow/internal/apperror"
	"github.com/eventflow/eventflow/pkg/response"
)

// Summary is the JSON shape of GET /stats.
type Summary struct {
	TotalEvents        int     `json:"total_events"`
	OpenEvents         int     `json:"open_events"`
	ClosedEvents       int     `json:"closed_events"`
	CancelledEvents    int     `json:"cancelled_events"`
	TotalRegistrations int64   `json:"total_registrations"`
	TotalSeats         int64   `json:"total_seats"`
	FillPercent        float64 `json:"fill_percent"`
}

// EventSummary is the JSON shape of GET /events/:id/stats.
type EventSummary struct {
	EventID     uuid.UUID `json:"event_id"`
	TotalSeats  int       `json:"total_seats"`
	Registered  int       `json:"registered"`
	Attended    int       `json:"attended"`
	Cancelled   int       `json:"cancelled"`
	SeatsLeft   int       `json:"seats_left"`
	FillPercent float64   `json:"fill_percent"`
	// AttendanceRate is attended over everyone who did not cancel. Nil when nobody registered.
	AttendanceRate *float64 `json:"attendance_rate,omitempty"`
}

// Store is the persistence the analytics handler needs.
type Store interface {
	Summary(ctx context.Context, clubID *uuid.UUID) (*Summary, error)
	EventSummary(ctx context.Context, eventID uuid.UUID) (*EventSummary, error)
}

// Handler handles the stats endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates an analytics handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// Summary handles GET /stats?club_id=. Manager role is enforced by route middleware.
func (h *Handler) Summary(c *gin.Context) {
	var clubID *uuid.UUID
	if raw := c.Query("club_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "invalid club id")
			return
		}
		clubID = &id
	}

	s, err := h.store.Summary(c.Request.Context(), clubID)
	if err != nil {
		h.logger.Error("load stats failed", zap.Error(err))
		response.Internal(c, "failed to load stats")
		return
	}
	s.FillPercent = percent(s.TotalRegistrations, s.TotalSeats)
	response.OK(c, s)
}

// GetByEvent handles GET /events/:id/stats.
func (h *Handler) GetByEvent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}

	s, err := h.store.EventSummary(c.Request.Context(), id)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			h.logger.Error("load event stats failed", zap.Error(err), zap.String("event_id", id.String()))
		}
		response.FromError(c, err, "failed to load event stats")
		return
	}

	s.SeatsLeft = max(s.TotalSeats-s.Registered, 0)
	s.FillPercent = percent(int64(s.Registered), int64(s.TotalSeats))
	if active := s.Registered + s.Attended; active > 0 {
		rate := float64(s.Attended) / float64(active)
		s.AttendanceRate = &rate
	}
	response.OK(c, s)
}

// percent is part/whole*100 capped at 100; an empty whole is 0.
func percent(part, whole int64) float64 {
	if whole <= 0 {
		return 0
	}
	return min(float64(part)/float64(whole)*100, 100)
}
