package events

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventflow/eventflow/internal/apperror"
	"github.com/eventflow/eventflow/internal/auth"
	"github.com/eventflow/eventflow/internal/middleware"
	"github.com/eventflow/eventflow/internal/models"
	"github.com/eventflow/eventflow/internal/realtime"
	"github.com/eventflow/eventflow/pkg/queue"
	"github.com/eventflow/eventflow/pkg/response"
)

// MaxListLimit caps the limit query parameter.
const MaxListLimit = 200

// Store is the persistence the events handler needs.
type Store interface {
	List(ctx context.Context, filter models.EventFilter) ([]models.EventWithDetails, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.EventWithDetails, error)
	Create(ctx context.Context, in models.EventInput, createdBy uuid.UUID) (*models.EventWithDetails, error)
	Update(ctx context.Context, id uuid.UUID, in models.EventInput) (*models.EventWithDetails, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Jobs enqueues background work triggered by event changes.
type Jobs interface {
	EnqueueEventCancelled(ctx context.Context, payload queue.EventCancelledPayload) error
}

// Handler handles event HTTP endpoints.
type Handler struct {
	store   Store
	jobs    Jobs
	changes realtime.Publisher
	logger  *zap.Logger
}

// NewHandler creates an events handler. jobs and changes may be nil.
func NewHandler(store Store, jobs Jobs, changes realtime.Publisher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, jobs: jobs, changes: changes, logger: logger}
}

// List handles GET /events?category=&limit=.
func (h *Handler) List(c *gin.Context) {
	filter := models.EventFilter{Category: c.Query("category")}
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			response.BadRequest(c, "limit must be a non-negative integer")
			return
		}
		filter.Limit = min(n, MaxListLimit)
	}
	list, err := h.store.List(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("list events failed", zap.Error(err))
		response.Internal(c, "failed to list events")
		return
	}
	response.OK(c, list)
}

// Get handles GET /events/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ev, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "failed to load event")
		return
	}
	response.OK(c, ev)
}

// Create handles POST /events (admin or club_admin).
func (h *Handler) Create(c *gin.Context) {
	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := c.MustGet(auth.ContextUserID).(uuid.UUID)
	ev, err := h.store.Create(c.Request.Context(), req.Input(), userID)
	if err != nil {
		h.fail(c, err, "failed to create event")
		return
	}
	h.publish(c.Request.Context(), models.Change{Kind: models.ChangeEventUpdated, EventID: ev.ID, ClubID: ev.ClubID})
	response.Created(c, ev)
}

// Update handles PATCH /events/:id (creator or admin).
func (h *Handler) Update(c *gin.Context) {
	current, ok := h.loadOwned(c)
	if !ok {
		return
	}
	var req UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ctx := c.Request.Context()
	ev, err := h.store.Update(ctx, current.ID, req.Input())
	if err != nil {
		h.fail(c, err, "failed to update event")
		return
	}
	if current.Status != models.EventCancelled && ev.Status == models.EventCancelled && h.jobs != nil {
		userID := c.MustGet(auth.ContextUserID).(uuid.UUID)
		if err := h.jobs.EnqueueEventCancelled(ctx, queue.EventCancelledPayload{EventID: ev.ID, CancelledBy: userID}); err != nil {
			h.logger.Error("enqueue event cancelled failed", zap.Error(err), zap.String("event_id", ev.ID.String()))
		}
	}
	h.publish(ctx, models.Change{Kind: models.ChangeEventUpdated, EventID: ev.ID, ClubID: ev.ClubID})
	response.OK(c, ev)
}

// Delete handles DELETE /events/:id (creator or admin).
func (h *Handler) Delete(c *gin.Context) {
	current, ok := h.loadOwned(c)
	if !ok {
		return
	}
	if err := h.store.Delete(c.Request.Context(), current.ID); err != nil {
		h.fail(c, err, "failed to delete event")
		return
	}
	h.publish(c.Request.Context(), models.Change{Kind: models.ChangeEventDeleted, EventID: current.ID, ClubID: current.ClubID})
	response.NoContent(c)
}

func (h *Handler) loadOwned(c *gin.Context) (*models.EventWithDetails, bool) {
	id, ok := parseID(c)
	if !ok {
		return nil, false
	}
	ev, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "failed to load event")
		return nil, false
	}
	userID := c.MustGet(auth.ContextUserID).(uuid.UUID)
	if ev.CreatedBy != userID && middleware.Role(c) != models.RoleAdmin {
		response.Forbidden(c, "only the event creator or an admin can change this event")
		return nil, false
	}
	return ev, true
}

func (h *Handler) publish(ctx context.Context, change models.Change) {
	if h.changes == nil {
		return
	}
	if err := h.changes.Publish(ctx, change); err != nil {
		h.logger.Warn("publish event change failed", zap.Error(err))
	}
}

func (h *Handler) fail(c *gin.Context, err error, fallback string) {
	if !errors.Is(err, apperror.ErrNotFound) && !errors.Is(err, apperror.ErrValidation) {
		h.logger.Error(fallback, zap.Error(err))
	}
	response.FromError(c, err, fallback)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return uuid.Nil, false
	}
	return id, true
}
