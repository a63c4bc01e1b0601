package registrations

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventflow/eventflow/internal/apperror"
	"github.com/eventflow/eventflow/internal/auth"
	"github.com/eventflow/eventflow/internal/models"
	"github.com/eventflow/eventflow/internal/realtime"
	"github.com/eventflow/eventflow/pkg/response"
)

// Store is the persistence the registrations handler needs.
type Store interface {
	Register(ctx context.Context, eventID, userID uuid.UUID) (*models.Registration, error)
	Cancel(ctx context.Context, eventID, userID uuid.UUID) error
	Active(ctx context.Context, eventID, userID uuid.UUID) (*models.Registration, error)
	Mine(ctx context.Context, userID uuid.UUID) ([]models.RegistrationWithEvent, error)
	ByEvent(ctx context.Context, eventID uuid.UUID) ([]models.RegistrationWithProfile, error)
}

// Handler handles registration HTTP endpoints.
type Handler struct {
	store   Store
	changes realtime.Publisher
	logger  *zap.Logger
}

// NewHandler creates a registrations handler. changes may be nil.
func NewHandler(store Store, changes realtime.Publisher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, changes: changes, logger: logger}
}

// Mine handles GET /registrations/me.
func (h *Handler) Mine(c *gin.Context) {
	userID := c.MustGet(auth.ContextUserID).(uuid.UUID)
	list, err := h.store.Mine(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("list my registrations failed", zap.Error(err))
		response.Internal(c, "failed to list registrations")
		return
	}
	response.OK(c, list)
}

// ByEvent handles GET /events/:id/registrations (admin or club_admin).
func (h *Handler) ByEvent(c *gin.Context) {
	eventID, ok := parseEventID(c)
	if !ok {
		return
	}
	list, err := h.store.ByEvent(c.Request.Context(), eventID)
	if err != nil {
		h.logger.Error("list event registrations failed", zap.Error(err))
		response.Internal(c, "failed to list registrations")
		return
	}
	response.OK(c, list)
}

// Active handles GET /events/:id/registration. Data is null when the caller is not registered.
func (h *Handler) Active(c *gin.Context) {
	eventID, ok := parseEventID(c)
	if !ok {
		return
	}
	userID := c.MustGet(auth.ContextUserID).(uuid.UUID)
	reg, err := h.store.Active(c.Request.Context(), eventID, userID)
	if err != nil {
		h.logger.Error("load registration failed", zap.Error(err))
		response.Internal(c, "failed to load registration")
		return
	}
	response.OK(c, reg)
}

// Register handles POST /events/:id/register.
func (h *Handler) Register(c *gin.Context) {
	eventID, ok := parseEventID(c)
	if !ok {
		return
	}
	userID := c.MustGet(auth.ContextUserID).(uuid.UUID)
	reg, err := h.store.Register(c.Request.Context(), eventID, userID)
	if err != nil {
		h.fail(c, err, "failed to register")
		return
	}
	h.publish(c.Request.Context(), eventID, userID)
	h.logger.Info("registered", zap.String("event_id", eventID.String()), zap.String("user_id", userID.String()))
	response.Created(c, reg)
}

// Cancel handles DELETE /events/:id/register.
func (h *Handler) Cancel(c *gin.Context) {
	eventID, ok := parseEventID(c)
	if !ok {
		return
	}
	userID := c.MustGet(auth.ContextUserID).(uuid.UUID)
	if err := h.store.Cancel(c.Request.Context(), eventID, userID); err != nil {
		h.fail(c, err, "failed to cancel registration")
		return
	}
	h.publish(c.Request.Context(), eventID, userID)
	response.NoContent(c)
}

func (h *Handler) publish(ctx context.Context, eventID, userID uuid.UUID) {
	if h.changes == nil {
		return
	}
	change := models.Change{Kind: models.ChangeRegistrationUpdated, EventID: eventID, UserID: userID}
	if err := h.changes.Publish(ctx, change); err != nil {
		h.logger.Warn("publish registration change failed", zap.Error(err))
	}
}

func (h *Handler) fail(c *gin.Context, err error, fallback string) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		h.logger.Error(fallback, zap.Error(err))
	}
	response.FromError(c, err, fallback)
}

func parseEventID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return uuid.Nil, false
	}
	return id, true
}
