package clubs

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventflow/eventflow/internal/apperror"
	"github.com/eventflow/eventflow/internal/auth"
	"github.com/eventflow/eventflow/internal/middleware"
	"github.com/eventflow/eventflow/internal/models"
	"github.com/eventflow/eventflow/internal/realtime"
	"github.com/eventflow/eventflow/pkg/response"
	"github.com/eventflow/eventflow/pkg/storage"
)

// Store is the persistence the clubs handler needs.
type Store interface {
	List(ctx context.Context) ([]models.Club, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Club, error)
	Create(ctx context.Context, in models.ClubInput, createdBy uuid.UUID) (*models.Club, error)
	Update(ctx context.Context, id uuid.UUID, in models.ClubInput) (*models.Club, error)
}

// CreateClubRequest is the body for POST /clubs.
type CreateClubRequest struct {
	Name            string  `json:"name" binding:"required"`
	Description     *string `json:"description"`
	LogoURL         *string `json:"logo_url" binding:"omitempty,url"`
	ContactEmail    *string `json:"contact_email" binding:"omitempty,email"`
	ContactPhone    *string `json:"contact_phone"`
	InstagramHandle *string `json:"instagram_handle"`
}

// UpdateClubRequest is the body for PATCH /clubs/:id. Absent fields stay unchanged.
type UpdateClubRequest struct {
	Name            *string `json:"name" binding:"omitempty,min=1"`
	Description     *string `json:"description"`
	LogoURL         *string `json:"logo_url" binding:"omitempty,url"`
	ContactEmail    *string `json:"contact_email" binding:"omitempty,email"`
	ContactPhone    *string `json:"contact_phone"`
	InstagramHandle *string `json:"instagram_handle"`
}

func (r CreateClubRequest) input() models.ClubInput {
	return models.ClubInput{
		Name:            &r.Name,
		Description:     r.Description,
		LogoURL:         r.LogoURL,
		ContactEmail:    r.ContactEmail,
		ContactPhone:    r.ContactPhone,
		InstagramHandle: r.InstagramHandle,
	}
}

func (r UpdateClubRequest) input() models.ClubInput {
	return models.ClubInput(r)
}

// Handler handles club HTTP endpoints.
type Handler struct {
	store   Store
	media   *storage.S3
	changes realtime.Publisher
	logger  *zap.Logger
}

// NewHandler creates a clubs handler. media and changes may be nil.
func NewHandler(store Store, media *storage.S3, changes realtime.Publisher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, media: media, changes: changes, logger: logger}
}

// List handles GET /clubs.
func (h *Handler) List(c *gin.Context) {
	list, err := h.store.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list clubs failed", zap.Error(err))
		response.Internal(c, "failed to list clubs")
		return
	}
	response.OK(c, list)
}

// Get handles GET /clubs/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid club id")
		return
	}
	club, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "failed to load club")
		return
	}
	response.OK(c, club)
}

// Create handles POST /clubs (admin or club_admin).
func (h *Handler) Create(c *gin.Context) {
	var req CreateClubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := c.MustGet(auth.ContextUserID).(uuid.UUID)
	club, err := h.store.Create(c.Request.Context(), req.input(), userID)
	if err != nil {
		h.fail(c, err, "failed to create club")
		return
	}
	h.publish(c.Request.Context(), club.ID)
	response.Created(c, club)
}

// Update handles PATCH /clubs/:id (creator or admin).
func (h *Handler) Update(c *gin.Context) {
	club, ok := h.loadOwned(c)
	if !ok {
		return
	}
	var req UpdateClubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	updated, err := h.store.Update(c.Request.Context(), club.ID, req.input())
	if err != nil {
		h.fail(c, err, "failed to update club")
		return
	}
	h.publish(c.Request.Context(), club.ID)
	response.OK(c, updated)
}

// LogoUploadURL handles POST /clubs/:id/logo/upload-url (creator or admin).
func (h *Handler) LogoUploadURL(c *gin.Context) {
	if h.media == nil {
		response.ServiceUnavailable(c, "media storage not configured")
		return
	}
	club, ok := h.loadOwned(c)
	if !ok {
		return
	}
	var req struct {
		ContentType string `json:"content_type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "content_type required")
		return
	}
	ext, ok := storage.ImageExtension(req.ContentType)
	if !ok {
		response.BadRequest(c, "unsupported image type")
		return
	}
	key := storage.ClubLogoKey(club.ID.String(), ext, time.Now())
	url, err := h.media.PresignUpload(c.Request.Context(), key, req.ContentType)
	if err != nil {
		h.logger.Error("presign logo upload failed", zap.Error(err))
		response.Internal(c, "failed to create upload url")
		return
	}
	response.OK(c, gin.H{"upload_url": url, "public_url": h.media.PublicURL(key), "key": key})
}

// loadOwned loads the club in :id and checks the caller created it or is an admin.
func (h *Handler) loadOwned(c *gin.Context) (*models.Club, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid club id")
		return nil, false
	}
	club, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "failed to load club")
		return nil, false
	}
	userID := c.MustGet(auth.ContextUserID).(uuid.UUID)
	owner := club.CreatedBy != nil && *club.CreatedBy == userID
	if !owner && middleware.Role(c) != models.RoleAdmin {
		response.Forbidden(c, "only the club creator or an admin can change this club")
		return nil, false
	}
	return club, true
}

func (h *Handler) publish(ctx context.Context, clubID uuid.UUID) {
	if h.changes == nil {
		return
	}
	if err := h.changes.Publish(ctx, models.Change{Kind: models.ChangeClubUpdated, ClubID: clubID}); err != nil {
		h.logger.Warn("publish club change failed", zap.Error(err))
	}
}

func (h *Handler) fail(c *gin.Context, err error, fallback string) {
	if !errors.Is(err, apperror.ErrNotFound) {
		h.logger.Error(fallback, zap.Error(err))
	}
	response.FromError(c, err, fallback)
}
