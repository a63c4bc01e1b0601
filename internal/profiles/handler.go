package profiles

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventflow/eventflow/internal/apperror"
	"github.com/eventflow/eventflow/internal/auth"
	"github.com/eventflow/eventflow/internal/middleware"
	"github.com/eventflow/eventflow/internal/models"
	"github.com/eventflow/eventflow/pkg/response"
	"github.com/eventflow/eventflow/pkg/storage"
)

// Store is the persistence the profiles handler needs.
type Store interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	Create(ctx context.Context, userID uuid.UUID, email, fullName string) (*models.Profile, error)
	Update(ctx context.Context, userID uuid.UUID, upd models.ProfileUpdate) (*models.Profile, error)
	SetAvatarURL(ctx context.Context, userID uuid.UUID, url string) (*models.Profile, error)
	EffectiveRole(ctx context.Context, userID uuid.UUID) (models.Role, error)
}

// Handler handles profile and role endpoints.
type Handler struct {
	store  Store
	media  *storage.S3
	logger *zap.Logger
}

// NewHandler creates a profiles handler. media may be nil, which disables avatar uploads.
func NewHandler(store Store, media *storage.S3, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, media: media, logger: logger}
}

// CreateProfileRequest is the body for POST /profiles.
type CreateProfileRequest struct {
	FullName string `json:"full_name"`
}

// UploadURLRequest is the body for presigned upload endpoints.
type UploadURLRequest struct {
	ContentType string `json:"content_type" binding:"required"`
}

// Get handles GET /profiles/:user_id.
func (h *Handler) Get(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	p, err := h.store.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err, "failed to load profile")
		return
	}
	response.OK(c, p)
}

// Create handles POST /profiles. Provisions the caller's own profile if sign-up did not.
func (h *Handler) Create(c *gin.Context) {
	var req CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := c.MustGet(auth.ContextUserID).(uuid.UUID)
	email := c.MustGet(auth.ContextUserEmail).(string)
	p, err := h.store.Create(c.Request.Context(), userID, email, strings.TrimSpace(req.FullName))
	if err != nil {
		h.fail(c, err, "failed to create profile")
		return
	}
	response.Created(c, p)
}

// UpdateMe handles PATCH /profiles/me. Only full_name and phone are writable.
func (h *Handler) UpdateMe(c *gin.Context) {
	var req models.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.FullName == nil && req.Phone == nil {
		response.BadRequest(c, "nothing to update")
		return
	}
	userID := c.MustGet(auth.ContextUserID).(uuid.UUID)
	p, err := h.store.Update(c.Request.Context(), userID, req)
	if err != nil {
		h.fail(c, err, "failed to update profile")
		return
	}
	response.OK(c, p)
}

// GetRole handles GET /roles/:user_id. Users may read their own role; admins may read anyone's.
func (h *Handler) GetRole(c *gin.Context) {
	target, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	caller := c.MustGet(auth.ContextUserID).(uuid.UUID)
	if target != caller && middleware.Role(c) != models.RoleAdmin {
		response.Forbidden(c, "cannot read another user's role")
		return
	}
	role, err := h.store.EffectiveRole(c.Request.Context(), target)
	if err != nil {
		h.fail(c, err, "failed to load role")
		return
	}
	response.OK(c, gin.H{"user_id": target, "role": string(role)})
}

// AvatarUploadURL handles POST /profiles/me/avatar/upload-url.
func (h *Handler) AvatarUploadURL(c *gin.Context) {
	if h.media == nil {
		response.ServiceUnavailable(c, "media storage not configured")
		return
	}
	var req UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "content_type required")
		return
	}
	ext, ok := storage.ImageExtension(req.ContentType)
	if !ok {
		response.BadRequest(c, "unsupported image type")
		return
	}
	userID := c.MustGet(auth.ContextUserID).(uuid.UUID)
	key := storage.AvatarKey(userID.String(), ext, time.Now())
	url, err := h.media.PresignUpload(c.Request.Context(), key, req.ContentType)
	if err != nil {
		h.logger.Error("presign avatar upload failed", zap.Error(err))
		response.Internal(c, "failed to create upload url")
		return
	}
	response.OK(c, gin.H{"upload_url": url, "public_url": h.media.PublicURL(key), "key": key})
}

// UploadAvatar handles POST /profiles/me/avatar (multipart field "file") and stores the resulting URL.
func (h *Handler) UploadAvatar(c *gin.Context) {
	if h.media == nil {
		response.ServiceUnavailable(c, "media storage not configured")
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file required")
		return
	}
	if file.Size > storage.MaxImageSize {
		response.BadRequest(c, "file too large")
		return
	}
	contentType := file.Header.Get("Content-Type")
	ext, ok := storage.ImageExtension(contentType)
	if !ok {
		response.BadRequest(c, "unsupported image type")
		return
	}
	f, err := file.Open()
	if err != nil {
		response.BadRequest(c, "unreadable file")
		return
	}
	defer f.Close()

	userID := c.MustGet(auth.ContextUserID).(uuid.UUID)
	key := storage.AvatarKey(userID.String(), ext, time.Now())
	url, err := h.media.Upload(c.Request.Context(), key, contentType, f, file.Size)
	if err != nil {
		h.logger.Error("avatar upload failed", zap.Error(err), zap.String("user_id", userID.String()))
		response.Internal(c, "failed to upload avatar")
		return
	}
	p, err := h.store.SetAvatarURL(c.Request.Context(), userID, url)
	if err != nil {
		h.fail(c, err, "failed to save avatar")
		return
	}
	response.OK(c, p)
}

func (h *Handler) fail(c *gin.Context, err error, fallback string) {
	if !errors.Is(err, apperror.ErrNotFound) {
		h.logger.Error(fallback, zap.Error(err))
	}
	response.FromError(c, err, fallback)
}
