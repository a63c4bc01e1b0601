package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventflow/eventflow/internal/apperror"
	"github.com/eventflow/eventflow/internal/models"
	"github.com/eventflow/eventflow/pkg/response"
)

// UserStore is the persistence the auth handler needs.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	CreateWithProfile(ctx context.Context, email, passwordHash, fullName string) (*models.User, error)
}

// SignUpRequest is the body for POST /auth/signup.
type SignUpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"full_name"`
}

// SignInRequest is the body for POST /auth/login.
type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SessionUser is the identity part of a session.
type SessionUser struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// SessionResponse is returned by every endpoint that opens or describes a session.
type SessionResponse struct {
	AccessToken string      `json:"access_token,omitempty"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        SessionUser `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	users   UserStore
	jwt     *JWTService
	revoker Revoker
	logger  *zap.Logger
}

// NewHandler creates an auth handler. revoker may be nil, in which case sign-out only ends the client session.
func NewHandler(users UserStore, jwt *JWTService, revoker Revoker, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{users: users, jwt: jwt, revoker: revoker, logger: logger}
}

// SignUp handles POST /auth/signup. The profile and student role are provisioned in the same transaction.
func (h *Handler) SignUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if weakPassword(err) {
			response.BadRequest(c, "password should be at least 6 characters")
			return
		}
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}
	user, err := h.users.CreateWithProfile(c.Request.Context(), normalizeEmail(req.Email), hash, strings.TrimSpace(req.FullName))
	if err != nil {
		if !errors.Is(err, apperror.ErrConflict) {
			h.logger.Error("sign up failed", zap.Error(err))
		}
		response.FromError(c, err, "failed to create user")
		return
	}
	h.issue(c, user, true)
}

// SignIn handles POST /auth/login.
func (h *Handler) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), normalizeEmail(req.Email))
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			h.logger.Error("load user failed", zap.Error(err))
			response.Internal(c, "failed to sign in")
			return
		}
		response.Unauthorized(c, "invalid login credentials")
		return
	}
	if !CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid login credentials")
		return
	}
	h.issue(c, user, false)
}

// Refresh handles POST /auth/refresh (JWT required). The old token stays valid until it expires.
func (h *Handler) Refresh(c *gin.Context) {
	claims := c.MustGet(ContextClaims).(*Claims)
	user, err := h.users.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Unauthorized(c, "session user no longer exists")
		return
	}
	h.issue(c, user, false)
}

// SignOut handles POST /auth/logout (JWT required).
func (h *Handler) SignOut(c *gin.Context) {
	claims := c.MustGet(ContextClaims).(*Claims)
	if h.revoker != nil && claims.ExpiresAt != nil {
		if err := h.revoker.Revoke(c.Request.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
			h.logger.Error("revoke token failed", zap.Error(err))
			response.Internal(c, "failed to sign out")
			return
		}
	}
	response.NoContent(c)
}

// Session handles GET /auth/session (JWT required).
func (h *Handler) Session(c *gin.Context) {
	claims := c.MustGet(ContextClaims).(*Claims)
	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	response.OK(c, SessionResponse{
		ExpiresAt: expiresAt,
		User:      SessionUser{ID: claims.UserID, Email: claims.Email},
	})
}

func (h *Handler) issue(c *gin.Context, user *models.User, created bool) {
	token, expiresAt, err := h.jwt.Generate(user.ID, user.Email)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	body := SessionResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		User:        SessionUser{ID: user.ID, Email: user.Email},
	}
	if created {
		response.Created(c, body)
		return
	}
	response.OK(c, body)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func weakPassword(err error) bool {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return false
	}
	for _, fe := range verrs {
		if fe.Field() == "Password" && fe.Tag() == "min" {
			return true
		}
	}
	return false
}
