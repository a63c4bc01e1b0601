package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventflow/eventflow/internal/auth"
	"github.com/eventflow/eventflow/internal/models"
	"github.com/eventflow/eventflow/pkg/response"
)

// ContextUserRole is the key for the resolved role in gin context.
const ContextUserRole = "user_role"

// RoleResolver returns the effective role of a user (RoleNone when the user has no role row).
type RoleResolver interface {
	EffectiveRole(ctx context.Context, userID uuid.UUID) (models.Role, error)
}

// ResolveRole looks up the caller's role once per request. Call after auth.RequireSession.
func ResolveRole(roles RoleResolver, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet(auth.ContextUserID).(uuid.UUID)
		role, err := roles.EffectiveRole(c.Request.Context(), userID)
		if err != nil {
			logger.Error("resolve role failed", zap.Error(err), zap.String("user_id", userID.String()))
			response.Internal(c, "failed to resolve role")
			c.Abort()
			return
		}
		c.Set(ContextUserRole, role)
		c.Next()
	}
}

// RequireRole returns a middleware that allows only the given roles. Call after ResolveRole.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{})
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		roleVal, ok := c.Get(ContextUserRole)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		role, _ := roleVal.(models.Role)
		if _, ok := allowed[role]; !ok {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}

// Role returns the role ResolveRole stored, RoleNone if absent.
func Role(c *gin.Context) models.Role {
	v, ok := c.Get(ContextUserRole)
	if !ok {
		return models.RoleNone
	}
	role, _ := v.(models.Role)
	return role
}
