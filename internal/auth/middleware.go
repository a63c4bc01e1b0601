package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventflow/eventflow/pkg/response"
)

const (
	// ContextUserID is the key for the user ID in gin context.
	ContextUserID = "user_id"
	// ContextUserEmail is the key for the user email in gin context.
	ContextUserEmail = "user_email"
	// ContextClaims is the key for the full token claims in gin context.
	ContextClaims = "claims"
)

// RequireSession returns a middleware that validates the bearer token and sets user claims in context.
func RequireSession(jwtService *JWTService, revoker Revoker, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		if revoker != nil {
			revoked, err := revoker.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				logger.Warn("revocation check failed", zap.Error(err))
			}
			if revoked {
				response.Unauthorized(c, "session signed out")
				c.Abort()
				return
			}
		}
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserEmail, claims.Email)
		c.Set(ContextClaims, claims)
		c.Next()
	}
}
