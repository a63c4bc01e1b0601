package main

import (
	"github.com/gin-gonic/gin"

	"github.com/eventflow/eventflow/internal/analytics"
	"github.com/eventflow/eventflow/internal/auth"
	"github.com/eventflow/eventflow/internal/clubs"
	"github.com/eventflow/eventflow/internal/events"
	"github.com/eventflow/eventflow/internal/middleware"
	"github.com/eventflow/eventflow/internal/models"
	"github.com/eventflow/eventflow/internal/profiles"
	"github.com/eventflow/eventflow/internal/registrations"
	"github.com/eventflow/eventflow/pkg/response"
)

type handlers struct {
	auth          *auth.Handler
	profiles      *profiles.Handler
	clubs         *clubs.Handler
	events        *events.Handler
	registrations *registrations.Handler
	analytics     *analytics.Handler
}

// registerRoutes mounts the API. session authenticates the bearer token and role resolves the caller's role.
func registerRoutes(router *gin.Engine, h handlers, session, role gin.HandlerFunc) {
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/signup", h.auth.SignUp)
		authGroup.POST("/login", h.auth.SignIn)
		authGroup.POST("/refresh", session, h.auth.Refresh)
		authGroup.POST("/logout", session, h.auth.SignOut)
		authGroup.GET("/session", session, h.auth.Session)
	}

	// Public catalogue
	router.GET("/clubs", h.clubs.List)
	router.GET("/clubs/:id", h.clubs.Get)
	router.GET("/events", h.events.List)
	router.GET("/events/:id", h.events.Get)

	manager := middleware.RequireRole(models.RoleAdmin, models.RoleClubAdmin)

	api := router.Group("")
	api.Use(session, role)
	{
		// Profiles and roles
		api.GET("/profiles/:user_id", h.profiles.Get)
		api.POST("/profiles", h.profiles.Create)
		api.PATCH("/profiles/me", h.profiles.UpdateMe)
		api.POST("/profiles/me/avatar", h.profiles.UploadAvatar)
		api.POST("/profiles/me/avatar/upload-url", h.profiles.AvatarUploadURL)
		api.GET("/roles/:user_id", h.profiles.GetRole)

		// Clubs
		api.POST("/clubs", manager, h.clubs.Create)
		api.PATCH("/clubs/:id", manager, h.clubs.Update)
		api.POST("/clubs/:id/logo/upload-url", manager, h.clubs.LogoUploadURL)

		// Events
		api.POST("/events", manager, h.events.Create)
		api.PATCH("/events/:id", manager, h.events.Update)
		api.DELETE("/events/:id", manager, h.events.Delete)

		// Registrations
		api.GET("/registrations/me", h.registrations.Mine)
		api.GET("/events/:id/registrations", manager, h.registrations.ByEvent)
		api.GET("/events/:id/registration", h.registrations.Active)
		api.POST("/events/:id/register", h.registrations.Register)
		api.DELETE("/events/:id/register", h.registrations.Cancel)

		// Stats
		api.GET("/stats", manager, h.analytics.Summary)
		api.GET("/events/:id/stats", manager, h.analytics.GetByEvent)
	}
}
