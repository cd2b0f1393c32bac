package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/recruitx-service/internal/models"
	"github.com/SAP-F-2025/recruitx-service/internal/repositories"
	"github.com/SAP-F-2025/recruitx-service/internal/services"
	"github.com/SAP-F-2025/recruitx-service/internal/utils"
	"github.com/SAP-F-2025/recruitx-service/internal/validator"
)

const healthTimeout = 3 * time.Second

type HandlerManager struct {
	serviceManager    services.ServiceManager
	sessionHandler    *SessionHandler
	presenceHandler   *PresenceHandler
	enrollmentHandler *EnrollmentHandler
	userHandler       *UserHandler
	authMiddleware    *CasdoorAuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	tokenParser TokenParser,
	userRepo repositories.UserRepository,
) *HandlerManager {
	return &HandlerManager{
		serviceManager: serviceManager,
		sessionHandler: NewSessionHandler(serviceManager.Activity(), serviceManager.Heartbeat(),
			serviceManager.Auth(), validator, logger),
		presenceHandler:   NewPresenceHandler(serviceManager.Presence(), serviceManager.Export(), validator, logger),
		enrollmentHandler: NewEnrollmentHandler(serviceManager.Enrollment(), logger),
		userHandler:       NewUserHandler(userRepo, logger),
		authMiddleware:    NewCasdoorAuthMiddleware(tokenParser, userRepo, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.health)

	v1 := router.Group("/api/v1")

	// Enrollment begins with sign-in, so it takes credentials instead of a token
	v1.POST("/enrollments", hm.enrollmentHandler.Enroll)

	authed := v1.Group("")
	authed.Use(hm.authMiddleware.AuthMiddleware())
	{
		authed.GET("/enrollments/:uid", hm.enrollmentHandler.GetEnrollment)
		authed.GET("/users/me", hm.userHandler.GetMe)

		sessions := authed.Group("/sessions")
		{
			sessions.POST("", hm.sessionHandler.StartSession)
			sessions.GET("/me", hm.sessionHandler.GetSession)
			sessions.GET("/live", hm.sessionHandler.LiveSession)
			sessions.POST("/page", hm.sessionHandler.ChangePage)
			sessions.POST("/logout", hm.sessionHandler.Logout)
		}

		// Recruiter dashboard
		presence := authed.Group("/presence")
		presence.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleRecruiter))
		{
			presence.GET("/users", hm.presenceHandler.ListUsers)
			presence.GET("/users/stream", hm.presenceHandler.StreamUsers)
			presence.GET("/active-count", hm.presenceHandler.ActiveCount)
			presence.GET("/active-count/stream", hm.presenceHandler.StreamActiveCount)
			presence.GET("/export", hm.presenceHandler.Export)
		}

		users := authed.Group("/users")
		users.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleRecruiter))
		{
			users.GET("", hm.userHandler.ListUsers)
			users.GET("/:id", hm.userHandler.GetUser)
		}
	}
}

func (hm *HandlerManager) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	if err := hm.serviceManager.HealthCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": "recruitx-service",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "recruitx-service",
	})
}
