package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/recruitx-service/internal/repositories"
	"github.com/SAP-F-2025/recruitx-service/internal/services"
	"github.com/SAP-F-2025/recruitx-service/internal/utils"
	"github.com/SAP-F-2025/recruitx-service/internal/validator"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// BaseHandler carries the logger shared by all handlers
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) requestLogger(c *gin.Context) utils.Logger {
	return utils.FromGinContext(c, h.logger)
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	attrs := append([]any{"method", c.Request.Method, "path", c.FullPath()}, args...)
	h.requestLogger(c).Info(msg, attrs...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	attrs := append([]any{"error", err, "path", c.FullPath()}, args...)
	h.requestLogger(c).Error(msg, attrs...)
}

// handleServiceError maps service errors to HTTP status codes
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	hasDetails := errors.As(err, &validationErrors)

	switch {
	case errors.Is(err, services.ErrProfileIncomplete):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "Profile incomplete",
			Details: validationErrors,
		})
	case hasDetails, errors.Is(err, services.ErrValidationFailed):
		resp := ErrorResponse{Message: "Validation failed", Details: err.Error()}
		if hasDetails {
			resp.Details = validationErrors
		}
		c.JSON(http.StatusBadRequest, resp)
	case errors.Is(err, services.ErrAuthenticationFailed):
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "Authentication failed",
		})
	case errors.Is(err, services.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Session not found",
		})
	case errors.Is(err, services.ErrEnrollmentNotFound), errors.Is(err, repositories.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Resource not found",
		})
	case errors.Is(err, services.ErrHeartbeatActive):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Session already has a live connection",
		})
	case errors.Is(err, services.ErrInvalidState):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Invalid state",
			Details: err.Error(),
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}

// requireUserID writes 401 and returns false when the request is anonymous
func (h *BaseHandler) requireUserID(c *gin.Context) (string, bool) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return "", false
	}
	return userID, true
}
