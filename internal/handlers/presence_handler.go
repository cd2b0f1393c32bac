package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/recruitx-service/internal/models"
	"github.com/SAP-F-2025/recruitx-service/internal/services"
	"github.com/SAP-F-2025/recruitx-service/internal/utils"
	"github.com/SAP-F-2025/recruitx-service/internal/validator"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type PresenceHandler struct {
	BaseHandler
	presence  services.PresenceService
	export    services.ExportService
	validator *validator.Validator
}

func NewPresenceHandler(
	presence services.PresenceService,
	export services.ExportService,
	validator *validator.Validator,
	logger utils.Logger,
) *PresenceHandler {
	return &PresenceHandler{
		BaseHandler: NewBaseHandler(logger),
		presence:    presence,
		export:      export,
		validator:   validator,
	}
}

// parseRole reads ?role=, defaulting to candidates
func (h *PresenceHandler) parseRole(c *gin.Context) (models.UserRole, bool) {
	var query validator.PresenceQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid query parameters",
			Details: err.Error(),
		})
		return "", false
	}
	if errs := h.validator.Validate(&query); len(errs) > 0 {
		h.handleServiceError(c, errs)
		return "", false
	}

	if query.Role == "" {
		return models.RoleCandidate, true
	}
	return models.UserRole(query.Role), true
}

// ListUsers returns every session of one role with relative ages
// @Summary List presence by role
// @Tags presence
// @Produce json
// @Param role query string false "candidate (default) or recruiter"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /presence/users [get]
func (h *PresenceHandler) ListUsers(c *gin.Context) {
	role, ok := h.parseRole(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Listing presence", "role", role)

	users, err := h.presence.ListByRole(c.Request.Context(), role)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"role":  role,
		"users": users,
		"total": len(users),
	})
}

// StreamUsers sends one "presence" event per snapshot of the role
// @Summary Stream presence by role
// @Tags presence
// @Produce text/event-stream
// @Param role query string false "candidate (default) or recruiter"
// @Router /presence/users/stream [get]
func (h *PresenceHandler) StreamUsers(c *gin.Context) {
	role, ok := h.parseRole(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Streaming presence", "role", role)

	views := h.presence.ObserveByRole(c.Request.Context(), role)
	c.Stream(func(w io.Writer) bool {
		view, ok := <-views
		if !ok {
			return false
		}
		if view.Err != nil {
			h.LogError(c, view.Err, "Presence stream failed", "role", role)
			c.SSEvent("error", gin.H{"message": "presence unavailable", "users": view.Users, "loading": false})
			return false
		}
		c.SSEvent("presence", view)
		return true
	})
}

func (h *PresenceHandler) ActiveCount(c *gin.Context) {
	h.LogRequest(c, "Counting active users")

	count, err := h.presence.ActiveCount(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}

// StreamActiveCount sends one "count" event per snapshot of active sessions
func (h *PresenceHandler) StreamActiveCount(c *gin.Context) {
	h.LogRequest(c, "Streaming active count")

	counts := h.presence.ObserveActiveCount(c.Request.Context())
	c.Stream(func(w io.Writer) bool {
		view, ok := <-counts
		if !ok {
			return false
		}
		if view.Err != nil {
			h.LogError(c, view.Err, "Active count stream failed")
			c.SSEvent("error", gin.H{"message": "presence unavailable", "count": 0, "loading": false})
			return false
		}
		c.SSEvent("count", view)
		return true
	})
}

// Export downloads the role view as a spreadsheet
// @Summary Export presence
// @Tags presence
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param role query string false "candidate (default) or recruiter"
// @Router /presence/export [get]
func (h *PresenceHandler) Export(c *gin.Context) {
	role, ok := h.parseRole(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Exporting presence", "role", role)

	data, err := h.export.ExportPresence(c.Request.Context(), role)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="presence-%s.xlsx"`, role))
	c.Data(http.StatusOK, xlsxContentType, data)
}
