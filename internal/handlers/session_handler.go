package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/recruitx-service/internal/models"
	"github.com/SAP-F-2025/recruitx-service/internal/services"
	"github.com/SAP-F-2025/recruitx-service/internal/utils"
	"github.com/SAP-F-2025/recruitx-service/internal/validator"
)

// SessionHandler drives the caller's own activity record. A session is live
// while its stream connection is open.
type SessionHandler struct {
	BaseHandler
	tracker   services.ActivityTracker
	heartbeat services.HeartbeatService
	auth      services.AuthService
	validator *validator.Validator
}

func NewSessionHandler(
	tracker services.ActivityTracker,
	heartbeat services.HeartbeatService,
	auth services.AuthService,
	validator *validator.Validator,
	logger utils.Logger,
) *SessionHandler {
	return &SessionHandler{
		BaseHandler: NewBaseHandler(logger),
		tracker:     tracker,
		heartbeat:   heartbeat,
		auth:        auth,
		validator:   validator,
	}
}

// StartSession records a login for the authenticated user
// @Summary Start session
// @Tags sessions
// @Produce json
// @Success 201 {object} models.ActivityRecord
// @Success 202 {object} SuccessResponse "Login accepted, record not yet readable"
// @Failure 401 {object} ErrorResponse
// @Router /sessions [post]
func (h *SessionHandler) StartSession(c *gin.Context) {
	user, err := GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	h.LogRequest(c, "Starting session", "uid", user.ID, "role", user.Role)

	ctx := c.Request.Context()
	h.tracker.RecordLogin(ctx, models.LoginEntry{
		UID:         user.ID,
		Email:       user.Email,
		DisplayName: user.FullName,
		Role:        user.Role,
		DeviceInfo:  c.Request.UserAgent(),
	})

	// The login write is best effort, so a missing record is not an error here
	rec, err := h.tracker.Get(ctx, user.ID)
	if err != nil {
		c.JSON(http.StatusAccepted, SuccessResponse{Message: "Login accepted"})
		return
	}

	c.JSON(http.StatusCreated, rec)
}

// GetSession returns the caller's activity record
func (h *SessionHandler) GetSession(c *gin.Context) {
	uid, ok := h.requireUserID(c)
	if !ok {
		return
	}

	rec, err := h.tracker.Get(c.Request.Context(), uid)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, rec)
}

// LiveSession keeps the caller's heartbeat running for as long as this
// event stream stays open
// @Summary Live session stream
// @Tags sessions
// @Produce text/event-stream
// @Failure 404 {object} ErrorResponse "No session record, call POST /sessions first"
// @Failure 409 {object} ErrorResponse "Another live connection holds the heartbeat, or the session was logged out"
// @Router /sessions/live [get]
func (h *SessionHandler) LiveSession(c *gin.Context) {
	uid, ok := h.requireUserID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	rec, err := h.tracker.Get(ctx, uid)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	if rec.Status != models.StatusActive {
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Session has ended",
		})
		return
	}

	hb, err := h.heartbeat.Start(ctx, uid)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	defer hb.Stop()

	h.LogRequest(c, "Live session opened", "uid", uid)

	opened := false
	c.Stream(func(w io.Writer) bool {
		if !opened {
			opened = true
			c.SSEvent("session", rec)
			return true
		}

		select {
		case <-hb.Done():
			c.SSEvent("ended", gin.H{"uid": uid})
		case <-ctx.Done():
		}
		return false
	})

	h.LogRequest(c, "Live session closed", "uid", uid)
}

// ChangePage records the caller's current page
func (h *SessionHandler) ChangePage(c *gin.Context) {
	uid, ok := h.requireUserID(c)
	if !ok {
		return
	}

	var req validator.PageChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if errs := h.validator.Validate(&req); len(errs) > 0 {
		h.handleServiceError(c, errs)
		return
	}

	h.LogRequest(c, "Changing page", "uid", uid, "page", req.Page)
	h.tracker.RecordPageChange(c.Request.Context(), uid, req.Page)

	c.Status(http.StatusNoContent)
}

// Logout stops the caller's heartbeat and marks the session inactive.
// Repeating it is harmless.
func (h *SessionHandler) Logout(c *gin.Context) {
	uid, ok := h.requireUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Logging out", "uid", uid)

	h.heartbeat.Stop(uid)
	h.tracker.RecordLogout(c.Request.Context(), uid)
	h.auth.SignOut(uid)

	c.Status(http.StatusNoContent)
}

