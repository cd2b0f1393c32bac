package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/recruitx-service/internal/models"
	"github.com/SAP-F-2025/recruitx-service/internal/services"
	"github.com/SAP-F-2025/recruitx-service/internal/utils"
)

type EnrollmentHandler struct {
	BaseHandler
	enrollment services.EnrollmentService
}

func NewEnrollmentHandler(enrollment services.EnrollmentService, logger utils.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		BaseHandler: NewBaseHandler(logger),
		enrollment:  enrollment,
	}
}

// Enroll authenticates a candidate, captures and stores the enrollment
// @Summary Enroll candidate
// @Description Signs in (password, signup or federated code), checks the profile, runs capture and stores the biometric enrollment
// @Tags enrollments
// @Accept json
// @Produce json
// @Param enrollment body validator.EnrollmentRequest true "Credentials and profile"
// @Success 201 {object} services.EnrollmentResult
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse "Profile incomplete"
// @Router /enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req services.EnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Enrolling candidate", "method", req.Method)

	result, err := h.enrollment.Enroll(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// GetEnrollment reads an enrollment record. Candidates may only read their own.
// @Summary Get enrollment
// @Tags enrollments
// @Produce json
// @Param uid path string true "User ID"
// @Success 200 {object} models.EnrollmentRecord
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /enrollments/{uid} [get]
func (h *EnrollmentHandler) GetEnrollment(c *gin.Context) {
	uid := c.Param("uid")

	callerID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	role, _ := GetUserRoleFromContext(c)
	if role != models.RoleRecruiter && callerID != uid {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
		})
		return
	}

	h.LogRequest(c, "Getting enrollment", "uid", uid)

	rec, err := h.enrollment.Get(c.Request.Context(), uid)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, rec)
}
