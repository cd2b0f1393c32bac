package validator

import "github.com/SAP-F-2025/recruitx-service/internal/models"

// Enrollment authentication methods
const (
	MethodPassword  = "password"
	MethodSignUp    = "signup"
	MethodFederated = "federated"
)

// EnrollmentRequest authenticates a candidate and carries the profile to enroll
type EnrollmentRequest struct {
	Method      string             `json:"method" validate:"required,oneof=password signup federated"`
	Email       string             `json:"email" validate:"omitempty,email"`
	Password    string             `json:"password" validate:"omitempty,min=6,max=128"`
	DisplayName string             `json:"display_name" validate:"omitempty,max=100"`
	Code        string             `json:"code"`
	State       string             `json:"state"`
	Profile     models.StudentInfo `json:"profile" validate:"-"`
}

// PageChangeRequest records the caller's current UI location
type PageChangeRequest struct {
	Page string `json:"page" validate:"page_label"`
}

// PresenceQuery selects the records a presence read returns
type PresenceQuery struct {
	Role string `form:"role" json:"role" validate:"omitempty,user_role"`
}
