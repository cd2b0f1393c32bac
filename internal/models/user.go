package models

import (
	"strings"
	"time"
)

type UserRole string

const (
	RoleCandidate UserRole = "candidate"
	RoleRecruiter UserRole = "recruiter"
)

// Valid reports whether r is one of the known roles
func (r UserRole) Valid() bool {
	return r == RoleCandidate || r == RoleRecruiter
}

// User is the identity-provider view of an account (read-only here)
type User struct {
	ID       string   `json:"id"`
	FullName string   `json:"full_name"`
	Email    string   `json:"email"`
	Role     UserRole `json:"role"`

	AvatarURL     *string `json:"avatar_url"`
	EmailVerified bool    `json:"email_verified"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AuthUser is the opaque authenticated-user handle produced by sign-in
type AuthUser struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

// DefaultDisplayName falls back to the local part of the email
func DefaultDisplayName(displayName, email string) string {
	if displayName != "" {
		return displayName
	}
	local, _, _ := strings.Cut(email, "@")
	return local
}
