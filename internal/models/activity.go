package models

import "time"

// Logical collection names, also used as change-feed channels
const (
	CollectionUserActivity = "userActivity"
	CollectionUsers        = "users"
)

type ActivityStatus string

const (
	StatusActive   ActivityStatus = "active"
	StatusInactive ActivityStatus = "inactive"
)

// ActivityRecord is the per-session presence document, one per uid
type ActivityRecord struct {
	UID          string         `json:"uid" gorm:"primaryKey;size:255"`
	Email        string         `json:"email" gorm:"size:255"`
	DisplayName  string         `json:"display_name" gorm:"size:255"`
	Role         UserRole       `json:"role" gorm:"size:32;index"`
	Status       ActivityStatus `json:"status" gorm:"size:16;index"`
	LoginTime    *time.Time     `json:"login_time"`
	LastActivity *time.Time     `json:"last_activity"`
	CurrentPage  *string        `json:"current_page,omitempty" gorm:"size:255"`
	DeviceInfo   string         `json:"device_info,omitempty" gorm:"size:512"`
	BiometricID  *string        `json:"biometric_id" gorm:"size:255"`
}

func (ActivityRecord) TableName() string {
	return "user_activity"
}

// LoginEntry carries the fields written by a login upsert
type LoginEntry struct {
	UID         string
	Email       string
	DisplayName string
	Role        UserRole
	DeviceInfo  string
	BiometricID *string
}

// ActivityFilter selects records for a presence query. Exactly one of
// Role or Status is expected; an empty filter means status=active.
type ActivityFilter struct {
	Role   *UserRole
	Status *ActivityStatus
}

// ByRole builds a role filter
func ByRole(role UserRole) ActivityFilter {
	return ActivityFilter{Role: &role}
}

// ActiveOnly builds the status=active filter
func ActiveOnly() ActivityFilter {
	status := StatusActive
	return ActivityFilter{Status: &status}
}

// Normalize applies the empty-filter default
func (f ActivityFilter) Normalize() ActivityFilter {
	if f.Role == nil && f.Status == nil {
		return ActiveOnly()
	}
	return f
}

// Matches reports whether rec satisfies the filter
func (f ActivityFilter) Matches(rec *ActivityRecord) bool {
	f = f.Normalize()
	if f.Role != nil && rec.Role != *f.Role {
		return false
	}
	if f.Status != nil && rec.Status != *f.Status {
		return false
	}
	return true
}
