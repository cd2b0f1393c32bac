package services

import (
	"context"
	"time"

	"github.com/SAP-F-2025/recruitx-service/internal/models"
	"github.com/SAP-F-2025/recruitx-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

type EnrollmentRequest = validator.EnrollmentRequest

// Snapshot is the complete matching set of one subscription emission, in uid order
type Snapshot []*models.ActivityRecord

// ByUID indexes the snapshot by user identifier
func (s Snapshot) ByUID() map[string]*models.ActivityRecord {
	m := make(map[string]*models.ActivityRecord, len(s))
	for _, rec := range s {
		m[rec.UID] = rec
	}
	return m
}

// PresenceUser is an activity record annotated with relative ages
type PresenceUser struct {
	*models.ActivityRecord
	TimeSinceLogin    string `json:"time_since_login"`
	TimeSinceActivity string `json:"time_since_activity"`
}

// PresenceView is one emission of a role observation
type PresenceView struct {
	Users   []PresenceUser `json:"users"`
	Loading bool           `json:"loading"`
	Err     error          `json:"-"`
}

// CountView is one emission of the active-count observation
type CountView struct {
	Count   int   `json:"count"`
	Loading bool  `json:"loading"`
	Err     error `json:"-"`
}

// EnrollmentResult describes a completed enrollment
type EnrollmentResult struct {
	User        models.AuthUser `json:"user"`
	BiometricID string          `json:"biometric_id"`
	// Persisted is false when the record write failed and a fallback token was issued
	Persisted      bool      `json:"persisted"`
	CaptureSkipped bool      `json:"capture_skipped"`
	CompletedAt    time.Time `json:"completed_at"`
}

// CompletionFunc receives the enrolled user once the display delay has passed
type CompletionFunc func(user models.AuthUser, biometricID string)

// ===== SERVICE INTERFACES =====

// ActivityTracker is the sole writer of activity and enrollment records.
// Login, logout and page changes are best effort: failures are logged, never returned.
type ActivityTracker interface {
	RecordLogin(ctx context.Context, entry models.LoginEntry)
	// RecordHeartbeat returns ErrRecordNotFound when the session record is gone
	RecordHeartbeat(ctx context.Context, uid string) error
	RecordLogout(ctx context.Context, uid string)
	RecordPageChange(ctx context.Context, uid, page string)
	RecordEnrollment(ctx context.Context, rec *models.EnrollmentRecord) error

	Get(ctx context.Context, uid string) (*models.ActivityRecord, error)
	GetEnrollment(ctx context.Context, uid string) (*models.EnrollmentRecord, error)

	// Subscribe emits a full Snapshot on open and after every change until ctx ends
	Subscribe(ctx context.Context, filter models.ActivityFilter) (<-chan Snapshot, error)
}

type HeartbeatService interface {
	// Start runs a heartbeat for uid until the handle is stopped or ctx ends
	Start(ctx context.Context, uid string) (*Heartbeat, error)
	// Stop ends uid's heartbeat, reporting whether one was running
	Stop(uid string) bool
	Active(uid string) bool
	StopAll()
}

type PresenceService interface {
	ObserveByRole(ctx context.Context, role models.UserRole) <-chan PresenceView
	ObserveActiveCount(ctx context.Context) <-chan CountView
	ListByRole(ctx context.Context, role models.UserRole) ([]PresenceUser, error)
	ActiveCount(ctx context.Context) (int, error)
}

type EnrollmentService interface {
	// Begin starts a flow for a successful authentication
	Begin(outcome AuthOutcome) (*EnrollmentFlow, error)
	// Enroll authenticates, collects the profile and captures in one call
	Enroll(ctx context.Context, req *EnrollmentRequest) (*EnrollmentResult, error)
	Get(ctx context.Context, uid string) (*models.EnrollmentRecord, error)
}

type AuthService interface {
	SignInWithPassword(ctx context.Context, email, password string) AuthOutcome
	SignUp(ctx context.Context, email, password, displayName string) AuthOutcome
	SignInWithFederated(ctx context.Context, code, state string) AuthOutcome
	SignOut(uid string)
	// OnAuthStateChange calls fn with the user on sign-in and nil on sign-out
	OnAuthStateChange(fn func(user *models.AuthUser)) (unsubscribe func())
}

type ExportService interface {
	ExportPresence(ctx context.Context, role models.UserRole) ([]byte, error)
}

type ServiceManager interface {
	Initialize(ctx context.Context) error

	Activity() ActivityTracker
	Heartbeat() HeartbeatService
	Presence() PresenceService
	Enrollment() EnrollmentService
	Auth() AuthService
	Export() ExportService

	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
