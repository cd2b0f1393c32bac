package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "recruitx-service"
	EventVersion = "1.0"
)

// Event types
const (
	TypeUserLoggedIn        = "user.logged_in"
	TypeUserLoggedOut       = "user.logged_out"
	TypeEnrollmentCompleted = "enrollment.completed"
)

// Event is the envelope of every domain event
type Event struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Source    string            `json:"source"`
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	UserID    string            `json:"user_id"`
	Data      interface{}       `json:"data"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// NewEvent stamps an envelope for data about userID
func NewEvent(eventType, userID string, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		UserID:    userID,
		Data:      data,
		Metadata:  map[string]string{},
	}
}

type UserLoggedInEvent struct {
	UID         string  `json:"uid"`
	Email       string  `json:"email"`
	Role        string  `json:"role"`
	DeviceInfo  string  `json:"device_info,omitempty"`
	BiometricID *string `json:"biometric_id,omitempty"`
}

type UserLoggedOutEvent struct {
	UID string `json:"uid"`
}

type EnrollmentCompletedEvent struct {
	UID            string `json:"uid"`
	Email          string `json:"email"`
	BiometricID    string `json:"biometric_id"`
	Persisted      bool   `json:"persisted"`
	CaptureSkipped bool   `json:"capture_skipped"`
}

// EventPublisher delivers domain events to a broker
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// NoopPublisher drops events; used when no broker is configured
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, event *Event) error { return nil }
func (NoopPublisher) Close() error                                      { return nil }
