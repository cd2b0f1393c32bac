package repositories

import (
	"context"

	"github.com/SAP-F-2025/recruitx-service/internal/models"
)

// ActivityRepository is the userActivity collection. Timestamps are assigned
// by the store, never by the caller.
type ActivityRepository interface {
	// UpsertLogin creates or merges the record for entry.UID with status=active
	// and loginTime == lastActivity == server now. A biometric ID already on
	// the record is kept.
	UpsertLogin(ctx context.Context, entry models.LoginEntry) error

	// Field updates; all return ErrNotFound when the record is missing
	TouchLastActivity(ctx context.Context, uid string) error
	MarkInactive(ctx context.Context, uid string) error
	SetCurrentPage(ctx context.Context, uid, page string) error

	GetByUID(ctx context.Context, uid string) (*models.ActivityRecord, error)

	// List returns matching records ordered by uid
	List(ctx context.Context, filter models.ActivityFilter) ([]*models.ActivityRecord, error)
}
