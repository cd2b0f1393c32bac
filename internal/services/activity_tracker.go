package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/recruitx-service/internal/events"
	"github.com/SAP-F-2025/recruitx-service/internal/models"
	"github.com/SAP-F-2025/recruitx-service/internal/repositories"
)

type activityTracker struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    *slog.Logger
}

func NewActivityTracker(repo repositories.Repository, publisher events.EventPublisher, logger *slog.Logger) ActivityTracker {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &activityTracker{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// changed notifies subscribers; a lost notice only delays the next snapshot
func (t *activityTracker) changed(ctx context.Context, collection string) {
	if err := t.repo.ChangeFeed().Publish(ctx, collection); err != nil {
		t.logger.Warn("Failed to publish change", "collection", collection, "error", err)
	}
}

func (t *activityTracker) publish(ctx context.Context, event *events.Event) {
	if err := t.publisher.Publish(ctx, event); err != nil {
		t.logger.Warn("Failed to publish event", "event_type", event.Type, "uid", event.UserID, "error", err)
	}
}

func (t *activityTracker) RecordLogin(ctx context.Context, entry models.LoginEntry) {
	entry.DisplayName = models.DefaultDisplayName(entry.DisplayName, entry.Email)

	if err := t.repo.Activity().UpsertLogin(ctx, entry); err != nil {
		t.logger.Error("Failed to record login", "uid", entry.UID, "operation", "login", "error", err)
		return
	}
	t.changed(ctx, models.CollectionUserActivity)

	t.publish(ctx, events.NewEvent(events.TypeUserLoggedIn, entry.UID, events.UserLoggedInEvent{
		UID:         entry.UID,
		Email:       entry.Email,
		Role:        string(entry.Role),
		DeviceInfo:  entry.DeviceInfo,
		BiometricID: entry.BiometricID,
	}))
}

func (t *activityTracker) RecordHeartbeat(ctx context.Context, uid string) error {
	err := t.repo.Activity().TouchLastActivity(ctx, uid)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrRecordNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to record heartbeat: %w", err)
	}

	t.changed(ctx, models.CollectionUserActivity)
	return nil
}

func (t *activityTracker) RecordLogout(ctx context.Context, uid string) {
	err := t.repo.Activity().MarkInactive(ctx, uid)
	if errors.Is(err, repositories.ErrNotFound) {
		t.logger.Warn("Logout for unknown session", "uid", uid)
		return
	}
	if err != nil {
		t.logger.Error("Failed to record logout", "uid", uid, "operation", "logout", "error", err)
		return
	}
	t.changed(ctx, models.CollectionUserActivity)

	t.publish(ctx, events.NewEvent(events.TypeUserLoggedOut, uid, events.UserLoggedOutEvent{UID: uid}))
}

func (t *activityTracker) RecordPageChange(ctx context.Context, uid, page string) {
	if err := t.repo.Activity().SetCurrentPage(ctx, uid, page); err != nil {
		t.logger.Error("Failed to record page change", "uid", uid, "operation", "page_change", "error", err)
		return
	}
	t.changed(ctx, models.CollectionUserActivity)
}

func (t *activityTracker) RecordEnrollment(ctx context.Context, rec *models.EnrollmentRecord) error {
	if err := t.repo.Enrollment().UpsertMerge(ctx, rec); err != nil {
		return fmt.Errorf("failed to record enrollment: %w", err)
	}
	t.changed(ctx, models.CollectionUsers)
	return nil
}

func (t *activityTracker) Get(ctx context.Context, uid string) (*models.ActivityRecord, error) {
	rec, err := t.repo.Activity().GetByUID(ctx, uid)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrRecordNotFound
	}
	return rec, err
}

func (t *activityTracker) GetEnrollment(ctx context.Context, uid string) (*models.EnrollmentRecord, error) {
	rec, err := t.repo.Enrollment().GetByUID(ctx, uid)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrEnrollmentNotFound
	}
	return rec, err
}

// Subscribe delivers the full matching set now and after every change. A slow
// reader only ever sees the newest snapshot.
func (t *activityTracker) Subscribe(ctx context.Context, filter models.ActivityFilter) (<-chan Snapshot, error) {
	changes, err := t.repo.ChangeFeed().Subscribe(ctx, models.CollectionUserActivity)
	if err != nil {
		return nil, fmt.Errorf("failed to open subscription: %w", err)
	}

	initial, err := t.repo.Activity().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	out := make(chan Snapshot, 1)
	out <- Snapshot(initial)

	go func() {
		defer close(out)
		for range changes {
			records, err := t.repo.Activity().List(ctx, filter)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				t.logger.Warn("Failed to refresh snapshot", "error", err)
				continue
			}
			sendLatest(out, Snapshot(records))
		}
	}()

	return out, nil
}

// sendLatest replaces any unread value so the channel holds the newest one.
// ch must have capacity 1 and a single sender.
func sendLatest[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- v
}
