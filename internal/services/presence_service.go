package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/SAP-F-2025/recruitx-service/internal/models"
)

type presenceService struct {
	tracker ActivityTracker
	clock   clockwork.Clock
	logger  *slog.Logger
}

func NewPresenceService(tracker ActivityTracker, clock clockwork.Clock, logger *slog.Logger) PresenceService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &presenceService{
		tracker: tracker,
		clock:   clock,
		logger:  logger,
	}
}

// ObserveByRole emits a loading view, then one full view per snapshot until
// ctx ends. Each view replaces the previous one.
func (s *presenceService) ObserveByRole(ctx context.Context, role models.UserRole) <-chan PresenceView {
	out := make(chan PresenceView, 1)
	out <- PresenceView{Users: []PresenceUser{}, Loading: true}

	go func() {
		defer close(out)

		snapshots, err := s.tracker.Subscribe(ctx, models.ByRole(role))
		if err != nil {
			s.logger.Error("Presence subscription failed", "role", role, "error", err)
			emit(ctx, out, PresenceView{Users: []PresenceUser{}, Err: err})
			return
		}

		for snap := range snapshots {
			if !emit(ctx, out, PresenceView{Users: s.annotate(snap)}) {
				return
			}
		}
	}()

	return out
}

func (s *presenceService) ObserveActiveCount(ctx context.Context) <-chan CountView {
	out := make(chan CountView, 1)
	out <- CountView{Loading: true}

	go func() {
		defer close(out)

		snapshots, err := s.tracker.Subscribe(ctx, models.ActiveOnly())
		if err != nil {
			s.logger.Error("Active count subscription failed", "error", err)
			emit(ctx, out, CountView{Err: err})
			return
		}

		for snap := range snapshots {
			if !emit(ctx, out, CountView{Count: len(snap)}) {
				return
			}
		}
	}()

	return out
}

// ListByRole is a one-shot read of the current role view
func (s *presenceService) ListByRole(ctx context.Context, role models.UserRole) ([]PresenceUser, error) {
	snap, err := s.snapshot(ctx, models.ByRole(role))
	if err != nil {
		return nil, err
	}
	return s.annotate(snap), nil
}

func (s *presenceService) ActiveCount(ctx context.Context) (int, error) {
	snap, err := s.snapshot(ctx, models.ActiveOnly())
	if err != nil {
		return 0, err
	}
	return len(snap), nil
}

// snapshot takes the first emission of a short-lived subscription
func (s *presenceService) snapshot(ctx context.Context, filter models.ActivityFilter) (Snapshot, error) {
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	snapshots, err := s.tracker.Subscribe(subCtx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to read presence: %w", err)
	}

	select {
	case snap, ok := <-snapshots:
		if !ok {
			return nil, fmt.Errorf("failed to read presence: subscription closed")
		}
		return snap, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *presenceService) annotate(snap Snapshot) []PresenceUser {
	now := s.clock.Now()
	users := make([]PresenceUser, len(snap))
	for i, rec := range snap {
		users[i] = PresenceUser{
			ActivityRecord:    rec,
			TimeSinceLogin:    FormatRelativeAge(rec.LoginTime, now),
			TimeSinceActivity: FormatRelativeAge(rec.LastActivity, now),
		}
	}
	return users
}

// FormatRelativeAge renders now-ts with floored units: "just now", "Nm ago",
// "Nh ago" or "Nd ago". A nil timestamp renders as "N/A".
func FormatRelativeAge(ts *time.Time, now time.Time) string {
	if ts == nil {
		return "N/A"
	}

	mins := int64(now.Sub(*ts) / time.Minute)
	hours := mins / 60
	days := hours / 24

	switch {
	case mins < 1:
		return "just now"
	case mins < 60:
		return fmt.Sprintf("%dm ago", mins)
	case hours < 24:
		return fmt.Sprintf("%dh ago", hours)
	default:
		return fmt.Sprintf("%dd ago", days)
	}
}

// emit blocks until the reader takes v or ctx ends. Coalescing happens
// upstream in the tracker, so a slow reader still gets the newest snapshot.
func emit[T any](ctx context.Context, ch chan<- T, v T) bool {
	select {
	case ch <- v:
		return true
	case <-ctx.Done():
		return false
	}
}
