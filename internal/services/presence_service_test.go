package services

import (
	"context"
	"testing"
	"time"

	"github.com/SAP-F-2025/recruitx-service/internal/models"
)

func TestFormatRelativeAge(t *testing.T) {
	now := epoch
	ago := func(ms int64) *time.Time {
		ts := now.Add(-time.Duration(ms) * time.Millisecond)
		return &ts
	}

	tests := []struct {
		name string
		ts   *time.Time
		want string
	}{
		{name: "nil", ts: nil, want: "N/A"},
		{name: "zero", ts: ago(0), want: "just now"},
		{name: "under a minute", ts: ago(59_999), want: "just now"},
		{name: "one minute", ts: ago(60_000), want: "1m ago"},
		{name: "last minute of the hour", ts: ago(3_599_999), want: "59m ago"},
		{name: "one hour", ts: ago(3_600_000), want: "1h ago"},
		{name: "last hour of the day", ts: ago(86_399_999), want: "23h ago"},
		{name: "one day", ts: ago(86_400_000), want: "1d ago"},
		{name: "ten days", ts: ago(10 * 86_400_000), want: "10d ago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatRelativeAge(tt.ts, now); got != tt.want {
				t.Errorf("FormatRelativeAge() = %q, want %q", got, tt.want)
			}
		})
	}
}

// waitForView reads views until pred holds
func waitForView[T any](t *testing.T, ch <-chan T, pred func(T) bool) T {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case v, ok := <-ch:
			if !ok {
				t.Fatal("Channel closed before the expected view")
			}
			if pred(v) {
				return v
			}
		case <-deadline:
			t.Fatal("Timed out waiting for view")
		}
	}
}

func TestPresence_ObserveByRole(t *testing.T) {
	env := newTestEnv(t)
	presence := NewPresenceService(env.tracker, env.clock, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	env.login(t, "c2", models.RoleCandidate)
	env.login(t, "c1", models.RoleCandidate)
	env.login(t, "r1", models.RoleRecruiter)

	views := presence.ObserveByRole(ctx, models.RoleCandidate)

	first := receive(t, views)
	if !first.Loading || len(first.Users) != 0 {
		t.Fatalf("Expected an empty loading view first, got %+v", first)
	}

	view := receive(t, views)
	if view.Loading || view.Err != nil {
		t.Fatalf("Expected a loaded view, got %+v", view)
	}
	if len(view.Users) != 2 || view.Users[0].UID != "c1" || view.Users[1].UID != "c2" {
		t.Fatalf("Expected candidates c1, c2 in uid order, got %+v", view.Users)
	}
	if view.Users[0].TimeSinceLogin != "just now" || view.Users[0].TimeSinceActivity != "just now" {
		t.Errorf("Expected fresh ages, got %q / %q", view.Users[0].TimeSinceLogin, view.Users[0].TimeSinceActivity)
	}

	env.clock.Advance(5 * time.Minute)
	env.login(t, "c3", models.RoleCandidate)

	view = waitForView(t, views, func(v PresenceView) bool { return len(v.Users) == 3 })
	ages := map[string]string{}
	for _, u := range view.Users {
		ages[u.UID] = u.TimeSinceLogin
	}
	if ages["c1"] != "5m ago" || ages["c3"] != "just now" {
		t.Errorf("Expected ages recomputed per emission, got %v", ages)
	}
}

func TestPresence_ObserveByRoleDropsRemovedUsers(t *testing.T) {
	env := newTestEnv(t)
	presence := NewPresenceService(env.tracker, env.clock, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	env.login(t, "c1", models.RoleCandidate)
	env.login(t, "c2", models.RoleCandidate)

	views := presence.ObserveByRole(ctx, models.RoleCandidate)
	waitForView(t, views, func(v PresenceView) bool { return len(v.Users) == 2 })

	env.repo.ActivityStore().Delete("c2")
	// Deleting bypasses the tracker, so announce the change as an operator tool would
	env.tracker.RecordPageChange(ctx, "c1", "dashboard")

	view := waitForView(t, views, func(v PresenceView) bool { return len(v.Users) == 1 })
	if view.Users[0].UID != "c1" {
		t.Errorf("Expected only c1 to remain, got %s", view.Users[0].UID)
	}
}

func TestPresence_ObserveActiveCount(t *testing.T) {
	env := newTestEnv(t)
	presence := NewPresenceService(env.tracker, env.clock, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	counts := presence.ObserveActiveCount(ctx)
	if first := receive(t, counts); !first.Loading {
		t.Fatalf("Expected a loading view first, got %+v", first)
	}
	if view := receive(t, counts); view.Count != 0 || view.Loading {
		t.Fatalf("Expected 0 on an empty set, got %+v", view)
	}

	env.login(t, "c1", models.RoleCandidate)
	env.login(t, "r1", models.RoleRecruiter)
	waitForView(t, counts, func(v CountView) bool { return v.Count == 2 })

	env.tracker.RecordLogout(ctx, "c1")
	waitForView(t, counts, func(v CountView) bool { return v.Count == 1 })
}

func TestPresence_SubscriptionFailure(t *testing.T) {
	env := newTestEnv(t)
	presence := NewPresenceService(env.tracker, env.clock, discardLogger())

	// A closed feed refuses new subscriptions
	if err := env.repo.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	views := presence.ObserveByRole(context.Background(), models.RoleCandidate)
	receive(t, views)

	view := receive(t, views)
	if view.Err == nil {
		t.Fatal("Expected the failure to be reported")
	}
	if view.Loading || len(view.Users) != 0 {
		t.Errorf("Expected an empty set with loading cleared, got %+v", view)
	}

	select {
	case _, ok := <-views:
		if ok {
			t.Error("Expected the view channel to close after a failure")
		}
	case <-time.After(waitTimeout):
		t.Error("Expected the view channel to close")
	}

	counts := presence.ObserveActiveCount(context.Background())
	receive(t, counts)
	if view := receive(t, counts); view.Err == nil || view.Count != 0 {
		t.Errorf("Expected a failed zero count, got %+v", view)
	}
}

func TestPresence_CancelClosesStream(t *testing.T) {
	env := newTestEnv(t)
	presence := NewPresenceService(env.tracker, env.clock, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())

	views := presence.ObserveByRole(ctx, models.RoleRecruiter)
	receive(t, views)
	cancel()

	deadline := time.After(waitTimeout)
	for {
		select {
		case _, ok := <-views:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("Expected the view channel to close after cancel")
		}
	}
}

func TestPresence_OneShotReads(t *testing.T) {
	env := newTestEnv(t)
	presence := NewPresenceService(env.tracker, env.clock, discardLogger())
	ctx := context.Background()

	env.login(t, "c1", models.RoleCandidate)
	env.login(t, "r1", models.RoleRecruiter)
	env.tracker.RecordLogout(ctx, "r1")
	env.clock.Advance(2 * time.Hour)

	users, err := presence.ListByRole(ctx, models.RoleRecruiter)
	if err != nil {
		t.Fatalf("ListByRole failed: %v", err)
	}
	if len(users) != 1 || users[0].Status != models.StatusInactive {
		t.Fatalf("Expected one inactive recruiter, got %+v", users)
	}
	if users[0].TimeSinceActivity != "2h ago" {
		t.Errorf("Expected 2h ago, got %q", users[0].TimeSinceActivity)
	}

	count, err := presence.ActiveCount(ctx)
	if err != nil {
		t.Fatalf("ActiveCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 active user, got %d", count)
	}
}
