package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/jonboulle/clockwork"

	"github.com/SAP-F-2025/recruitx-service/internal/events"
	"github.com/SAP-F-2025/recruitx-service/internal/models"
	"github.com/SAP-F-2025/recruitx-service/internal/repositories/changefeed"
	"github.com/SAP-F-2025/recruitx-service/internal/repositories/memory"
)

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

const waitTimeout = 2 * time.Second

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	clock     *clockwork.FakeClock
	repo      *memory.MemoryRepository
	publisher *events.MockEventPublisher
	tracker   ActivityTracker
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := clockwork.NewFakeClockAt(epoch)
	feed := changefeed.NewChannelFeed(watermill.NopLogger{})
	repo := memory.NewMemoryRepository(clock, feed, nil)
	publisher := events.NewMockEventPublisher(discardLogger())
	t.Cleanup(func() { _ = repo.Close() })

	return &testEnv{
		clock:     clock,
		repo:      repo,
		publisher: publisher,
		tracker:   NewActivityTracker(repo, publisher, discardLogger()),
	}
}

func (e *testEnv) login(t *testing.T, uid string, role models.UserRole) {
	t.Helper()
	e.tracker.RecordLogin(context.Background(), models.LoginEntry{
		UID:   uid,
		Email: uid + "@example.com",
		Role:  role,
	})
}

// eventually polls cond until it holds or the wait times out
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting: %s", msg)
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatal("Channel closed unexpectedly")
		}
		return v
	case <-time.After(waitTimeout):
		t.Fatal("Timed out waiting for value")
	}
	var zero T
	return zero
}

func blockUntil(t *testing.T, clock *clockwork.FakeClock, waiters int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	if err := clock.BlockUntilContext(ctx, waiters); err != nil {
		t.Fatalf("Clock never reached %d waiters: %v", waiters, err)
	}
}
