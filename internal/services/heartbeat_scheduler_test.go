package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/SAP-F-2025/recruitx-service/internal/models"
)

const testInterval = 30 * time.Second

type fakeRecorder struct {
	mu    sync.Mutex
	calls int
	errs  []error
	seen  chan string
}

func newFakeRecorder(errs ...error) *fakeRecorder {
	return &fakeRecorder{errs: errs, seen: make(chan string, 16)}
}

func (r *fakeRecorder) RecordHeartbeat(ctx context.Context, uid string) error {
	r.mu.Lock()
	var err error
	if r.calls < len(r.errs) {
		err = r.errs[r.calls]
	}
	r.calls++
	r.mu.Unlock()

	r.seen <- uid
	return err
}

func (r *fakeRecorder) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func tick(t *testing.T, clock *clockwork.FakeClock, rec *fakeRecorder) {
	t.Helper()
	blockUntil(t, clock, 1)
	clock.Advance(testInterval)
	receive(t, rec.seen)
}

func TestHeartbeat_WritesEveryInterval(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	rec := newFakeRecorder()
	scheduler := NewHeartbeatScheduler(rec, clock, testInterval, discardLogger())

	h, err := scheduler.Start(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer h.Stop()

	if h.State() != HeartbeatRunning {
		t.Errorf("Expected running, got %s", h.State())
	}
	if rec.Calls() != 0 {
		t.Errorf("Expected no write before the first interval, got %d", rec.Calls())
	}

	for i := 0; i < 3; i++ {
		tick(t, clock, rec)
	}
	if rec.Calls() != 3 {
		t.Errorf("Expected 3 writes, got %d", rec.Calls())
	}
}

func TestHeartbeat_NoWritesAfterStop(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	rec := newFakeRecorder()
	scheduler := NewHeartbeatScheduler(rec, clock, testInterval, discardLogger())

	h, err := scheduler.Start(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	tick(t, clock, rec)

	h.Stop()
	h.Stop()

	if h.State() != HeartbeatStopped {
		t.Errorf("Expected stopped, got %s", h.State())
	}
	if scheduler.Active("u1") {
		t.Error("Expected heartbeat to leave the registry")
	}

	clock.Advance(10 * testInterval)
	time.Sleep(20 * time.Millisecond)
	if rec.Calls() != 1 {
		t.Errorf("Expected no writes after stop, got %d total", rec.Calls())
	}
}

func TestHeartbeat_StopsWhenRecordGone(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	rec := newFakeRecorder(ErrRecordNotFound)
	scheduler := NewHeartbeatScheduler(rec, clock, testInterval, discardLogger())

	h, err := scheduler.Start(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	tick(t, clock, rec)

	select {
	case <-h.Done():
	case <-time.After(waitTimeout):
		t.Fatal("Expected heartbeat to end on its own")
	}
	if scheduler.Active("u1") {
		t.Error("Expected heartbeat to be deregistered")
	}
}

func TestHeartbeat_TransientErrorsContinue(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	rec := newFakeRecorder(errors.New("connection reset"))
	scheduler := NewHeartbeatScheduler(rec, clock, testInterval, discardLogger())

	h, err := scheduler.Start(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer h.Stop()

	tick(t, clock, rec)
	tick(t, clock, rec)

	if rec.Calls() != 2 {
		t.Errorf("Expected 2 writes, got %d", rec.Calls())
	}
	if h.State() != HeartbeatRunning {
		t.Errorf("Expected running after a transient error, got %s", h.State())
	}
}

func TestHeartbeat_OnePerUser(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	scheduler := NewHeartbeatScheduler(newFakeRecorder(), clock, testInterval, discardLogger())
	ctx := context.Background()

	first, err := scheduler.Start(ctx, "u1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := scheduler.Start(ctx, "u1"); !errors.Is(err, ErrHeartbeatActive) {
		t.Errorf("Expected ErrHeartbeatActive, got %v", err)
	}

	other, err := scheduler.Start(ctx, "u2")
	if err != nil {
		t.Fatalf("Start for another user failed: %v", err)
	}
	defer other.Stop()

	if !scheduler.Stop("u1") {
		t.Error("Expected Stop to report a running heartbeat")
	}
	if scheduler.Stop("u1") {
		t.Error("Expected second Stop to report nothing running")
	}
	<-first.Done()

	again, err := scheduler.Start(ctx, "u1")
	if err != nil {
		t.Fatalf("Restart after stop failed: %v", err)
	}
	again.Stop()
}

func TestHeartbeat_ContextCancelStops(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	scheduler := NewHeartbeatScheduler(newFakeRecorder(), clock, testInterval, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	h, err := scheduler.Start(ctx, "u1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	cancel()
	select {
	case <-h.Done():
	case <-time.After(waitTimeout):
		t.Fatal("Expected heartbeat to stop on cancel")
	}
}

func TestHeartbeat_StopAll(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	scheduler := NewHeartbeatScheduler(newFakeRecorder(), clock, testInterval, discardLogger())

	var handles []*Heartbeat
	for _, uid := range []string{"a", "b", "c"} {
		h, err := scheduler.Start(context.Background(), uid)
		if err != nil {
			t.Fatalf("Start %s failed: %v", uid, err)
		}
		handles = append(handles, h)
	}

	scheduler.StopAll()

	for _, h := range handles {
		if h.State() != HeartbeatStopped {
			t.Errorf("Expected %s stopped, got %s", h.UID(), h.State())
		}
	}
}

func TestHeartbeat_RefreshesActivityRecord(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "u1", models.RoleCandidate)

	scheduler := NewHeartbeatScheduler(env.tracker, env.clock, testInterval, discardLogger())
	h, err := scheduler.Start(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer h.Stop()

	blockUntil(t, env.clock, 1)
	env.clock.Advance(testInterval)
	want := epoch.Add(testInterval)

	eventually(t, func() bool {
		rec, err := env.tracker.Get(context.Background(), "u1")
		return err == nil && rec.LastActivity != nil && rec.LastActivity.Equal(want)
	}, "lastActivity to advance")
}

func TestHeartbeat_EndsWhenSessionDeleted(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "u1", models.RoleCandidate)

	scheduler := NewHeartbeatScheduler(env.tracker, env.clock, testInterval, discardLogger())
	h, err := scheduler.Start(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	env.repo.ActivityStore().Delete("u1")
	blockUntil(t, env.clock, 1)
	env.clock.Advance(testInterval)

	select {
	case <-h.Done():
	case <-time.After(waitTimeout):
		t.Fatal("Expected heartbeat to end once the record is gone")
	}
}

// A logout recorded outside this scheduler (another instance) ends the heartbeat on its next tick
func TestHeartbeat_EndsWhenSessionLoggedOut(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "u1", models.RoleCandidate)

	scheduler := NewHeartbeatScheduler(env.tracker, env.clock, testInterval, discardLogger())
	h, err := scheduler.Start(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	env.tracker.RecordLogout(context.Background(), "u1")
	rec, _ := env.tracker.Get(context.Background(), "u1")
	loggedOutAt := *rec.LastActivity

	blockUntil(t, env.clock, 1)
	env.clock.Advance(testInterval)

	select {
	case <-h.Done():
	case <-time.After(waitTimeout):
		t.Fatal("Expected heartbeat to end once the session is inactive")
	}

	rec, _ = env.tracker.Get(context.Background(), "u1")
	if !rec.LastActivity.Equal(loggedOutAt) {
		t.Errorf("Expected no write after logout, lastActivity moved to %v", rec.LastActivity)
	}
}
