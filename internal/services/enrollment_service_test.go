package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SAP-F-2025/recruitx-service/internal/capture"
	"github.com/SAP-F-2025/recruitx-service/internal/events"
	"github.com/SAP-F-2025/recruitx-service/internal/models"
	"github.com/SAP-F-2025/recruitx-service/internal/validator"
)

const testDisplayDelay = 2 * time.Second

// scriptedDevice hands out streams that deliver a fixed run of samples
type scriptedDevice struct {
	samples  int
	closeRun bool // close the progress channel after the samples
	acquired atomic.Int32
	released atomic.Int32
}

func (d *scriptedDevice) Acquire(ctx context.Context) (capture.Stream, error) {
	d.acquired.Add(1)
	progress := make(chan int, d.samples)
	for i := 1; i <= d.samples; i++ {
		progress <- i
	}
	if d.closeRun {
		close(progress)
	}
	return &scriptedStream{progress: progress, device: d}, nil
}

type scriptedStream struct {
	progress chan int
	device   *scriptedDevice
	once     sync.Once
}

func (s *scriptedStream) Progress() <-chan int { return s.progress }

func (s *scriptedStream) Close() error {
	s.once.Do(func() { s.device.released.Add(1) })
	return nil
}

// countingTracker counts enrollment writes and can fail them
type countingTracker struct {
	ActivityTracker
	writes atomic.Int32
	err    error
}

func (c *countingTracker) RecordEnrollment(ctx context.Context, rec *models.EnrollmentRecord) error {
	c.writes.Add(1)
	if c.err != nil {
		return c.err
	}
	return c.ActivityTracker.RecordEnrollment(ctx, rec)
}

type completion struct {
	user  models.AuthUser
	token string
}

func recordCompletions() (CompletionFunc, <-chan completion) {
	ch := make(chan completion, 4)
	return func(user models.AuthUser, token string) {
		ch <- completion{user: user, token: token}
	}, ch
}

func completeProfile() models.StudentInfo {
	return models.StudentInfo{
		Name:            "Ana Lima",
		Year:            "3",
		InstitutionName: "State University",
		Phone:           "+1 555 0100",
		InstitutionID:   "SU-42",
	}
}

type enrollmentFixture struct {
	env     *testEnv
	tracker *countingTracker
	device  *scriptedDevice
	svc     *enrollmentService
}

func newEnrollmentFixture(t *testing.T, device capture.Device) *enrollmentFixture {
	t.Helper()
	env := newTestEnv(t)
	tracker := &countingTracker{ActivityTracker: env.tracker}

	identity := newFakeIdentity()
	identity.passwords["ana@example.com"] = "secret1"
	auth := NewAuthService(identity, discardLogger())

	svc := NewEnrollmentService(auth, tracker, device, env.publisher, validator.New(), env.clock,
		EnrollmentConfig{RequiredSamples: 3, DisplayDelay: testDisplayDelay}, discardLogger()).(*enrollmentService)

	f := &enrollmentFixture{env: env, tracker: tracker, svc: svc}
	if d, ok := device.(*scriptedDevice); ok {
		f.device = d
	}
	return f
}

func (f *enrollmentFixture) begin(t *testing.T) *EnrollmentFlow {
	t.Helper()
	flow, err := f.svc.Begin(AuthSuccess{User: models.AuthUser{UID: "u1", Email: "ana@example.com"}})
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := flow.SetProfile(completeProfile()); err != nil {
		t.Fatalf("SetProfile failed: %v", err)
	}
	return flow
}

func expectNoCompletion(t *testing.T, ch <-chan completion) {
	t.Helper()
	select {
	case c := <-ch:
		t.Fatalf("Unexpected completion %+v", c)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestEnrollment_BeginRequiresSuccess(t *testing.T) {
	f := newEnrollmentFixture(t, &scriptedDevice{samples: 3})

	flow, err := f.svc.Begin(AuthFailure{Reason: errors.New("bad password")})
	if flow != nil || !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("Expected authentication failure and no flow, got %v, %v", flow, err)
	}
	if _, err := f.svc.Begin(nil); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState for a missing outcome, got %v", err)
	}

	flow, err = f.svc.Begin(AuthSuccess{User: models.AuthUser{UID: "u1", Email: "ana@example.com"}})
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if flow.State() != EnrollmentCollectingProfile {
		t.Errorf("Expected collecting-profile, got %s", flow.State())
	}
	profile := flow.Profile()
	if profile.Email != "ana@example.com" || profile.Name != "" || profile.InstitutionID != "" {
		t.Errorf("Expected only the email prefilled, got %+v", profile)
	}
}

func TestEnrollment_IncompleteProfile(t *testing.T) {
	f := newEnrollmentFixture(t, &scriptedDevice{samples: 3})
	flow, _ := f.svc.Begin(AuthSuccess{User: models.AuthUser{UID: "u1", Email: "ana@example.com"}})

	profile := completeProfile()
	profile.Phone = "   "
	if err := flow.SetProfile(profile); err != nil {
		t.Fatalf("SetProfile failed: %v", err)
	}

	_, err := flow.Capture(context.Background(), nil)
	if !errors.Is(err, ErrProfileIncomplete) {
		t.Fatalf("Expected ErrProfileIncomplete, got %v", err)
	}
	if flow.State() != EnrollmentCollectingProfile {
		t.Errorf("Expected the flow to stay in collecting-profile, got %s", flow.State())
	}
	if f.device.acquired.Load() != 0 {
		t.Error("Expected the device to stay untouched")
	}
}

func TestEnrollment_CaptureCompletes(t *testing.T) {
	f := newEnrollmentFixture(t, &scriptedDevice{samples: 3})
	flow := f.begin(t)
	onComplete, completions := recordCompletions()

	result, err := flow.Capture(context.Background(), onComplete)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}

	if flow.State() != EnrollmentComplete {
		t.Errorf("Expected complete, got %s", flow.State())
	}
	if got := f.tracker.writes.Load(); got != 1 {
		t.Errorf("Expected exactly one enrollment write, got %d", got)
	}
	if f.device.released.Load() != 1 {
		t.Error("Expected the capture stream to be released")
	}
	if !result.Persisted || result.CaptureSkipped {
		t.Errorf("Expected a persisted camera enrollment, got %+v", result)
	}

	prefix := fmt.Sprintf("bio_u1_%d_", epoch.UnixMilli())
	if !strings.HasPrefix(result.BiometricID, prefix) || len(result.BiometricID) != len(prefix)+13 {
		t.Errorf("Unexpected token %q", result.BiometricID)
	}

	rec, err := f.svc.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rec.BiometricID != result.BiometricID || rec.EnrollmentStatus != models.EnrollmentCompleted {
		t.Errorf("Unexpected stored record %+v", rec)
	}
	if rec.DisplayName != "Ana Lima" {
		t.Errorf("Expected the profile name as display name, got %q", rec.DisplayName)
	}
	stored, err := rec.Profile()
	if err != nil || stored.InstitutionID != "SU-42" || stored.Email != "ana@example.com" {
		t.Errorf("Unexpected stored profile %+v (%v)", stored, err)
	}

	// The callback waits for the display delay and fires once
	expectNoCompletion(t, completions)
	blockUntil(t, f.env.clock, 1)
	f.env.clock.Advance(testDisplayDelay - time.Millisecond)
	expectNoCompletion(t, completions)
	f.env.clock.Advance(time.Millisecond)

	c := receive(t, completions)
	if c.user.UID != "u1" || c.token != result.BiometricID {
		t.Errorf("Unexpected completion %+v", c)
	}
	f.env.clock.Advance(10 * testDisplayDelay)
	expectNoCompletion(t, completions)

	published := f.env.publisher.GetPublishedEvents()
	last := published[len(published)-1]
	if last.Type != events.TypeEnrollmentCompleted {
		t.Errorf("Expected enrollment.completed last, got %s", last.Type)
	}
}

func TestEnrollment_StoreFailureStillCompletes(t *testing.T) {
	f := newEnrollmentFixture(t, &scriptedDevice{samples: 3})
	f.tracker.err = errors.New("database unavailable")
	flow := f.begin(t)
	onComplete, completions := recordCompletions()

	result, err := flow.Capture(context.Background(), onComplete)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if result.Persisted {
		t.Error("Expected Persisted=false")
	}
	want := fmt.Sprintf("bio_u1_%d", epoch.UnixMilli())
	if result.BiometricID != want {
		t.Errorf("Expected fallback token %q, got %q", want, result.BiometricID)
	}
	if f.device.released.Load() != 1 {
		t.Error("Expected the capture stream to be released on the failure path")
	}

	blockUntil(t, f.env.clock, 1)
	f.env.clock.Advance(testDisplayDelay)
	if c := receive(t, completions); c.token != want {
		t.Errorf("Expected callback with %q, got %q", want, c.token)
	}
	expectNoCompletion(t, completions)
}

func TestEnrollment_DeviceUnavailable(t *testing.T) {
	f := newEnrollmentFixture(t, capture.UnavailableDevice{})
	flow := f.begin(t)

	result, err := flow.Capture(context.Background(), nil)
	if err != nil {
		t.Fatalf("Expected completion without a device, got %v", err)
	}
	if !result.CaptureSkipped || !result.Persisted {
		t.Errorf("Expected a persisted skipped capture, got %+v", result)
	}
	if flow.State() != EnrollmentComplete {
		t.Errorf("Expected complete, got %s", flow.State())
	}
}

func TestEnrollment_StreamEndsEarly(t *testing.T) {
	device := &scriptedDevice{samples: 1, closeRun: true}
	f := newEnrollmentFixture(t, device)
	flow := f.begin(t)

	result, err := flow.Capture(context.Background(), nil)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if !result.CaptureSkipped {
		t.Error("Expected an early end to count as skipped")
	}
	if device.released.Load() != 1 {
		t.Error("Expected the stream to be released")
	}
}

func TestEnrollment_CancelledCaptureReleasesDevice(t *testing.T) {
	device := &scriptedDevice{samples: 1}
	f := newEnrollmentFixture(t, device)
	flow := f.begin(t)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := flow.Capture(ctx, nil)
		errCh <- err
	}()

	eventually(t, func() bool { return device.acquired.Load() == 1 }, "device acquired")
	cancel()

	if err := receive(t, errCh); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if device.released.Load() != 1 {
		t.Error("Expected the stream to be released on cancel")
	}
	if flow.State() != EnrollmentCollectingProfile {
		t.Errorf("Expected collecting-profile after cancel, got %s", flow.State())
	}
	if f.tracker.writes.Load() != 0 {
		t.Error("Expected no enrollment write")
	}
}

func TestEnrollment_CaptureOnlyOnce(t *testing.T) {
	f := newEnrollmentFixture(t, &scriptedDevice{samples: 3})
	flow := f.begin(t)

	if _, err := flow.Capture(context.Background(), nil); err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if _, err := flow.Capture(context.Background(), nil); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState on a second capture, got %v", err)
	}
	if err := flow.SetProfile(completeProfile()); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState editing a completed flow, got %v", err)
	}
}

func TestEnrollment_EnrollSignsCandidateIn(t *testing.T) {
	f := newEnrollmentFixture(t, &scriptedDevice{samples: 3})
	ctx := context.Background()

	result, err := f.svc.Enroll(ctx, &EnrollmentRequest{
		Method:   validator.MethodPassword,
		Email:    "ana@example.com",
		Password: "secret1",
		Profile:  completeProfile(),
	})
	if err != nil {
		t.Fatalf("Enroll failed: %v", err)
	}

	if _, err := f.env.tracker.Get(ctx, result.User.UID); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("Expected no session before the display delay, got %v", err)
	}

	blockUntil(t, f.env.clock, 1)
	f.env.clock.Advance(testDisplayDelay)

	eventually(t, func() bool {
		rec, err := f.env.tracker.Get(ctx, result.User.UID)
		return err == nil && rec.BiometricID != nil && *rec.BiometricID == result.BiometricID &&
			rec.Role == models.RoleCandidate && rec.Status == models.StatusActive
	}, "candidate session carrying the biometric ID")
}

func TestEnrollment_EnrollRejects(t *testing.T) {
	f := newEnrollmentFixture(t, &scriptedDevice{samples: 3})
	ctx := context.Background()

	tests := []struct {
		name    string
		req     *EnrollmentRequest
		wantErr error
	}{
		{
			name:    "bad method",
			req:     &EnrollmentRequest{Method: "magic", Profile: completeProfile()},
			wantErr: ErrValidationFailed,
		},
		{
			name:    "missing password",
			req:     &EnrollmentRequest{Method: validator.MethodPassword, Email: "ana@example.com", Profile: completeProfile()},
			wantErr: ErrValidationFailed,
		},
		{
			name:    "wrong password",
			req:     &EnrollmentRequest{Method: validator.MethodPassword, Email: "ana@example.com", Password: "wrong-one", Profile: completeProfile()},
			wantErr: ErrAuthenticationFailed,
		},
		{
			name:    "incomplete profile",
			req:     &EnrollmentRequest{Method: validator.MethodPassword, Email: "ana@example.com", Password: "secret1"},
			wantErr: ErrProfileIncomplete,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Enroll(ctx, tt.req); !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
	if f.tracker.writes.Load() != 0 {
		t.Errorf("Expected no enrollment writes, got %d", f.tracker.writes.Load())
	}
}
