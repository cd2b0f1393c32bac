package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/SAP-F-2025/recruitx-service/internal/capture"
	"github.com/SAP-F-2025/recruitx-service/internal/events"
	"github.com/SAP-F-2025/recruitx-service/internal/models"
	"github.com/SAP-F-2025/recruitx-service/internal/validator"
)

type EnrollmentState int32

const (
	EnrollmentIdle EnrollmentState = iota
	EnrollmentCollectingProfile
	EnrollmentCapturing
	EnrollmentComplete
)

func (s EnrollmentState) String() string {
	switch s {
	case EnrollmentCollectingProfile:
		return "collecting-profile"
	case EnrollmentCapturing:
		return "capturing"
	case EnrollmentComplete:
		return "complete"
	default:
		return "idle"
	}
}

// EnrollmentConfig holds capture and completion timing
type EnrollmentConfig struct {
	RequiredSamples int
	DisplayDelay    time.Duration
}

type enrollmentService struct {
	auth      AuthService
	tracker   ActivityTracker
	device    capture.Device
	publisher events.EventPublisher
	validator *validator.Validator
	clock     clockwork.Clock
	config    EnrollmentConfig
	logger    *slog.Logger
}

func NewEnrollmentService(
	auth AuthService,
	tracker ActivityTracker,
	device capture.Device,
	publisher events.EventPublisher,
	validator *validator.Validator,
	clock clockwork.Clock,
	config EnrollmentConfig,
	logger *slog.Logger,
) EnrollmentService {
	if device == nil {
		device = capture.UnavailableDevice{}
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if config.RequiredSamples < 1 {
		config.RequiredSamples = 1
	}
	return &enrollmentService{
		auth:      auth,
		tracker:   tracker,
		device:    device,
		publisher: publisher,
		validator: validator,
		clock:     clock,
		config:    config,
		logger:    logger,
	}
}

// Begin opens a flow for an authenticated user. A failed authentication
// never starts one.
func (s *enrollmentService) Begin(outcome AuthOutcome) (*EnrollmentFlow, error) {
	switch out := outcome.(type) {
	case AuthSuccess:
		f := &EnrollmentFlow{user: out.User, svc: s}
		f.begin()
		return f, nil
	case AuthFailure:
		return nil, out
	default:
		return nil, fmt.Errorf("%w: no authentication outcome", ErrInvalidState)
	}
}

func (s *enrollmentService) Enroll(ctx context.Context, req *EnrollmentRequest) (*EnrollmentResult, error) {
	if errs := s.validator.GetBusinessValidator().ValidateEnrollment(req); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, errs)
	}

	var outcome AuthOutcome
	switch req.Method {
	case validator.MethodPassword:
		outcome = s.auth.SignInWithPassword(ctx, req.Email, req.Password)
	case validator.MethodSignUp:
		outcome = s.auth.SignUp(ctx, req.Email, req.Password, req.DisplayName)
	case validator.MethodFederated:
		outcome = s.auth.SignInWithFederated(ctx, req.Code, req.State)
	}

	flow, err := s.Begin(outcome)
	if err != nil {
		return nil, err
	}
	if err := flow.SetProfile(req.Profile); err != nil {
		return nil, err
	}

	return flow.Capture(ctx, s.onComplete)
}

func (s *enrollmentService) Get(ctx context.Context, uid string) (*models.EnrollmentRecord, error) {
	return s.tracker.GetEnrollment(ctx, uid)
}

// onComplete signs the enrolled candidate in once the display delay is over
func (s *enrollmentService) onComplete(user models.AuthUser, biometricID string) {
	ctx := context.Background()
	s.tracker.RecordLogin(ctx, models.LoginEntry{
		UID:         user.UID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        models.RoleCandidate,
		BiometricID: &biometricID,
	})
}

func (s *enrollmentService) publishCompleted(ctx context.Context, result *EnrollmentResult) {
	event := events.NewEvent(events.TypeEnrollmentCompleted, result.User.UID, events.EnrollmentCompletedEvent{
		UID:            result.User.UID,
		Email:          result.User.Email,
		BiometricID:    result.BiometricID,
		Persisted:      result.Persisted,
		CaptureSkipped: result.CaptureSkipped,
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event", "event_type", event.Type, "uid", result.User.UID, "error", err)
	}
}

// EnrollmentFlow walks one authenticated user from profile collection to a
// stored biometric enrollment. It is safe for concurrent use.
type EnrollmentFlow struct {
	svc  *enrollmentService
	user models.AuthUser

	mu      sync.Mutex
	state   EnrollmentState
	profile models.StudentInfo
	result  *EnrollmentResult
}

func (f *EnrollmentFlow) begin() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.profile = models.StudentInfo{Email: f.user.Email}
	f.state = EnrollmentCollectingProfile
}

func (f *EnrollmentFlow) User() models.AuthUser {
	return f.user
}

func (f *EnrollmentFlow) State() EnrollmentState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *EnrollmentFlow) Profile() models.StudentInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profile
}

// Result is nil until the flow is complete
func (f *EnrollmentFlow) Result() *EnrollmentResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result
}

// SetProfile replaces the collected profile. A blank email keeps the
// authenticated one.
func (f *EnrollmentFlow) SetProfile(info models.StudentInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != EnrollmentCollectingProfile {
		return fmt.Errorf("%w: cannot edit profile while %s", ErrInvalidState, f.state)
	}
	if strings.TrimSpace(info.Email) == "" {
		info.Email = f.user.Email
	}
	f.profile = info
	return nil
}

// Capture runs the capture device until enough samples arrive, then stores
// the enrollment and schedules onComplete after the display delay. A missing
// device completes the flow without samples. If ctx ends mid-capture the
// device is released and the flow returns to profile collection.
func (f *EnrollmentFlow) Capture(ctx context.Context, onComplete CompletionFunc) (*EnrollmentResult, error) {
	if err := f.startCapture(); err != nil {
		return nil, err
	}

	skipped, err := f.runCapture(ctx)
	if err != nil {
		f.mu.Lock()
		f.state = EnrollmentCollectingProfile
		f.mu.Unlock()
		return nil, err
	}

	result := f.complete(ctx, skipped)
	f.svc.publishCompleted(ctx, result)

	if onComplete != nil {
		user, token := result.User, result.BiometricID
		f.svc.clock.AfterFunc(f.svc.config.DisplayDelay, func() {
			onComplete(user, token)
		})
	}
	return result, nil
}

func (f *EnrollmentFlow) startCapture() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != EnrollmentCollectingProfile {
		return fmt.Errorf("%w: cannot capture while %s", ErrInvalidState, f.state)
	}
	if errs := f.svc.validator.GetBusinessValidator().ProfileComplete(f.profile); len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrProfileIncomplete, errs)
	}
	f.state = EnrollmentCapturing
	return nil
}

// runCapture reports skipped=true when no samples were taken
func (f *EnrollmentFlow) runCapture(ctx context.Context) (skipped bool, err error) {
	stream, err := f.svc.device.Acquire(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		if errors.Is(err, capture.ErrDeviceUnavailable) {
			f.svc.logger.Info("No capture device, completing without samples", "uid", f.user.UID)
		} else {
			f.svc.logger.Warn("Capture device failed, completing without samples", "uid", f.user.UID, "error", err)
		}
		return true, nil
	}
	defer func() {
		if cerr := stream.Close(); cerr != nil {
			f.svc.logger.Warn("Failed to release capture device", "uid", f.user.UID, "error", cerr)
		}
	}()

	progress := stream.Progress()
	for {
		select {
		case n, ok := <-progress:
			if !ok {
				f.svc.logger.Warn("Capture stream ended early", "uid", f.user.UID)
				return true, nil
			}
			if n >= f.svc.config.RequiredSamples {
				return false, nil
			}
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}

// complete stores the enrollment. A failed write still completes the flow
// with a fallback token.
func (f *EnrollmentFlow) complete(ctx context.Context, skipped bool) *EnrollmentResult {
	f.mu.Lock()
	profile := f.profile
	f.mu.Unlock()

	now := f.svc.clock.Now()
	token := biometricToken(f.user.UID, now)
	persisted := true

	displayName := f.user.DisplayName
	if displayName == "" {
		displayName = profile.Name
	}

	rec := &models.EnrollmentRecord{
		UID:              f.user.UID,
		Email:            f.user.Email,
		DisplayName:      displayName,
		BiometricID:      token,
		EnrollmentDate:   now,
		EnrollmentStatus: models.EnrollmentCompleted,
	}
	err := rec.SetProfile(profile)
	if err == nil {
		err = f.svc.tracker.RecordEnrollment(ctx, rec)
	}
	if err != nil {
		f.svc.logger.Error("Failed to store enrollment", "uid", f.user.UID, "operation", "enrollment", "error", err)
		token = fallbackBiometricToken(f.user.UID, f.svc.clock.Now())
		persisted = false
	}

	result := &EnrollmentResult{
		User:           f.user,
		BiometricID:    token,
		Persisted:      persisted,
		CaptureSkipped: skipped,
		CompletedAt:    now,
	}

	f.mu.Lock()
	f.state = EnrollmentComplete
	f.result = result
	f.mu.Unlock()

	f.svc.logger.Info("Enrollment completed", "uid", f.user.UID, "persisted", persisted, "capture_skipped", skipped)
	return result
}

// biometricToken is unique per user, millisecond and random suffix
func biometricToken(uid string, at time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:13]
	return fmt.Sprintf("bio_%s_%d_%s", uid, at.UnixMilli(), suffix)
}

func fallbackBiometricToken(uid string, at time.Time) string {
	return fmt.Sprintf("bio_%s_%d", uid, at.UnixMilli())
}
