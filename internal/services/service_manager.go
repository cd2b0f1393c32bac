package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/SAP-F-2025/recruitx-service/internal/capture"
	"github.com/SAP-F-2025/recruitx-service/internal/events"
	"github.com/SAP-F-2025/recruitx-service/internal/repositories"
	"github.com/SAP-F-2025/recruitx-service/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	HeartbeatInterval time.Duration
	Enrollment        EnrollmentConfig
}

// ServiceDependencies are the collaborators every service is built from
type ServiceDependencies struct {
	Repo      repositories.Repository
	Identity  repositories.IdentityProvider
	Device    capture.Device
	Publisher events.EventPublisher
	Validator *validator.Validator
	Clock     clockwork.Clock
	Logger    *slog.Logger
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	deps   ServiceDependencies
	config ServiceManagerConfig

	// Service instances
	activityService   ActivityTracker
	heartbeatService  HeartbeatService
	presenceService   PresenceService
	enrollmentService EnrollmentService
	authService       AuthService
	exportService     ExportService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

func NewServiceManager(deps ServiceDependencies, config ServiceManagerConfig) ServiceManager {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	return &serviceManager{
		deps:   deps,
		config: config,
	}
}

// DefaultServiceManagerConfig matches the reference timing: 30s heartbeats,
// three capture samples and a two second display delay
func DefaultServiceManagerConfig() ServiceManagerConfig {
	return ServiceManagerConfig{
		HeartbeatInterval: 30 * time.Second,
		Enrollment: EnrollmentConfig{
			RequiredSamples: 3,
			DisplayDelay:    2 * time.Second,
		},
	}
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.deps.Logger.Info("Initializing service manager")

	if sm.deps.Repo == nil {
		return fmt.Errorf("failed to initialize services: repository is required")
	}
	if sm.deps.Identity == nil {
		return fmt.Errorf("failed to initialize services: identity provider is required")
	}

	sm.initializeServices()

	sm.initialized = true
	sm.deps.Logger.Info("Service manager initialized successfully")

	return nil
}

func (sm *serviceManager) initializeServices() {
	d := sm.deps

	sm.activityService = NewActivityTracker(d.Repo, d.Publisher, d.Logger.With("service", "activity"))
	sm.deps.Logger.Info("Activity tracker initialized")

	sm.heartbeatService = NewHeartbeatScheduler(sm.activityService, d.Clock, sm.config.HeartbeatInterval, d.Logger.With("service", "heartbeat"))
	sm.deps.Logger.Info("Heartbeat scheduler initialized", "interval", sm.config.HeartbeatInterval)

	sm.presenceService = NewPresenceService(sm.activityService, d.Clock, d.Logger.With("service", "presence"))
	sm.deps.Logger.Info("Presence service initialized")

	sm.authService = NewAuthService(d.Identity, d.Logger.With("service", "auth"))
	sm.deps.Logger.Info("Auth service initialized")

	sm.enrollmentService = NewEnrollmentService(sm.authService, sm.activityService, d.Device, d.Publisher,
		d.Validator, d.Clock, sm.config.Enrollment, d.Logger.With("service", "enrollment"))
	sm.deps.Logger.Info("Enrollment service initialized")

	sm.exportService = NewExportService(sm.presenceService, d.Logger.With("service", "export"))
	sm.deps.Logger.Info("Export service initialized")
}

func (sm *serviceManager) mustBeInitialized() {
	if !sm.initialized {
		panic("service manager not initialized")
	}
}

// Service getters
func (sm *serviceManager) Activity() ActivityTracker {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.activityService
}

func (sm *serviceManager) Heartbeat() HeartbeatService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.heartbeatService
}

func (sm *serviceManager) Presence() PresenceService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.presenceService
}

func (sm *serviceManager) Enrollment() EnrollmentService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.enrollmentService
}

func (sm *serviceManager) Auth() AuthService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.authService
}

func (sm *serviceManager) Export() ExportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.exportService
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.deps.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

// Shutdown stops every heartbeat before the repository goes away
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.deps.Logger.Info("Shutting down service manager")

	if sm.heartbeatService != nil {
		sm.heartbeatService.StopAll()
	}

	if err := sm.deps.Repo.Close(); err != nil {
		sm.deps.Logger.Error("Failed to close repository", "error", err)
	}

	sm.shutdown = true
	sm.deps.Logger.Info("Service manager shut down completed")

	return nil
}
