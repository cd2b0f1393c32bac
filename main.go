package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/recruitx-service/internal/cache"
	"github.com/SAP-F-2025/recruitx-service/internal/capture"
	"github.com/SAP-F-2025/recruitx-service/internal/config"
	"github.com/SAP-F-2025/recruitx-service/internal/events"
	"github.com/SAP-F-2025/recruitx-service/internal/handlers"
	"github.com/SAP-F-2025/recruitx-service/internal/repositories"
	"github.com/SAP-F-2025/recruitx-service/internal/repositories/casdoor"
	"github.com/SAP-F-2025/recruitx-service/internal/repositories/changefeed"
	"github.com/SAP-F-2025/recruitx-service/internal/repositories/memory"
	"github.com/SAP-F-2025/recruitx-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/recruitx-service/internal/services"
	"github.com/SAP-F-2025/recruitx-service/internal/utils"
	"github.com/SAP-F-2025/recruitx-service/internal/validator"
	"github.com/SAP-F-2025/recruitx-service/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	logger := utils.NewSlogLogger(slogLogger)

	clock := clockwork.NewRealClock()

	// Initialize Redis (if configured)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Redis unavailable, continuing without cache", "error", err)
			redisClient = nil
		}
	}

	// Identity provider
	casdoorClient := casdoor.NewClient(cfg.Casdoor)
	cacheManager := cache.NewCacheManager(redisClient)
	userRepo := casdoor.NewUserCasdoor(casdoorClient, cacheManager)
	identity := casdoor.NewIdentityCasdoor(casdoorClient, cacheManager, cfg.Casdoor)

	// Initialize repositories
	var repo repositories.Repository
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		db, err := pkg.InitDatabase(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		repoManager := postgres.NewRepositoryManager(postgres.RepositoryConfig{
			DB:          db,
			RedisClient: redisClient,
			User:        userRepo,
			Logger:      slogLogger,
		})
		if err := repoManager.Initialize(); err != nil {
			log.Fatalf("Failed to initialize repositories: %v", err)
		}
		repo = repoManager.GetRepository()
	default:
		logger.Warn("Using in-memory store; data is lost on restart")
		feed := changefeed.NewChannelFeed(watermill.NewSlogLogger(slogLogger))
		repo = memory.NewMemoryRepository(clock, feed, userRepo)
	}

	// Domain events
	var publisher events.EventPublisher = events.NoopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher, err := events.NewKafkaEventPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, slogLogger)
		if err != nil {
			log.Fatalf("Failed to initialize event publisher: %v", err)
		}
		publisher = kafkaPublisher
	}

	// Capture device
	var device capture.Device = capture.UnavailableDevice{}
	if cfg.Enrollment.CaptureEnabled {
		device = capture.NewSimulatedDevice(clock, cfg.Enrollment.CaptureSampleInterval)
	}

	// Initialize validator
	validator := validator.New()

	// Initialize services
	serviceManager := services.NewServiceManager(services.ServiceDependencies{
		Repo:      repo,
		Identity:  identity,
		Device:    device,
		Publisher: publisher,
		Validator: validator,
		Clock:     clock,
		Logger:    slogLogger,
	}, services.ServiceManagerConfig{
		HeartbeatInterval: cfg.Presence.HeartbeatInterval,
		Enrollment: services.EnrollmentConfig{
			RequiredSamples: cfg.Enrollment.RequiredSamples,
			DisplayDelay:    cfg.Enrollment.DisplayDelay,
		},
	})
	if err := serviceManager.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Initialize handlers
	handlerManager := handlers.NewHandlerManager(serviceManager, validator, logger, casdoorClient, userRepo)

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger)
	handlerManager.SetupRoutes(router)

	// Create HTTP server. No write timeout: live sessions are long-lived streams.
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment, "store", cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Heartbeats end first so open streams receive their final event
	if err := serviceManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown services", "error", err)
	}

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	if err := publisher.Close(); err != nil {
		logger.Error("Failed to close event publisher", "error", err)
	}

	// The postgres repository owns Redis; in memory mode only the user cache uses it
	if cfg.StoreDriver != config.StoreDriverPostgres && redisClient != nil {
		redisClient.Close()
	}

	logger.Info("Server exited")
}
