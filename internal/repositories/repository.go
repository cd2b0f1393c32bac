package repositories

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a keyed document does not exist
var ErrNotFound = errors.New("record not found")

// Repository aggregates the stores used by the presence and enrollment services
type Repository interface {
	// Document collections
	Activity() ActivityRepository
	Enrollment() EnrollmentRepository

	// Change notifications for live queries
	ChangeFeed() ChangeFeed

	// Identity provider views (read-only)
	User() UserRepository

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
