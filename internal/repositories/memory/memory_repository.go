package memory

import (
	"context"

	"github.com/jonboulle/clockwork"

	"github.com/SAP-F-2025/recruitx-service/internal/repositories"
)

// MemoryRepository keeps both collections in process. It serves the
// "memory" store driver and the service tests.
type MemoryRepository struct {
	activity   *ActivityMemory
	enrollment *EnrollmentMemory
	feed       repositories.ChangeFeed
	user       repositories.UserRepository
}

func NewMemoryRepository(clock clockwork.Clock, feed repositories.ChangeFeed, user repositories.UserRepository) *MemoryRepository {
	return &MemoryRepository{
		activity:   NewActivityMemory(clock),
		enrollment: NewEnrollmentMemory(clock),
		feed:       feed,
		user:       user,
	}
}

func (r *MemoryRepository) Activity() repositories.ActivityRepository {
	return r.activity
}

// ActivityStore exposes the concrete collection for operator actions such as Delete
func (r *MemoryRepository) ActivityStore() *ActivityMemory {
	return r.activity
}

func (r *MemoryRepository) Enrollment() repositories.EnrollmentRepository {
	return r.enrollment
}

func (r *MemoryRepository) ChangeFeed() repositories.ChangeFeed {
	return r.feed
}

func (r *MemoryRepository) User() repositories.UserRepository {
	return r.user
}

func (r *MemoryRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (r *MemoryRepository) Close() error {
	if r.feed != nil {
		return r.feed.Close()
	}
	return nil
}
