package repositories

import (
	"context"

	"github.com/SAP-F-2025/recruitx-service/internal/models"
)

// UserFilters defines filters for user queries
type UserFilters struct {
	Query  string // Search query for email
	Limit  int    // Page size
	Offset int    // Offset for pagination
}

// UserRepository reads accounts from the identity provider (not the owner of user data)
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, filters UserFilters) ([]*models.User, int64, error)
}
