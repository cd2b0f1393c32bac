package casdoor

import (
	"context"
	"fmt"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"

	"github.com/SAP-F-2025/recruitx-service/internal/cache"
	"github.com/SAP-F-2025/recruitx-service/internal/config"
	"github.com/SAP-F-2025/recruitx-service/internal/models"
	"github.com/SAP-F-2025/recruitx-service/internal/repositories"
)

// NewClient builds a Casdoor SDK client from application config
func NewClient(cfg config.CasdoorConfig) *casdoorsdk.Client {
	return casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Cert,
		cfg.Organization,
		cfg.Application,
	)
}

type UserCasdoor struct {
	client *casdoorsdk.Client
	cache  *cache.CacheHelper
}

func NewUserCasdoor(client *casdoorsdk.Client, cacheManager *cache.CacheManager) repositories.UserRepository {
	return &UserCasdoor{
		client: client,
		cache:  cacheManager.User,
	}
}

// ===== CACHE METHODS =====

func (u *UserCasdoor) getUserFromCache(ctx context.Context, key string) *models.User {
	var user models.User
	if err := u.cache.Get(ctx, key, &user); err != nil {
		return nil
	}
	return &user
}

// cacheUser stores user under both lookup keys
func (u *UserCasdoor) cacheUser(ctx context.Context, user *models.User) {
	ttl := cache.UserCacheConfig.TTL
	_ = u.cache.Set(ctx, fmt.Sprintf("id:%s", user.ID), user, ttl)
	if user.Email != "" {
		_ = u.cache.Set(ctx, fmt.Sprintf("email:%s", user.Email), user, ttl)
	}
}

// ===== CONVERSION METHODS =====

// convertUser maps a Casdoor account onto the internal model
func convertUser(casdoorUser *casdoorsdk.User) *models.User {
	if casdoorUser == nil {
		return nil
	}

	var createdAt, updatedAt time.Time
	if casdoorUser.CreatedTime != "" {
		createdAt, _ = time.Parse(time.RFC3339, casdoorUser.CreatedTime)
	}
	if casdoorUser.UpdatedTime != "" {
		updatedAt, _ = time.Parse(time.RFC3339, casdoorUser.UpdatedTime)
	}

	var avatar *string
	if casdoorUser.Avatar != "" {
		a := casdoorUser.Avatar
		avatar = &a
	}

	return &models.User{
		ID:            casdoorUser.Id,
		FullName:      models.DefaultDisplayName(casdoorUser.DisplayName, casdoorUser.Email),
		Email:         casdoorUser.Email,
		Role:          MapRole(casdoorUser),
		AvatarURL:     avatar,
		EmailVerified: casdoorUser.EmailVerified,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	}
}

// ===== READ OPERATIONS =====

// GetByID retrieves a user by ID
func (u *UserCasdoor) GetByID(ctx context.Context, id string) (*models.User, error) {
	if cached := u.getUserFromCache(ctx, fmt.Sprintf("id:%s", id)); cached != nil {
		return cached, nil
	}

	casdoorUser, err := u.client.GetUserByUserId(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user from Casdoor: %w", err)
	}
	if casdoorUser == nil {
		return nil, repositories.ErrNotFound
	}

	user := convertUser(casdoorUser)
	u.cacheUser(ctx, user)

	return user, nil
}

// GetByEmail retrieves a user by email
func (u *UserCasdoor) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if cached := u.getUserFromCache(ctx, fmt.Sprintf("email:%s", email)); cached != nil {
		return cached, nil
	}

	casdoorUser, err := u.client.GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email from Casdoor: %w", err)
	}
	if casdoorUser == nil {
		return nil, repositories.ErrNotFound
	}

	user := convertUser(casdoorUser)
	u.cacheUser(ctx, user)

	return user, nil
}

// List retrieves a paginated list of users, optionally matching an email query
func (u *UserCasdoor) List(ctx context.Context, filters repositories.UserFilters) ([]*models.User, int64, error) {
	if filters.Limit <= 0 {
		filters.Limit = 10
	}
	if filters.Limit > 100 {
		filters.Limit = 100
	}

	// Casdoor pages are 1-indexed
	page := max((filters.Offset/filters.Limit)+1, 1)

	key := listCacheKey(page, filters.Limit, filters.Query)
	var cached userPage
	if err := u.cache.Get(ctx, key, &cached); err == nil {
		return cached.Users, cached.Total, nil
	}

	queryMap := make(map[string]string)
	if filters.Query != "" {
		queryMap["field"] = "email"
		queryMap["value"] = filters.Query
	}

	casdoorUsers, count, err := u.client.GetPaginationUsers(page, filters.Limit, queryMap)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get users from Casdoor: %w", err)
	}

	users := make([]*models.User, 0, len(casdoorUsers))
	for _, casdoorUser := range casdoorUsers {
		if user := convertUser(casdoorUser); user != nil {
			users = append(users, user)
			u.cacheUser(ctx, user)
		}
	}

	_ = u.cache.Set(ctx, key, userPage{Users: users, Total: int64(count)}, listCacheTTL)

	return users, int64(count), nil
}

const (
	listCachePattern = "list:*"
	listCacheTTL     = time.Minute
)

// userPage is one cached List result
type userPage struct {
	Users []*models.User `json:"users"`
	Total int64          `json:"total"`
}

func listCacheKey(page, limit int, query string) string {
	return fmt.Sprintf("list:%d:%d:%s", page, limit, query)
}
