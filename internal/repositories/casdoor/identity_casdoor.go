package casdoor

import (
	"context"
	"fmt"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/google/uuid"

	"github.com/SAP-F-2025/recruitx-service/internal/cache"
	"github.com/SAP-F-2025/recruitx-service/internal/config"
	"github.com/SAP-F-2025/recruitx-service/internal/models"
	"github.com/SAP-F-2025/recruitx-service/internal/repositories"
)

// IdentityCasdoor signs users in against a Casdoor application
type IdentityCasdoor struct {
	client       *casdoorsdk.Client
	cacheManager *cache.CacheManager
	organization string
	application  string
}

// NewIdentityCasdoor shares cacheManager with the user lookup so new accounts
// are not hidden behind cached misses or stale pages
func NewIdentityCasdoor(client *casdoorsdk.Client, cacheManager *cache.CacheManager, cfg config.CasdoorConfig) repositories.IdentityProvider {
	return &IdentityCasdoor{
		client:       client,
		cacheManager: cacheManager,
		organization: cfg.Organization,
		application:  cfg.Application,
	}
}

func toAuthUser(user *casdoorsdk.User) *models.AuthUser {
	return &models.AuthUser{
		UID:         user.Id,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}
}

func (i *IdentityCasdoor) SignInWithPassword(ctx context.Context, email, password string) (*models.AuthUser, error) {
	user, err := i.client.GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	if user == nil {
		return nil, repositories.ErrInvalidCredentials
	}

	candidate := *user
	candidate.Password = password

	// Casdoor answers a wrong password with an error status
	ok, err := i.client.CheckUserPassword(&candidate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repositories.ErrInvalidCredentials, err)
	}
	if !ok {
		return nil, repositories.ErrInvalidCredentials
	}

	return toAuthUser(user), nil
}

func (i *IdentityCasdoor) SignUp(ctx context.Context, email, password, displayName string) (*models.AuthUser, error) {
	existing, err := i.client.GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	if existing != nil {
		return nil, repositories.ErrAccountExists
	}

	user := &casdoorsdk.User{
		Owner:             i.organization,
		Name:              uuid.NewString(),
		CreatedTime:       time.Now().UTC().Format(time.RFC3339),
		Type:              "normal-user",
		Password:          password,
		DisplayName:       models.DefaultDisplayName(displayName, email),
		Email:             email,
		SignupApplication: i.application,
	}

	ok, err := i.client.AddUser(user)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("failed to create account: not affected")
	}

	// Read back for the server-assigned id
	created, err := i.client.GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to read created account: %w", err)
	}
	if created == nil {
		return nil, repositories.ErrNotFound
	}

	i.forgetAccount(ctx, created.Id, email)

	return toAuthUser(created), nil
}

func (i *IdentityCasdoor) SignInWithOAuthCode(ctx context.Context, code, state string) (*models.AuthUser, error) {
	token, err := i.client.GetOAuthToken(code, state)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repositories.ErrInvalidCredentials, err)
	}

	claims, err := i.client.ParseJwtToken(token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to parse access token: %w", err)
	}

	return toAuthUser(&claims.User), nil
}

// forgetAccount drops cached lookups and user list pages touched by a new account
func (i *IdentityCasdoor) forgetAccount(ctx context.Context, id, email string) {
	if i.cacheManager == nil {
		return
	}
	cache.InvalidateUserCache(ctx, i.cacheManager, id, email)
	cache.SafeInvalidatePattern(ctx, i.cacheManager.User, listCachePattern)
}
