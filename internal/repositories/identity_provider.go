package repositories

import (
	"context"
	"errors"

	"github.com/SAP-F-2025/recruitx-service/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountExists      = errors.New("account already exists")
)

// IdentityProvider verifies credentials and issues authenticated-user handles
type IdentityProvider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*models.AuthUser, error)
	SignUp(ctx context.Context, email, password, displayName string) (*models.AuthUser, error)
	// SignInWithOAuthCode completes a federated (OAuth authorization code) sign-in
	SignInWithOAuthCode(ctx context.Context, code, state string) (*models.AuthUser, error)
}
