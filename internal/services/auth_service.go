package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/SAP-F-2025/recruitx-service/internal/models"
	"github.com/SAP-F-2025/recruitx-service/internal/repositories"
)

// AuthOutcome is the result of a sign-in attempt: AuthSuccess or AuthFailure.
// Callers must branch on it; there is no user without a success.
type AuthOutcome interface {
	authOutcome()
}

type AuthSuccess struct {
	User models.AuthUser
}

type AuthFailure struct {
	Reason error
}

func (AuthSuccess) authOutcome() {}
func (AuthFailure) authOutcome() {}

func (f AuthFailure) Error() string {
	return fmt.Sprintf("%v: %v", ErrAuthenticationFailed, f.Reason)
}

func (f AuthFailure) Unwrap() []error {
	return []error{ErrAuthenticationFailed, f.Reason}
}

type authService struct {
	identity repositories.IdentityProvider
	logger   *slog.Logger

	mu        sync.Mutex
	nextID    int
	listeners map[int]func(user *models.AuthUser)
}

func NewAuthService(identity repositories.IdentityProvider, logger *slog.Logger) AuthService {
	return &authService{
		identity:  identity,
		logger:    logger,
		listeners: make(map[int]func(user *models.AuthUser)),
	}
}

func (s *authService) SignInWithPassword(ctx context.Context, email, password string) AuthOutcome {
	user, err := s.identity.SignInWithPassword(ctx, email, password)
	return s.outcome("password", email, user, err)
}

func (s *authService) SignUp(ctx context.Context, email, password, displayName string) AuthOutcome {
	user, err := s.identity.SignUp(ctx, email, password, displayName)
	return s.outcome("signup", email, user, err)
}

func (s *authService) SignInWithFederated(ctx context.Context, code, state string) AuthOutcome {
	user, err := s.identity.SignInWithOAuthCode(ctx, code, state)
	return s.outcome("federated", "", user, err)
}

func (s *authService) outcome(method, email string, user *models.AuthUser, err error) AuthOutcome {
	if err == nil && user == nil {
		err = fmt.Errorf("identity provider returned no user")
	}
	if err != nil {
		s.logger.Warn("Authentication failed", "method", method, "email", email, "error", err)
		return AuthFailure{Reason: err}
	}

	s.logger.Info("User authenticated", "method", method, "uid", user.UID)
	s.notify(user)
	return AuthSuccess{User: *user}
}

func (s *authService) SignOut(uid string) {
	s.logger.Info("User signed out", "uid", uid)
	s.notify(nil)
}

func (s *authService) OnAuthStateChange(fn func(user *models.AuthUser)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// notify calls listeners outside the lock so they may unsubscribe themselves
func (s *authService) notify(user *models.AuthUser) {
	s.mu.Lock()
	listeners := make([]func(*models.AuthUser), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		if user == nil {
			fn(nil)
			continue
		}
		u := *user
		fn(&u)
	}
}
