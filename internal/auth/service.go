package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/comercio-app/comercio/internal/shared"
)

// RepositoryPort abstracts user lookups for service.
type RepositoryPort interface {
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
}

// Service wraps authentication business rules.
type Service struct {
	repo RepositoryPort
}

// NewService constructs a new Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Authenticate validates email/password credentials. Suspended accounts are
// rejected with a distinct error so the client can show why, but whether an
// email exists is never revealed.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return User{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, shared.ErrInvalidCredentials
	}
	if user.Suspended {
		return User{}, shared.ErrAccountSuspended
	}
	return user, nil
}

// CurrentUser loads the signed-in user and re-checks the suspended flag, so a
// suspension takes effect on the very next request.
func (s *Service) CurrentUser(ctx context.Context, id string) (User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if user.Suspended {
		return User{}, shared.ErrAccountSuspended
	}
	return user, nil
}
