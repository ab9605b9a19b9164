package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/madrasa-erp/madrasa-erp/internal/shared"
	"github.com/madrasa-erp/madrasa-erp/internal/users"
)

// UserLookup finds accounts by login email.
type UserLookup interface {
	FindByEmail(ctx context.Context, email string) (users.User, error)
}

// Service wraps authentication business rules.
type Service struct {
	users UserLookup
}

// NewService constructs a new Service.
func NewService(users UserLookup) *Service {
	return &Service{users: users}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (users.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return users.User{}, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return users.User{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return users.User{}, shared.ErrInvalidCredentials
	}
	return user, nil
}
