// Package auth maps account emails to user identities and verifies
// credentials. Raw passwords never leave this package and are never logged.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"kakeibo/internal/core"
)

const bcryptCost = 10

// userRepository is the slice of the storage layer the identity store needs.
type userRepository interface {
	CreateUser(ctx context.Context, email, passwordHash string) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (*core.User, error)
}

type Service struct {
	repo userRepository
}

func NewService(repo userRepository) *Service {
	return &Service{repo: repo}
}

// Register creates a new account and returns its user id.
// Email matching is exact and case-sensitive; a collision surfaces as
// core.ErrDuplicateAccount.
func (s *Service) Register(ctx context.Context, email, password string) (int64, error) {
	if email == "" || password == "" {
		return 0, core.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	id, err := s.repo.CreateUser(ctx, email, string(hash))
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Account registered", "user_id", id)
	return id, nil
}

// Authenticate verifies email+password and returns the user id.
// Unknown email and wrong password both yield core.ErrInvalidCredentials,
// so callers cannot probe which accounts exist.
func (s *Service) Authenticate(ctx context.Context, email, password string) (int64, error) {
	if email == "" || password == "" {
		return 0, core.ErrInvalidCredentials
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return 0, core.ErrInvalidCredentials
		}
		return 0, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return 0, core.ErrInvalidCredentials
	}

	return user.ID, nil
}
