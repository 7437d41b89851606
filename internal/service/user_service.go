package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/fueltrack/api/internal/domain"
	"github.com/fueltrack/api/internal/repository/ports"
	"github.com/fueltrack/api/internal/util"
)

// UserService covers the profile operations adjacent to credentials: reading
// the profile, renaming, password updates and account deletion.
type UserService struct {
	users ports.UserRepository
}

func NewUserService(users ports.UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) GetProfile(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) UpdateName(ctx context.Context, id uuid.UUID, name string) (*domain.User, error) {
	user, err := s.users.UpdateName(ctx, id, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// UpdatePassword requires the current password; this path and reset are the
// only ways a password hash changes.
func (s *UserService) UpdatePassword(ctx context.Context, id uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	if !util.VerifySecret(currentPassword, user.PasswordSalt, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	hash, salt, err := util.DeriveSecret(newPassword)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, id, hash, salt)
}

// DeleteAccount removes the user after a password check. Tokens and sessions
// go with it via the schema's cascading foreign keys.
func (s *UserService) DeleteAccount(ctx context.Context, id uuid.UUID, password string) error {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	if !util.VerifySecret(password, user.PasswordSalt, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	return s.users.Delete(ctx, id)
}
