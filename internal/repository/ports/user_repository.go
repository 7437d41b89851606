package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/fueltrack/api/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, email string, passwordHash, passwordSalt []byte, name *string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	UpdateName(ctx context.Context, id uuid.UUID, name string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash, passwordSalt []byte) error
	Delete(ctx context.Context, id uuid.UUID) error
}
