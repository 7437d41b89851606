package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fueltrack/api/internal/domain"
)

// TokenRepository persists one-time confirmation tokens. The Consume methods
// pair the conditional used_at write with the user mutation it authorizes in
// a single transaction; they return domain.ErrTokenConsumed when another
// redemption got there first.
type TokenRepository interface {
	Create(ctx context.Context, userID uuid.UUID, purpose domain.TokenPurpose, newEmail *string, secretHash, secretSalt []byte, expiresAt time.Time) (*domain.OneTimeToken, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.OneTimeToken, error)
	ConsumeVerification(ctx context.Context, tokenID, userID uuid.UUID) error
	ConsumeReset(ctx context.Context, tokenID, userID uuid.UUID, passwordHash, passwordSalt []byte) error
	ConsumeEmailChange(ctx context.Context, tokenID, userID uuid.UUID, newEmail string) error
}
