package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fueltrack/api/internal/domain"
)

type SessionRepository interface {
	Create(ctx context.Context, userID uuid.UUID, tokenHash, tokenSalt []byte, expiresAt time.Time) (*domain.RefreshSession, error)
	FindRecentActive(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]domain.RefreshSession, error)
	RevokeAllForUser(ctx context.Context, userID uuid.UUID, now time.Time) error
}
