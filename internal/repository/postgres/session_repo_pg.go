package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fueltrack/api/internal/domain"
)

const sessionColumns = "id, user_id, token_hash, token_salt, expires_at, revoked_at, created_at"

type SessionRepository struct {
	db *sqlx.DB
}

func NewSessionRepo(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, userID uuid.UUID, tokenHash, tokenSalt []byte, expiresAt time.Time) (*domain.RefreshSession, error) {
	const query = `
        INSERT INTO refresh_sessions (user_id, token_hash, token_salt, expires_at)
        VALUES ($1, $2, $3, $4)
        RETURNING ` + sessionColumns
	row := r.db.QueryRowxContext(ctx, query, userID, tokenHash, tokenSalt, expiresAt)
	var session domain.RefreshSession
	if err := row.StructScan(&session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) FindRecentActive(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]domain.RefreshSession, error) {
	const query = `
        SELECT ` + sessionColumns + `
        FROM refresh_sessions
        WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > $2
        ORDER BY created_at DESC
        LIMIT $3
    `
	sessions := []domain.RefreshSession{}
	if err := r.db.SelectContext(ctx, &sessions, query, userID, now, limit); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *SessionRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID, now time.Time) error {
	const query = `
        UPDATE refresh_sessions
        SET revoked_at = $2
        WHERE user_id = $1 AND revoked_at IS NULL
    `
	_, err := r.db.ExecContext(ctx, query, userID, now)
	return err
}
