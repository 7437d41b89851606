package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fueltrack/api/internal/domain"
)

const tokenColumns = "id, user_id, purpose, new_email, secret_hash, secret_salt, expires_at, used_at, created_at"

// markUsedQuery is the conditional consume shared by every redemption path.
// The used_at IS NULL guard is what makes concurrent double-redemption lose.
const markUsedQuery = `
    UPDATE one_time_tokens
    SET used_at = NOW()
    WHERE id = $1 AND used_at IS NULL
`

type TokenRepository struct {
	db *sqlx.DB
}

func NewTokenRepo(db *sqlx.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) Create(ctx context.Context, userID uuid.UUID, purpose domain.TokenPurpose, newEmail *string, secretHash, secretSalt []byte, expiresAt time.Time) (*domain.OneTimeToken, error) {
	const query = `
        INSERT INTO one_time_tokens (user_id, purpose, new_email, secret_hash, secret_salt, expires_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING ` + tokenColumns
	row := r.db.QueryRowxContext(ctx, query, userID, purpose, newEmail, secretHash, secretSalt, expiresAt)
	var token domain.OneTimeToken
	if err := row.StructScan(&token); err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *TokenRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.OneTimeToken, error) {
	const query = `SELECT ` + tokenColumns + ` FROM one_time_tokens WHERE id = $1`
	var token domain.OneTimeToken
	if err := r.db.GetContext(ctx, &token, query, id); err != nil {
		return nil, err
	}
	return &token, nil
}

// ConsumeVerification marks the token used and flips the owner to verified,
// both or neither.
func (r *TokenRepository) ConsumeVerification(ctx context.Context, tokenID, userID uuid.UUID) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := markUsed(ctx, tx, tokenID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
            UPDATE users
            SET is_verified = TRUE,
                updated_at = NOW()
            WHERE id = $1
        `, userID)
		return err
	})
}

// ConsumeReset marks the token used, writes the new password and voids every
// other pending reset token of the same user in one transaction.
func (r *TokenRepository) ConsumeReset(ctx context.Context, tokenID, userID uuid.UUID, passwordHash, passwordSalt []byte) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := markUsed(ctx, tx, tokenID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
            UPDATE users
            SET password_hash = $2,
                password_salt = $3,
                updated_at = NOW()
            WHERE id = $1
        `, userID, passwordHash, passwordSalt); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
            UPDATE one_time_tokens
            SET used_at = NOW()
            WHERE user_id = $1 AND purpose = $2 AND used_at IS NULL AND id <> $3
        `, userID, domain.PurposePasswordReset, tokenID)
		return err
	})
}

// ConsumeEmailChange marks the token used and rewrites the user's email. The
// new address is trusted once its link is clicked, so is_verified is forced.
func (r *TokenRepository) ConsumeEmailChange(ctx context.Context, tokenID, userID uuid.UUID, newEmail string) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := markUsed(ctx, tx, tokenID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
            UPDATE users
            SET email = $2,
                is_verified = TRUE,
                updated_at = NOW()
            WHERE id = $1
        `, userID, newEmail)
		return err
	})
}

func markUsed(ctx context.Context, tx *sqlx.Tx, tokenID uuid.UUID) error {
	res, err := tx.ExecContext(ctx, markUsedQuery, tokenID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrTokenConsumed
	}
	return nil
}

func (r *TokenRepository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
