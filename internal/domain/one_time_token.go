package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TokenPurpose identifies which confirmation flow a one-time token belongs to.
// A token issued for one flow can never be redeemed by another.
type TokenPurpose string

const (
	PurposeEmailVerification TokenPurpose = "email_verification"
	PurposePasswordReset     TokenPurpose = "password_reset"
	PurposeEmailChange       TokenPurpose = "email_change"
)

// ErrTokenConsumed is returned by a repository when a conditional consume
// finds used_at already set. It is how a losing concurrent redemption learns
// it lost the race.
var ErrTokenConsumed = errors.New("token already consumed")

// OneTimeToken backs a single-use confirmation capability. The wire token is
// `id.secret`; only the salted hash of the secret is ever stored. Records are
// kept after use as an audit trail, so used_at is the authoritative marker.
type OneTimeToken struct {
	ID         uuid.UUID    `db:"id" json:"id"`
	UserID     uuid.UUID    `db:"user_id" json:"user_id"`
	Purpose    TokenPurpose `db:"purpose" json:"purpose"`
	NewEmail   *string      `db:"new_email" json:"-"`
	SecretHash []byte       `db:"secret_hash" json:"-"`
	SecretSalt []byte       `db:"secret_salt" json:"-"`
	ExpiresAt  time.Time    `db:"expires_at" json:"expires_at"`
	UsedAt     *time.Time   `db:"used_at" json:"used_at,omitempty"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
}

func (t *OneTimeToken) Used() bool {
	return t.UsedAt != nil
}

func (t *OneTimeToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
