package domain

import (
	"time"

	"github.com/google/uuid"
)

// RefreshSession is the persisted record behind an issued refresh token.
// The whole signed token string is hashed, not split into id and secret,
// so matching a presented token means re-hashing against recent sessions.
type RefreshSession struct {
	ID        int64      `db:"id" json:"id"`
	UserID    uuid.UUID  `db:"user_id" json:"user_id"`
	TokenHash []byte     `db:"token_hash" json:"-"`
	TokenSalt []byte     `db:"token_salt" json:"-"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	RevokedAt *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

func (s *RefreshSession) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
