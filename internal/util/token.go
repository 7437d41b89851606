package util

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Composite confirmation tokens travel as `<uuid>.<secret>`. The id locates
// the stored record, the secret is checked against its hash.

const tokenSeparator = "."

var ErrMalformedToken = errors.New("malformed token")

func FormatToken(id uuid.UUID, secret string) string {
	return id.String() + tokenSeparator + secret
}

func ParseToken(token string) (uuid.UUID, string, error) {
	parts := strings.Split(token, tokenSeparator)
	if len(parts) != 2 {
		return uuid.Nil, "", ErrMalformedToken
	}
	id, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, "", ErrMalformedToken
	}
	if parts[1] == "" {
		return uuid.Nil, "", ErrMalformedToken
	}
	return id, parts[1], nil
}
