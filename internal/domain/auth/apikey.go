package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrUnauthorized is returned when an API key is missing, unknown or revoked.
var ErrUnauthorized = errors.New("unauthorized")

// APIKey holds the identity data for a validated API key.
type APIKey struct {
	ID      string
	KeyHash string
	Name    string
}

// Repository provides lookup of active API keys by their HMAC-SHA256 hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKey, error)
}
