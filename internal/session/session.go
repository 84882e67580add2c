// Package session tracks revoked JWTs so a logged-out token stops working
// before it expires.
package session

import (
	"context"
	"time"
)

// TokenStore records revoked token ids (jti).
type TokenStore interface {
	// Revoke marks jti as revoked for ttl. A non-positive ttl is a no-op
	// since the token has already expired.
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	Close() error
}
