package auth

import (
	"context"
	"time"
)

// RevocationStore is the TTL blacklist of invalidated jtis. Markers
// expire on their own once the token they shadow could no longer be
// valid; nothing ever deletes them explicitly.
//
// Implementations must tolerate high-frequency concurrent reads (every
// authenticated request) and writes (every logout and rotation).
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
