package auth

import (
	"context"

	"github.com/google/uuid"
)

// RefreshTokenStore is the durable ledger of issued refresh tokens, one
// row per token. Rows outlive their validity window for audit; nothing
// here purges them.
type RefreshTokenStore interface {
	// Create persists a new row. The primary key is the client-facing
	// handle; a collision surfaces as a constraint violation.
	Create(ctx context.Context, tok *RefreshToken) error

	// Find returns the row with the given id, revoked or expired rows
	// included, or ErrNotFound.
	Find(ctx context.Context, id uuid.UUID) (*RefreshToken, error)

	// MarkRevoked sets the revoked flag. Revoking twice is a no-op.
	MarkRevoked(ctx context.Context, id uuid.UUID) error

	// TryMarkRevoked flips the revoked flag only if it is still clear
	// and reports whether this call flipped it. Rotation uses it as the
	// arbiter between concurrent callers holding the same handle.
	TryMarkRevoked(ctx context.Context, id uuid.UUID) (bool, error)
}
