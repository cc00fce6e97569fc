package auth

import (
	"time"

	"github.com/google/uuid"
)

// TokenType distinguishes the two halves of a token pair.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenPayload is the verified, normalized content of a decoded token.
// It is reconstructed per validation call and never persisted.
type TokenPayload struct {
	Subject   uuid.UUID
	JTI       uuid.UUID
	IssuedAt  time.Time
	ExpiresAt time.Time
	TokenType TokenType
}

// TokenPair is what a successful issuance or rotation returns to the
// boundary layer. RefreshHandle is the ledger row ID, not the signed
// refresh JWT; the JWT itself never leaves the process after issuance.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshHandle    string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// RefreshToken is the durable ledger record of an issued refresh token.
// ID is the client-facing handle; JTI matches the jti claim inside the
// signed refresh JWT.
type RefreshToken struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	JTI         uuid.UUID
	Fingerprint string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	Revoked     bool
}
