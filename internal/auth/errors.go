package auth

import "errors"

var (
	// ErrInvalidToken covers every expected rejection: bad signature,
	// wrong type, missing claims, expiry, revocation, unknown handle.
	// The boundary layer maps it to 401 without detail.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrNotFound is returned by the ledger when no row has the given id.
	ErrNotFound = errors.New("auth: not found")
)
