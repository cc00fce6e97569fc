// Package auth implements the session core: issuance, validation,
// rotation and revocation of paired access/refresh tokens, backed by a
// durable refresh-token ledger and a TTL revocation blacklist.
//
// A refresh token moves ISSUED -> ROTATED (replaced by a new pair),
// ISSUED -> REVOKED (logout) or ISSUED -> EXPIRED (detected passively at
// validation time). All three are terminal.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"eebook.org/internal/obs"
)

// Service orchestrates the codec, blacklist and ledger. Expected
// rejections surface as ErrInvalidToken (or false from RevokeTokenPair);
// only infrastructure failures come back as other errors.
type Service struct {
	codec     *Codec
	blacklist RevocationStore
	tokens    RefreshTokenStore
	now       func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs the auth service.
func NewService(codec *Codec, blacklist RevocationStore, tokens RefreshTokenStore, opts ...ServiceOption) *Service {
	s := &Service{
		codec:     codec,
		blacklist: blacklist,
		tokens:    tokens,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTokenPair mints a fresh access/refresh pair for the user and
// records the refresh side in the ledger. The returned RefreshHandle is
// the ledger row id; the signed refresh JWT stays inside the process.
func (s *Service) CreateTokenPair(ctx context.Context, userID uuid.UUID, fingerprint string) (*TokenPair, error) {
	access, refresh, err := s.codec.CreatePair(userID)
	if err != nil {
		return nil, err
	}

	// A token this service just signed must decode. A failure here is a
	// programming contradiction, not a client rejection.
	accessPayload, err := s.codec.Decode(access, TokenTypeAccess)
	if err != nil {
		return nil, fmt.Errorf("auth: minted access token failed to decode: %w", err)
	}
	refreshPayload, err := s.codec.Decode(refresh, TokenTypeRefresh)
	if err != nil {
		return nil, fmt.Errorf("auth: minted refresh token failed to decode: %w", err)
	}

	now := s.now().UTC()
	rec := &RefreshToken{
		ID:          uuid.New(),
		UserID:      userID,
		JTI:         refreshPayload.JTI,
		Fingerprint: fingerprint,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.codec.RefreshTTL()),
	}
	if err := s.tokens.Create(ctx, rec); err != nil {
		return nil, err
	}

	obs.TokenPairsIssued.Inc()
	return &TokenPair{
		AccessToken:      access,
		RefreshHandle:    rec.ID.String(),
		AccessExpiresAt:  accessPayload.ExpiresAt,
		RefreshExpiresAt: rec.ExpiresAt,
	}, nil
}

// ValidateAccessToken decodes the token as an access token and checks
// the blacklist. The hot path: one signature verify, one cache lookup,
// no ledger read, no mutation.
func (s *Service) ValidateAccessToken(ctx context.Context, token string) (*TokenPayload, error) {
	payload, err := s.codec.Decode(token, TokenTypeAccess)
	if err != nil {
		return nil, ErrInvalidToken
	}

	revoked, err := s.blacklist.IsRevoked(ctx, payload.JTI.String())
	if err != nil {
		return nil, err
	}
	if revoked {
		obs.BlacklistHits.Inc()
		return nil, ErrInvalidToken
	}
	return payload, nil
}

// RefreshTokenPair exchanges a still-valid refresh handle for a brand
// new pair. The ledger's conditional update is the arbiter between
// concurrent callers: exactly one wins, the rest are rejected, and no
// rejection path mutates anything.
func (s *Service) RefreshTokenPair(ctx context.Context, handle, fingerprint string) (*TokenPair, error) {
	id, err := uuid.Parse(handle)
	if err != nil {
		return nil, ErrInvalidToken
	}

	rec, err := s.tokens.Find(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	now := s.now().UTC()
	if rec.Revoked || !now.Before(rec.ExpiresAt) {
		obs.TokenRotationRejects.Inc()
		return nil, ErrInvalidToken
	}

	revoked, err := s.blacklist.IsRevoked(ctx, rec.JTI.String())
	if err != nil {
		return nil, err
	}
	if revoked {
		obs.BlacklistHits.Inc()
		obs.TokenRotationRejects.Inc()
		return nil, ErrInvalidToken
	}

	// Single-use: claim the row before minting. The losing side of a
	// concurrent rotation sees flipped=false and stops here.
	flipped, err := s.tokens.TryMarkRevoked(ctx, id)
	if err != nil {
		return nil, err
	}
	if !flipped {
		obs.TokenRotationRejects.Inc()
		return nil, ErrInvalidToken
	}

	if err := s.blacklist.Revoke(ctx, rec.JTI.String(), remaining(rec.ExpiresAt, now)); err != nil {
		return nil, err
	}

	pair, err := s.CreateTokenPair(ctx, rec.UserID, fingerprint)
	if err != nil {
		return nil, err
	}
	obs.TokenRotations.Inc()
	return pair, nil
}

// RevokeTokenPair blacklists both halves of a pair, each for its own
// remaining lifetime, and flags the ledger row. Used by logout. If
// either credential fails to resolve, nothing is mutated and the result
// is false; logout reports, it does not raise.
func (s *Service) RevokeTokenPair(ctx context.Context, accessToken, handle string) (bool, error) {
	accessPayload, err := s.codec.Decode(accessToken, TokenTypeAccess)
	if err != nil {
		return false, nil
	}

	id, err := uuid.Parse(handle)
	if err != nil {
		return false, nil
	}
	rec, err := s.tokens.Find(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	now := s.now().UTC()
	if err := s.blacklist.Revoke(ctx, accessPayload.JTI.String(), remaining(accessPayload.ExpiresAt, now)); err != nil {
		return false, err
	}
	if err := s.blacklist.Revoke(ctx, rec.JTI.String(), remaining(rec.ExpiresAt, now)); err != nil {
		return false, err
	}
	if err := s.tokens.MarkRevoked(ctx, id); err != nil {
		return false, err
	}

	obs.TokenRevocations.Inc()
	return true, nil
}

// remaining clamps a token's residual lifetime so a revocation marker
// always outlives any residual validity window.
func remaining(expiresAt, now time.Time) time.Duration {
	d := expiresAt.Sub(now)
	if d < time.Second {
		d = time.Second
	}
	return d
}
