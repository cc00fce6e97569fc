package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultIssuer     = "eebook-users"
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 15 * 24 * time.Hour
)

type tokenClaims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Codec creates and parses the signed, stateless bearer tokens. Tokens
// are self-contained so validation costs one signature verify plus one
// revocation-store lookup, never a ledger round-trip.
type Codec struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithIssuer overrides the iss claim.
func WithIssuer(issuer string) CodecOption {
	return func(c *Codec) {
		if s := strings.TrimSpace(issuer); s != "" {
			c.issuer = s
		}
	}
}

// WithAccessTTL configures the access token lifetime.
func WithAccessTTL(ttl time.Duration) CodecOption {
	return func(c *Codec) {
		if ttl > 0 {
			c.accessTTL = ttl
		}
	}
}

// WithRefreshTTL configures the refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) CodecOption {
	return func(c *Codec) {
		if ttl > 0 {
			c.refreshTTL = ttl
		}
	}
}

// WithCodecClock overrides the time source (tests).
func WithCodecClock(now func() time.Time) CodecOption {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCodec constructs a Codec signing with HS256.
func NewCodec(secret []byte, opts ...CodecOption) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: signing secret is required")
	}
	c := &Codec{
		secret:     secret,
		issuer:     defaultIssuer,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.now == nil {
		c.now = func() time.Time { return time.Now().UTC() }
	}
	return c, nil
}

// AccessTTL reports the configured access token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL reports the configured refresh token lifetime.
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// CreatePair mints an access and a refresh token for the subject, each
// with its own random jti. The two jtis are always distinct.
func (c *Codec) CreatePair(subject uuid.UUID) (access, refresh string, err error) {
	now := c.now().UTC()

	access, err = c.sign(subject, uuid.New(), TokenTypeAccess, now, c.accessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = c.sign(subject, uuid.New(), TokenTypeRefresh, now, c.refreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (c *Codec) sign(subject, jti uuid.UUID, typ TokenType, now time.Time, ttl time.Duration) (string, error) {
	claims := tokenClaims{
		TokenType: string(typ),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   subject.String(),
			ID:        jti.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign %s token: %w", typ, err)
	}
	return signed, nil
}

// Decode verifies the signature and required claims and checks the type
// claim against expected. Every validation failure, including expiry,
// yields ErrInvalidToken; the caller never learns which check failed.
func (c *Codec) Decode(token string, expected TokenType) (*TokenPayload, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}
	if c.issuer != "" && claims.Issuer != c.issuer {
		return nil, ErrInvalidToken
	}
	if TokenType(claims.TokenType) != expected {
		return nil, ErrInvalidToken
	}
	subject, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}
	jti, err := uuid.Parse(claims.ID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	return &TokenPayload{
		Subject:   subject,
		JTI:       jti,
		IssuedAt:  claims.IssuedAt.Time.UTC(),
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
		TokenType: expected,
	}, nil
}
