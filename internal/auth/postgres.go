package auth

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"eebook.org/internal/dbx"
)

var _ RefreshTokenStore = (*PGTokenStore)(nil)

// PGTokenStore implements RefreshTokenStore over PostgreSQL. It accepts
// any dbx.DBTX, so the same store runs standalone or inside the
// transaction that created the triggering user write.
type PGTokenStore struct {
	db dbx.DBTX
}

func NewPGTokenStore(db dbx.DBTX) *PGTokenStore {
	return &PGTokenStore{db: db}
}

func (s *PGTokenStore) Create(ctx context.Context, tok *RefreshToken) error {
	_, err := s.db.ExecContext(ctx,
		`insert into refresh_tokens(id, user_id, jti, fingerprint, created_at, expires_at, revoked)
		 values($1,$2,$3,$4,$5,$6,$7)`,
		tok.ID, tok.UserID, tok.JTI, tok.Fingerprint, tok.CreatedAt, tok.ExpiresAt, tok.Revoked,
	)
	if err != nil {
		return fmt.Errorf("auth: create refresh token: %w", err)
	}
	return nil
}

func (s *PGTokenStore) Find(ctx context.Context, id uuid.UUID) (*RefreshToken, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, user_id, jti, fingerprint, created_at, expires_at, revoked
		 from refresh_tokens where id=$1`, id)
	var tok RefreshToken
	if err := row.Scan(&tok.ID, &tok.UserID, &tok.JTI, &tok.Fingerprint,
		&tok.CreatedAt, &tok.ExpiresAt, &tok.Revoked); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tok, nil
}

func (s *PGTokenStore) MarkRevoked(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`update refresh_tokens set revoked=true where id=$1`, id)
	if err != nil {
		return fmt.Errorf("auth: mark revoked: %w", err)
	}
	return nil
}

func (s *PGTokenStore) TryMarkRevoked(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`update refresh_tokens set revoked=true where id=$1 and not revoked`, id)
	if err != nil {
		return false, fmt.Errorf("auth: try mark revoked: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
