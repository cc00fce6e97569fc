package users

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"eebook.org/internal/dbx"
)

var _ Store = (*PGStore)(nil)

const userColumns = `id, first_name, last_name, email, username, password_hash,
	active, verified, created_at, updated_at, last_login_at`

// PGStore implements Store over PostgreSQL. It accepts any dbx.DBTX so
// the same queries run standalone or inside a transaction.
type PGStore struct {
	db dbx.DBTX
}

func NewPGStore(db dbx.DBTX) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Create(ctx context.Context, u *User) error {
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, first_name, last_name, email, username, password_hash,
			active, verified, created_at, updated_at, last_login_at)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		u.ID, u.FirstName, u.LastName, u.Email, nullString(u.Username), u.PasswordHash,
		u.Active, u.Verified, u.CreatedAt, u.UpdatedAt, u.LastLoginAt,
	)
	if err != nil {
		return fmt.Errorf("users: create: %w", err)
	}
	return nil
}

func (s *PGStore) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.findOne(ctx, `select `+userColumns+` from users where id=$1`, id)
}

func (s *PGStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.findOne(ctx, `select `+userColumns+` from users where email=$1`, email)
}

func (s *PGStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	return s.findOne(ctx, `select `+userColumns+` from users where username=$1`, username)
}

func (s *PGStore) findOne(ctx context.Context, query string, arg any) (*User, error) {
	row := s.db.QueryRowContext(ctx, query, arg)
	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *PGStore) Update(ctx context.Context, u *User) error {
	res, err := s.db.ExecContext(ctx,
		`update users set first_name=$2, last_name=$3, email=$4, username=$5,
			password_hash=$6, active=$7, verified=$8, updated_at=$9, last_login_at=$10
		 where id=$1`,
		u.ID, u.FirstName, u.LastName, u.Email, nullString(u.Username), u.PasswordHash,
		u.Active, u.Verified, u.UpdatedAt, u.LastLoginAt,
	)
	if err != nil {
		return fmt.Errorf("users: update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `delete from users where id=$1`, id)
	if err != nil {
		return fmt.Errorf("users: delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) List(ctx context.Context, onlyActive bool, limit, offset int) ([]*User, error) {
	query := `select ` + userColumns + ` from users`
	if onlyActive {
		query += ` where active`
	}
	query += ` order by created_at, id limit $1 offset $2`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	defer rows.Close()

	var out []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u        User
		username sql.NullString
		lastSeen sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &username,
		&u.PasswordHash, &u.Active, &u.Verified, &u.CreatedAt, &u.UpdatedAt, &lastSeen); err != nil {
		return nil, err
	}
	if username.Valid {
		u.Username = username.String
	}
	if lastSeen.Valid {
		t := lastSeen.Time
		u.LastLoginAt = &t
	}
	return &u, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
