package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"eebook.org/internal/dbx"
	"eebook.org/internal/password"
)

// Service implements account use cases on top of Store. Writes that
// touch more than one row run inside a single transaction via
// dbx.WithinTx; reads go straight to the pool.
type Service struct {
	db     *sql.DB
	stores func(dbx.DBTX) Store
	hasher password.Hasher
	now    func() time.Time
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

// WithStoreFactory swaps the per-handle store constructor, letting
// tests substitute a fake without a database.
func WithStoreFactory(f func(dbx.DBTX) Store) ServiceOption {
	return func(s *Service) {
		if f != nil {
			s.stores = f
		}
	}
}

// NewService constructs the user service over the given pool.
func NewService(db *sql.DB, hasher password.Hasher, opts ...ServiceOption) *Service {
	s := &Service{
		db:     db,
		stores: func(h dbx.DBTX) Store { return NewPGStore(h) },
		hasher: hasher,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterInput carries the fields accepted at sign-up.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Username  string
	Password  string
}

// Register creates a new account. Email and username uniqueness are
// checked and the row inserted inside one transaction so two
// concurrent sign-ups cannot both pass the check.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	username := strings.TrimSpace(in.Username)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: invalid email %q", ErrInvalidInput, in.Email)
	}
	if len(in.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	u := &User{
		ID:           uuid.New(),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = dbx.WithinTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		store := s.stores(tx)
		if _, err := store.FindByEmail(ctx, email); err == nil {
			return ErrEmailTaken
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		if username != "" {
			if _, err := store.FindByUsername(ctx, username); err == nil {
				return ErrUsernameTaken
			} else if !errors.Is(err, ErrNotFound) {
				return err
			}
		}
		return store.Create(ctx, u)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Login verifies the credentials and stamps the login time. Unknown
// email and wrong password both come back as ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, plain string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var u *User
	err := dbx.WithinTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		store := s.stores(tx)
		found, err := store.FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrInvalidCredentials
			}
			return err
		}
		ok, err := s.hasher.Verify(plain, found.PasswordHash)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidCredentials
		}
		if !found.Active {
			return ErrInactive
		}
		found.TouchLogin(s.now().UTC())
		if err := store.Update(ctx, found); err != nil {
			return err
		}
		u = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ChangePassword verifies the current password before swapping in the
// hash of the new one.
func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	if len(next) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}
	return dbx.WithinTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		store := s.stores(tx)
		u, err := store.FindByID(ctx, id)
		if err != nil {
			return err
		}
		ok, err := s.hasher.Verify(current, u.PasswordHash)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidCredentials
		}
		hash, err := s.hasher.Hash(next)
		if err != nil {
			return err
		}
		u.SetPasswordHash(hash, s.now().UTC())
		return store.Update(ctx, u)
	})
}

// Activate re-enables a suspended account.
func (s *Service) Activate(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, (*User).Activate)
}

// Deactivate suspends an account. Existing sessions are revoked by the
// caller through the session layer.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, (*User).Deactivate)
}

// VerifyEmail records a completed verification for the account.
func (s *Service) VerifyEmail(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, (*User).VerifyEmail)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, apply func(*User, time.Time)) error {
	return dbx.WithinTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		store := s.stores(tx)
		u, err := store.FindByID(ctx, id)
		if err != nil {
			return err
		}
		apply(u, s.now().UTC())
		return store.Update(ctx, u)
	})
}

// Get returns the user by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.stores(s.db).FindByID(ctx, id)
}

// GetByEmail returns the user by email.
func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.stores(s.db).FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// GetByUsername returns the user by username.
func (s *Service) GetByUsername(ctx context.Context, username string) (*User, error) {
	return s.stores(s.db).FindByUsername(ctx, strings.TrimSpace(username))
}

// List pages through accounts, optionally only active ones.
func (s *Service) List(ctx context.Context, onlyActive bool, limit, offset int) ([]*User, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.stores(s.db).List(ctx, onlyActive, limit, offset)
}

// Remove deletes the account row.
func (s *Service) Remove(ctx context.Context, id uuid.UUID) error {
	return s.stores(s.db).Delete(ctx, id)
}
