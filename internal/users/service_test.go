package users

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"eebook.org/internal/dbx"
)

// fakeStore is an in-memory Store. The service's transactions still run
// against a sqlmock pool, so tests declare the begin/commit/rollback
// they expect.
type fakeStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*User
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[uuid.UUID]*User)}
}

func (s *fakeStore) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.rows[u.ID] = &cp
	return nil
}

func (s *fakeStore) FindByID(_ context.Context, id uuid.UUID) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.rows[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (s *fakeStore) FindByEmail(_ context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.rows {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *fakeStore) FindByUsername(_ context.Context, username string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.rows {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *fakeStore) Update(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[u.ID]; !ok {
		return ErrNotFound
	}
	cp := *u
	s.rows[u.ID] = &cp
	return nil
}

func (s *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *fakeStore) List(_ context.Context, onlyActive bool, limit, offset int) ([]*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*User
	for _, u := range s.rows {
		if onlyActive && !u.Active {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

// fakeHasher makes credential checks deterministic and cheap.
type fakeHasher struct{}

func (fakeHasher) Hash(plain string) (string, error) {
	return "hashed:" + plain, nil
}

func (fakeHasher) Verify(plain, encoded string) (bool, error) {
	return encoded == "hashed:"+plain, nil
}

type svcFixture struct {
	svc   *Service
	store *fakeStore
	mock  sqlmock.Sqlmock
	now   *time.Time
}

func newSvcFixture(t *testing.T) *svcFixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	svc := NewService(db, fakeHasher{},
		WithClock(func() time.Time { return now }),
		WithStoreFactory(func(dbx.DBTX) Store { return store }),
	)
	return &svcFixture{svc: svc, store: store, mock: mock, now: &now}
}

func (f *svcFixture) register(t *testing.T, email, pass string) *User {
	t.Helper()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	u, err := f.svc.Register(context.Background(), RegisterInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     email,
		Password:  pass,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return u
}

func TestRegisterNormalizesAndHashes(t *testing.T) {
	f := newSvcFixture(t)

	u := f.register(t, "  Ada@Example.COM ", "s3cret-pass")
	if u.Email != "ada@example.com" {
		t.Fatalf("email not normalized: %q", u.Email)
	}
	if u.PasswordHash != "hashed:s3cret-pass" {
		t.Fatalf("password not hashed: %q", u.PasswordHash)
	}
	if !u.Active || u.Verified {
		t.Fatalf("new account flags: active=%v verified=%v", u.Active, u.Verified)
	}
	if !u.CreatedAt.Equal(*f.now) || !u.UpdatedAt.Equal(*f.now) {
		t.Fatalf("timestamps not stamped from the clock")
	}

	stored, err := f.store.FindByID(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("row not persisted: %v", err)
	}
	if stored.Email != u.Email {
		t.Fatalf("stored email mismatch: %q", stored.Email)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	f := newSvcFixture(t)
	f.register(t, "ada@example.com", "s3cret-pass")

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    "ada@example.com",
		Password: "another-pass",
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	if _, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    "grace@example.com",
		Username: "grace",
		Password: "s3cret-pass",
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err = f.svc.Register(context.Background(), RegisterInput{
		Email:    "grace2@example.com",
		Username: "grace",
		Password: "s3cret-pass",
	})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestRegisterRejectsBadInput(t *testing.T) {
	f := newSvcFixture(t)

	// Validation failures carry ErrInvalidInput so callers can tell
	// them apart from store errors.
	if _, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    "not-an-email",
		Password: "s3cret-pass",
	}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("invalid email: expected ErrInvalidInput, got %v", err)
	}
	if _, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    "ada@example.com",
		Password: "short",
	}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("short password: expected ErrInvalidInput, got %v", err)
	}
}

func TestLoginStampsLastLogin(t *testing.T) {
	f := newSvcFixture(t)
	u := f.register(t, "ada@example.com", "s3cret-pass")

	*f.now = f.now.Add(time.Hour)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	got, err := f.svc.Login(context.Background(), "ada@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("wrong user: %v", got.ID)
	}
	if got.LastLoginAt == nil || !got.LastLoginAt.Equal(*f.now) {
		t.Fatalf("login not stamped: %v", got.LastLoginAt)
	}
}

func TestLoginRejections(t *testing.T) {
	f := newSvcFixture(t)
	u := f.register(t, "ada@example.com", "s3cret-pass")

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	if _, err := f.svc.Login(context.Background(), "nobody@example.com", "s3cret-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: got %v", err)
	}

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	if _, err := f.svc.Login(context.Background(), "ada@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v", err)
	}

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	if err := f.svc.Deactivate(context.Background(), u.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	if _, err := f.svc.Login(context.Background(), "ada@example.com", "s3cret-pass"); !errors.Is(err, ErrInactive) {
		t.Fatalf("inactive account: got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	f := newSvcFixture(t)
	u := f.register(t, "ada@example.com", "s3cret-pass")

	// Rejected before any transaction opens.
	if err := f.svc.ChangePassword(context.Background(), u.ID, "s3cret-pass", "short"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("short password: expected ErrInvalidInput, got %v", err)
	}

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	err := f.svc.ChangePassword(context.Background(), u.ID, "wrong-current", "new-password")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	if err := f.svc.ChangePassword(context.Background(), u.ID, "s3cret-pass", "new-password"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	if _, err := f.svc.Login(context.Background(), "ada@example.com", "new-password"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestListClampsPaging(t *testing.T) {
	f := newSvcFixture(t)
	f.register(t, "ada@example.com", "s3cret-pass")

	// Out-of-range paging values fall back to defaults instead of
	// reaching the store unchecked.
	out, err := f.svc.List(context.Background(), false, -5, -3)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected one row, got %d", len(out))
	}
}

func TestRemoveMissingUser(t *testing.T) {
	f := newSvcFixture(t)
	if err := f.svc.Remove(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRegisterUsesOneTransaction(t *testing.T) {
	f := newSvcFixture(t)
	f.register(t, "ada@example.com", "s3cret-pass")
	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("transaction expectations: %v", err)
	}
}

// Guard against the email check accepting padded duplicates.
func TestRegisterDuplicateAfterNormalization(t *testing.T) {
	f := newSvcFixture(t)
	f.register(t, "ada@example.com", "s3cret-pass")

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    " ADA@EXAMPLE.COM ",
		Password: "s3cret-pass",
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if !strings.Contains(err.Error(), "already registered") {
		t.Fatalf("unexpected message: %v", err)
	}
}
