package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

var pgUserColumns = []string{"id", "first_name", "last_name", "email", "username",
	"password_hash", "active", "verified", "created_at", "updated_at", "last_login_at"}

func TestPGStoreCreateAndFind(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	store := NewPGStore(db)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	u := &User{
		ID:           uuid.New(),
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Email:        "ada@example.com",
		PasswordHash: "$argon2id$...",
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	mock.ExpectExec("insert into users").
		WithArgs(u.ID, u.FirstName, u.LastName, u.Email, sqlmock.AnyArg(), u.PasswordHash,
			u.Active, u.Verified, u.CreatedAt, u.UpdatedAt, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := store.Create(ctx, u); err != nil {
		t.Fatalf("Create: %v", err)
	}

	rows := sqlmock.NewRows(pgUserColumns).
		AddRow(u.ID.String(), u.FirstName, u.LastName, u.Email, nil,
			u.PasswordHash, u.Active, u.Verified, u.CreatedAt, u.UpdatedAt, nil)
	mock.ExpectQuery("select (.+) from users where email=").
		WithArgs(u.Email).
		WillReturnRows(rows)

	got, err := store.FindByEmail(ctx, u.Email)
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if got.ID != u.ID || got.Username != "" || got.LastLoginAt != nil {
		t.Fatalf("unexpected row: %+v", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGStoreFindMiss(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	id := uuid.New()
	mock.ExpectQuery("select (.+) from users where id=").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(pgUserColumns))

	_, err = NewPGStore(db).FindByID(context.Background(), id)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGStoreUpdateMiss(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	u := &User{ID: uuid.New(), Email: "ada@example.com"}
	mock.ExpectExec("update users set").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := NewPGStore(db).Update(context.Background(), u); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGStoreListOnlyActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(pgUserColumns).
		AddRow(uuid.NewString(), "Ada", "Lovelace", "ada@example.com", "ada",
			"$argon2id$...", true, true, now, now, now)
	mock.ExpectQuery(`select (.+) from users where active order by created_at`).
		WithArgs(10, 0).
		WillReturnRows(rows)

	out, err := NewPGStore(db).List(context.Background(), true, 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(out) != 1 || out[0].Username != "ada" || out[0].LastLoginAt == nil {
		t.Fatalf("unexpected result: %+v", out)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGStoreDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	store := NewPGStore(db)
	id := uuid.New()

	mock.ExpectExec("delete from users where id=").
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := store.Delete(context.Background(), id); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	mock.ExpectExec("delete from users where id=").
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := store.Delete(context.Background(), id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
