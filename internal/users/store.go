package users

import (
	"context"

	"github.com/google/uuid"
)

// Store is the persistence contract for user rows. Lookups return
// ErrNotFound on a miss; other errors are infrastructure failures.
type Store interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, onlyActive bool, limit, offset int) ([]*User, error)
}
