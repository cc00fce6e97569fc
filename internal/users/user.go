// Package users holds the account domain: the User entity, its
// persistence contract and the registration/credential service.
package users

import (
	"time"

	"github.com/google/uuid"
)

// User is an account row. PasswordHash is a PHC-formatted argon2id
// string and never leaves the service layer in API responses.
type User struct {
	ID           uuid.UUID  `json:"id"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Email        string     `json:"email"`
	Username     string     `json:"username,omitempty"`
	PasswordHash string     `json:"-"`
	Active       bool       `json:"active"`
	Verified     bool       `json:"verified"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// FullName joins the name parts for display.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Activate marks the account usable again.
func (u *User) Activate(now time.Time) {
	u.Active = true
	u.UpdatedAt = now
}

// Deactivate suspends the account. Tokens already issued are handled
// by the session layer, not here.
func (u *User) Deactivate(now time.Time) {
	u.Active = false
	u.UpdatedAt = now
}

// VerifyEmail records a completed email verification.
func (u *User) VerifyEmail(now time.Time) {
	u.Verified = true
	u.UpdatedAt = now
}

// SetPasswordHash swaps in a new credential hash.
func (u *User) SetPasswordHash(hash string, now time.Time) {
	u.PasswordHash = hash
	u.UpdatedAt = now
}

// TouchLogin stamps a successful authentication.
func (u *User) TouchLogin(now time.Time) {
	t := now
	u.LastLoginAt = &t
	u.UpdatedAt = now
}
