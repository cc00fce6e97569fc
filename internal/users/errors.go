package users

import "errors"

var (
	// ErrNotFound signals a lookup miss for a user row.
	ErrNotFound = errors.New("users: not found")
	// ErrInvalidInput marks validation failures on caller-supplied
	// fields, as opposed to store or hasher failures.
	ErrInvalidInput = errors.New("users: invalid input")
	// ErrEmailTaken signals a registration against an existing email.
	ErrEmailTaken = errors.New("users: email already registered")
	// ErrUsernameTaken signals a registration against an existing username.
	ErrUsernameTaken = errors.New("users: username already registered")
	// ErrInvalidCredentials covers both unknown accounts and wrong
	// passwords so callers cannot distinguish the two.
	ErrInvalidCredentials = errors.New("users: invalid credentials")
	// ErrInactive signals a login attempt against a deactivated account.
	ErrInactive = errors.New("users: account deactivated")
)
