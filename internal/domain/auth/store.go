package auth

import (
	"context"
	"errors"
)

// Sentinel errors for user store operations.
var (
	// ErrUserNotFound is returned when a user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when creating a user whose username is taken.
	ErrUserExists = errors.New("user already exists")
)

// UserStore provides credential lookup and account management.
// This interface is defined in the domain to avoid circular imports.
// Implementations: in-memory (dev/test), SQLite (prod).
type UserStore interface {
	// GetUser retrieves a user by username.
	// Returns ErrUserNotFound if the user doesn't exist.
	GetUser(ctx context.Context, username string) (*User, error)

	// CreateUser creates a new user.
	// Returns ErrUserExists if the username is taken.
	CreateUser(ctx context.Context, user *User) error

	// DeleteUser deletes a user by username.
	// Returns ErrUserNotFound if the user doesn't exist.
	DeleteUser(ctx context.Context, username string) error
}
