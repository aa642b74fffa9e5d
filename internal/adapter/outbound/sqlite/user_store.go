// Package sqlite provides a SQLite-backed user store, the persistent
// account backend for single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/canopy-web/canopy/internal/domain/auth"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	username      TEXT PRIMARY KEY,
	password_hash TEXT NOT NULL,
	roles         TEXT NOT NULL DEFAULT '[]',
	extra         TEXT NOT NULL DEFAULT '{}',
	created_at    TEXT NOT NULL
);
`

// UserStore implements auth.UserStore on a SQLite database. The
// connection pool serializes writes; reads run concurrently.
type UserStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the user database at path and applies
// the schema. Use ":memory:" for tests.
func Open(path string) (*UserStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open user database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply user schema: %w", err)
	}
	return &UserStore{db: db}, nil
}

// Close closes the underlying database.
func (s *UserStore) Close() error {
	return s.db.Close()
}

// Ping verifies database connectivity, for health checks.
func (s *UserStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetUser retrieves a user by username.
// Returns auth.ErrUserNotFound if the user doesn't exist.
func (s *UserStore) GetUser(ctx context.Context, username string) (*auth.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT username, password_hash, roles, extra, created_at FROM users WHERE username = ?`,
		username,
	)

	var (
		user      auth.User
		rolesJSON string
		extraJSON string
		createdAt string
	)
	err := row.Scan(&user.Username, &user.PasswordHash, &rolesJSON, &extraJSON, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user %q: %w", username, err)
	}

	if err := json.Unmarshal([]byte(rolesJSON), &user.Roles); err != nil {
		return nil, fmt.Errorf("failed to decode roles for %q: %w", username, err)
	}
	if err := json.Unmarshal([]byte(extraJSON), &user.Extra); err != nil {
		return nil, fmt.Errorf("failed to decode extra info for %q: %w", username, err)
	}
	if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
		user.CreatedAt = ts
	}
	return &user, nil
}

// CreateUser creates a new user.
// Returns auth.ErrUserExists if the username is taken.
func (s *UserStore) CreateUser(ctx context.Context, user *auth.User) error {
	rolesJSON, err := json.Marshal(user.Roles)
	if err != nil {
		return fmt.Errorf("failed to encode roles: %w", err)
	}
	extra := user.Extra
	if extra == nil {
		extra = map[string]string{}
	}
	extraJSON, err := json.Marshal(extra)
	if err != nil {
		return fmt.Errorf("failed to encode extra info: %w", err)
	}

	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, roles, extra, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.Username,
		user.PasswordHash,
		string(rolesJSON),
		string(extraJSON),
		createdAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return auth.ErrUserExists
		}
		return fmt.Errorf("failed to create user %q: %w", user.Username, err)
	}
	return nil
}

// DeleteUser deletes a user by username.
// Returns auth.ErrUserNotFound if the user doesn't exist.
func (s *UserStore) DeleteUser(ctx context.Context, username string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE username = ?`, username)
	if err != nil {
		return fmt.Errorf("failed to delete user %q: %w", username, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

// isUniqueViolation detects a primary-key conflict without depending on
// driver-specific error types. The modernc driver reports SQLite's
// "UNIQUE constraint failed" text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}

// Compile-time interface verification.
var _ auth.UserStore = (*UserStore)(nil)
