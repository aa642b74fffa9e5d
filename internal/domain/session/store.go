package session

import (
	"context"
	"errors"
)

// ErrStoreUnavailable is returned when the session backend is
// unreachable. The request fails but the client's cookie stays valid
// for retry; in-memory session state must not be corrupted.
var ErrStoreUnavailable = errors.New("session store unavailable")

// Store is the pluggable session persistence contract.
//
// Absence is never an error: Get with an empty, unknown, or expired id
// yields a fresh unsaved session. Errors are reserved for backend
// failure. Implementations must be safe for concurrent calls on
// different ids; same-id races resolve last-writer-wins.
type Store interface {
	// Get resolves a session id to a private session copy.
	// An empty, unknown, or expired id yields a fresh unsaved session.
	Get(ctx context.Context, id string) (*Session, error)

	// Set persists the session, generating a unique id first when the
	// session is unsaved (retrying on the improbable collision), and
	// refreshes its expiry. On success the session is clean and carries
	// its id.
	Set(ctx context.Context, s *Session) error

	// Remove deletes the session's record. Returns false when the id
	// was absent or never stored; callers treat that as suspicious.
	Remove(ctx context.Context, s *Session) (bool, error)
}
