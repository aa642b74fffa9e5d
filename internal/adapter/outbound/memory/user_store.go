package memory

import (
	"context"
	"sync"
	"time"

	"github.com/canopy-web/canopy/internal/domain/auth"
)

// UserStore implements auth.UserStore with a map. Thread-safe for
// concurrent access. For development and testing.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]*auth.User
}

// NewUserStore creates an empty in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]*auth.User)}
}

// GetUser retrieves a user by username.
// Returns auth.ErrUserNotFound if the user doesn't exist.
func (s *UserStore) GetUser(ctx context.Context, username string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[username]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return copyUser(user), nil
}

// CreateUser creates a new user.
// Returns auth.ErrUserExists if the username is taken.
func (s *UserStore) CreateUser(ctx context.Context, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.Username]; exists {
		return auth.ErrUserExists
	}

	stored := copyUser(user)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.users[user.Username] = stored
	return nil
}

// DeleteUser deletes a user by username.
// Returns auth.ErrUserNotFound if the user doesn't exist.
func (s *UserStore) DeleteUser(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; !ok {
		return auth.ErrUserNotFound
	}
	delete(s.users, username)
	return nil
}

// Count returns the number of stored users.
func (s *UserStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// copyUser returns a deep copy so callers never share memory with the
// store.
func copyUser(u *auth.User) *auth.User {
	out := *u
	out.Roles = make([]auth.Role, len(u.Roles))
	copy(out.Roles, u.Roles)
	if u.Extra != nil {
		out.Extra = make(map[string]string, len(u.Extra))
		for k, v := range u.Extra {
			out.Extra[k] = v
		}
	}
	return &out
}

// Compile-time interface verification.
var _ auth.UserStore = (*UserStore)(nil)
