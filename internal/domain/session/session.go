// Package session manages server-side per-client state referenced by a
// bearer cookie. A Session is a private, request-scoped copy of its
// record; the Store is the only object shared across concurrent requests.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// UserKey is the reserved values key holding the logged-in user
// reference. Handlers should use SetUser/User instead of touching it.
const UserKey = "_user"

// UserRef is the minimal user reference stored in a session: the
// username plus cached roles. Full user objects are never embedded in
// session payloads; look the user up by name when more is needed.
type UserRef struct {
	Username string
	Roles    []string
}

// Session is the in-memory representation of one session: an id (empty
// until first persisted), a key-value bag, and the dirty/removal flags
// driving finalization.
//
// A Session is not safe for concurrent use; each request owns its copy.
type Session struct {
	id        string
	values    map[string]any
	expiresAt time.Time
	dirty     bool
	remove    bool
}

// New returns a fresh unsaved session: no id, empty bag, clean flags.
func New() *Session {
	return &Session{values: make(map[string]any)}
}

// Restore rebuilds a session from stored state with clean flags.
func Restore(id string, values map[string]any, expiresAt time.Time) *Session {
	if values == nil {
		values = make(map[string]any)
	}
	return &Session{id: id, values: values, expiresAt: expiresAt}
}

// ID returns the session id, or "" for an unsaved session.
func (s *Session) ID() string {
	return s.id
}

// Saved reports whether the session has ever been persisted.
func (s *Session) Saved() bool {
	return s.id != ""
}

// Get returns the value stored under key.
func (s *Session) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// GetString returns the string stored under key, or "" if absent or not
// a string.
func (s *Session) GetString(key string) string {
	v, _ := s.values[key].(string)
	return v
}

// Set stores a value and marks the session dirty. Values must be
// limited to strings, numbers, booleans, nested maps and slices; the
// store codec rejects anything else at persist time.
func (s *Session) Set(key string, value any) {
	s.values[key] = value
	s.dirty = true
}

// Delete removes a key and marks the session dirty.
func (s *Session) Delete(key string) {
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	s.dirty = true
}

// SetUser records the logged-in user by reference.
func (s *Session) SetUser(username string, roles []string) {
	s.Set(UserKey, map[string]any{
		"username": username,
		"roles":    toAnySlice(roles),
	})
}

// ClearUser removes the logged-in user reference.
func (s *Session) ClearUser() {
	s.Delete(UserKey)
}

// User returns the logged-in user reference, if any.
func (s *Session) User() (UserRef, bool) {
	raw, ok := s.values[UserKey]
	if !ok {
		return UserRef{}, false
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return UserRef{}, false
	}
	ref := UserRef{}
	ref.Username, _ = m["username"].(string)
	if ref.Username == "" {
		return UserRef{}, false
	}
	if roles, ok := m["roles"].([]any); ok {
		for _, r := range roles {
			if rs, ok := r.(string); ok {
				ref.Roles = append(ref.Roles, rs)
			}
		}
	}
	return ref, true
}

// MarkRemoval flags the session for deletion at finalization.
func (s *Session) MarkRemoval() {
	s.remove = true
}

// PendingRemoval reports whether the session is flagged for deletion.
func (s *Session) PendingRemoval() bool {
	return s.remove
}

// Dirty reports whether the bag changed since the session was resolved.
func (s *Session) Dirty() bool {
	return s.dirty
}

// ExpiresAt returns the expiry timestamp (zero for unsaved sessions).
func (s *Session) ExpiresAt() time.Time {
	return s.expiresAt
}

// Expired reports whether the session expired before now. Unsaved
// sessions never count as expired.
func (s *Session) Expired(now time.Time) bool {
	return s.id != "" && now.After(s.expiresAt)
}

// Values returns the underlying bag. Stores must copy before sharing.
func (s *Session) Values() map[string]any {
	return s.values
}

// Len returns the number of stored keys.
func (s *Session) Len() int {
	return len(s.values)
}

// AdoptPersisted is called by stores after a successful Set: the
// session now carries its (possibly new) id and refreshed expiry, and
// is clean.
func (s *Session) AdoptPersisted(id string, expiresAt time.Time) {
	s.id = id
	s.expiresAt = expiresAt
	s.dirty = false
}

// idBytes gives 256 bits of entropy, comfortably above the 192-bit
// floor required for bearer tokens.
const idBytes = 32

// GenerateID creates a cryptographically random session id, 64 hex
// characters. Session ids are bearer tokens and must be unpredictable.
func GenerateID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
