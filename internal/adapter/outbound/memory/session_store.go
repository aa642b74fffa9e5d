// Package memory provides in-memory implementations of the outbound
// store contracts. Suitable for development, tests, and single-process
// deployments.
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/canopy-web/canopy/internal/domain/session"
)

// DefaultCleanupInterval is the default expired-session sweep period.
const DefaultCleanupInterval = 1 * time.Minute

// DefaultTTL is the default session lifetime, matching the framework's
// 30-day cookie model.
const DefaultTTL = 30 * 24 * time.Hour

// record is the stored form of one session. Values are deep-copied on
// the way in and out so no request shares memory with the store.
type record struct {
	values    map[string]any
	expiresAt time.Time
}

// SessionStore implements session.Store with a map. Thread-safe for
// concurrent access on different ids; same-id writes are
// last-writer-wins. Expired records are swept by a background goroutine
// and additionally filtered lazily on Get.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]record

	ttl             time.Duration
	cleanupInterval time.Duration
	stopChan        chan struct{}
	wg              sync.WaitGroup
	once            sync.Once // Prevent double-close panic on Stop()
}

// NewSessionStore creates an in-memory session store with the given
// session lifetime. A non-positive ttl falls back to DefaultTTL.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return NewSessionStoreWithConfig(ttl, DefaultCleanupInterval)
}

// NewSessionStoreWithConfig creates a store with a custom sweep period.
func NewSessionStoreWithConfig(ttl, cleanupInterval time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	return &SessionStore{
		sessions:        make(map[string]record),
		ttl:             ttl,
		cleanupInterval: cleanupInterval,
		stopChan:        make(chan struct{}),
	}
}

// StartCleanup starts the background sweep goroutine. Call Stop to shut
// it down gracefully.
func (s *SessionStore) StartCleanup(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

// sweep removes all expired records.
func (s *SessionStore) sweep() {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	cleaned := 0
	for id, rec := range s.sessions {
		if now.After(rec.expiresAt) {
			delete(s.sessions, id)
			cleaned++
		}
	}
	if cleaned > 0 {
		slog.Debug("swept expired sessions", "count", cleaned)
	}
}

// Stop stops the sweep goroutine and waits for it to exit.
// Safe to call multiple times, also when StartCleanup was never called.
func (s *SessionStore) Stop() {
	s.once.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
}

// Get resolves an id to a private session copy. An empty, unknown, or
// expired id yields a fresh unsaved session, never an error.
func (s *SessionStore) Get(ctx context.Context, id string) (*session.Session, error) {
	if id == "" {
		return session.New(), nil
	}

	s.mu.RLock()
	rec, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok || time.Now().UTC().After(rec.expiresAt) {
		return session.New(), nil
	}
	return session.Restore(id, copyValues(rec.values), rec.expiresAt), nil
}

// Set persists the session, generating a fresh unique id when unsaved.
// The collision retry loop is defensive only: at 256 bits of id entropy
// a conflict indicates a broken random source.
func (s *SessionStore) Set(ctx context.Context, sess *session.Session) error {
	expiresAt := time.Now().UTC().Add(s.ttl)
	values := copyValues(sess.Values())

	s.mu.Lock()
	defer s.mu.Unlock()

	id := sess.ID()
	if id == "" {
		for {
			generated, err := session.GenerateID()
			if err != nil {
				return err
			}
			if _, taken := s.sessions[generated]; !taken {
				id = generated
				break
			}
		}
	}

	s.sessions[id] = record{values: values, expiresAt: expiresAt}
	sess.AdoptPersisted(id, expiresAt)
	return nil
}

// Remove deletes the session's record. Returns false when the session
// was never saved or the id is unknown.
func (s *SessionStore) Remove(ctx context.Context, sess *session.Session) (bool, error) {
	id := sess.ID()
	if id == "" {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return false, nil
	}
	delete(s.sessions, id)
	return true, nil
}

// Count returns the number of stored sessions, expired ones included
// until the next sweep. Useful for health checks and tests.
func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// copyValues deep-copies a session bag. Bags hold only JSON-shaped
// values (scalars, maps, slices), so the walk below covers them.
func copyValues(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		return copyValues(tv)
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = copyValue(e)
		}
		return out
	case []string:
		out := make([]string, len(tv))
		copy(out, tv)
		return out
	default:
		return v
	}
}

// Compile-time interface verification.
var _ session.Store = (*SessionStore)(nil)
