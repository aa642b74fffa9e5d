// Package redis provides a Redis-backed session store for multi-process
// deployments. Records are stored under per-session keys with a native
// TTL, so Redis itself reclaims expired sessions.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/canopy-web/canopy/internal/domain/session"
)

// DefaultKeyPrefix namespaces session keys in a shared Redis.
const DefaultKeyPrefix = "canopy:sess"

// SessionStore implements session.Store on top of go-redis. Safe for
// concurrent use; same-id writes resolve last-writer-wins, which the
// cookie-bearer session model accepts.
type SessionStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewSessionStore creates a Redis session store. An empty prefix falls
// back to DefaultKeyPrefix.
func NewSessionStore(client *redis.Client, prefix string, ttl time.Duration) *SessionStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &SessionStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *SessionStore) key(id string) string {
	return s.prefix + ":" + id
}

// Get resolves an id to a private session copy. Missing or expired keys
// yield a fresh unsaved session; only backend failure is an error.
func (s *SessionStore) Get(ctx context.Context, id string) (*session.Session, error) {
	if id == "" {
		return session.New(), nil
	}

	payload, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return session.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", session.ErrStoreUnavailable, err)
	}

	sess, err := session.Decode(id, payload)
	if err != nil {
		// A payload this process cannot read (corruption, future
		// format) is treated as an unknown session, not a failure.
		return session.New(), nil
	}
	if sess.Expired(time.Now().UTC()) {
		return session.New(), nil
	}
	return sess, nil
}

// Set persists the session with a refreshed TTL. New ids are claimed
// with SET NX and regenerated on the improbable collision.
func (s *SessionStore) Set(ctx context.Context, sess *session.Session) error {
	expiresAt := time.Now().UTC().Add(s.ttl)
	payload, err := session.Encode(session.Restore(sess.ID(), sess.Values(), expiresAt))
	if err != nil {
		return err
	}

	id := sess.ID()
	if id == "" {
		for {
			id, err = session.GenerateID()
			if err != nil {
				return err
			}
			claimed, err := s.client.SetNX(ctx, s.key(id), payload, s.ttl).Result()
			if err != nil {
				return fmt.Errorf("%w: %v", session.ErrStoreUnavailable, err)
			}
			if claimed {
				break
			}
		}
	} else {
		if err := s.client.Set(ctx, s.key(id), payload, s.ttl).Err(); err != nil {
			return fmt.Errorf("%w: %v", session.ErrStoreUnavailable, err)
		}
	}

	sess.AdoptPersisted(id, expiresAt)
	return nil
}

// Remove deletes the session's key. Returns false when the session was
// never saved or the key no longer exists.
func (s *SessionStore) Remove(ctx context.Context, sess *session.Session) (bool, error) {
	id := sess.ID()
	if id == "" {
		return false, nil
	}

	deleted, err := s.client.Del(ctx, s.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", session.ErrStoreUnavailable, err)
	}
	return deleted > 0, nil
}

// Ping verifies backend connectivity, for health checks.
func (s *SessionStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", session.ErrStoreUnavailable, err)
	}
	return nil
}

// Compile-time interface verification.
var _ session.Store = (*SessionStore)(nil)
