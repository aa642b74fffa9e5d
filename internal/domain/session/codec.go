package session

import (
	"encoding/json"
	"fmt"
	"time"
)

// codecVersion tags the serialized envelope so the payload format can
// evolve without guessing. Version 1: JSON envelope, millisecond expiry.
const codecVersion = 1

// envelope is the versioned wire form of a session record. Session ids
// are the storage key, not part of the payload.
type envelope struct {
	Version   int            `json:"v"`
	ExpiresAt int64          `json:"expires_at"`
	Data      map[string]any `json:"data"`
}

// Encode serializes a session's bag and expiry for a byte-oriented
// backend. Values outside the supported kinds (strings, numbers,
// booleans, nested maps/slices, nil) are rejected.
func Encode(s *Session) ([]byte, error) {
	for key, value := range s.Values() {
		if err := checkValue(key, value); err != nil {
			return nil, err
		}
	}
	b, err := json.Marshal(envelope{
		Version:   codecVersion,
		ExpiresAt: s.ExpiresAt().UnixMilli(),
		Data:      s.Values(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}
	return b, nil
}

// Decode rebuilds a session from its stored form under the given id.
func Decode(id string, b []byte) (*Session, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if env.Version != codecVersion {
		return nil, fmt.Errorf("unsupported session payload version %d", env.Version)
	}
	return Restore(id, env.Data, time.UnixMilli(env.ExpiresAt).UTC()), nil
}

// checkValue enforces the minimal session value model. Arbitrary
// structs (in particular full user objects) must not end up in a
// session payload.
func checkValue(key string, value any) error {
	switch v := value.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return nil
	case map[string]any:
		for k, nested := range v {
			if err := checkValue(key+"."+k, nested); err != nil {
				return err
			}
		}
		return nil
	case []any:
		for i, nested := range v {
			if err := checkValue(fmt.Sprintf("%s[%d]", key, i), nested); err != nil {
				return err
			}
		}
		return nil
	case []string:
		return nil
	default:
		return fmt.Errorf("session value %q has unsupported type %T", key, value)
	}
}
