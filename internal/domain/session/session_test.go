package session

import (
	"testing"
	"time"
)

func TestGenerateID(t *testing.T) {
	ids := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := GenerateID()
		if err != nil {
			t.Fatalf("GenerateID() error = %v", err)
		}
		if len(id) != 64 {
			t.Fatalf("GenerateID() length = %d, want 64 hex chars", len(id))
		}
		if ids[id] {
			t.Fatalf("GenerateID() produced duplicate %s", id)
		}
		ids[id] = true
	}
}

func TestDirtyTracking(t *testing.T) {
	s := New()
	if s.Dirty() {
		t.Error("fresh session must be clean")
	}
	if s.Saved() {
		t.Error("fresh session must be unsaved")
	}

	s.Set("theme", "dark")
	if !s.Dirty() {
		t.Error("Set must mark the session dirty")
	}

	s.AdoptPersisted("abc", time.Now().Add(time.Hour))
	if s.Dirty() {
		t.Error("persisting must clear the dirty flag")
	}
	if s.ID() != "abc" {
		t.Errorf("ID() = %q, want %q", s.ID(), "abc")
	}

	s.Delete("theme")
	if !s.Dirty() {
		t.Error("Delete must mark the session dirty")
	}

	s2 := New()
	s2.Delete("missing")
	if s2.Dirty() {
		t.Error("deleting an absent key must not dirty the session")
	}
}

func TestUserRef(t *testing.T) {
	s := New()
	if _, ok := s.User(); ok {
		t.Error("fresh session must carry no user")
	}

	s.SetUser("kst", []string{"testrole"})
	ref, ok := s.User()
	if !ok {
		t.Fatal("User() not found after SetUser")
	}
	if ref.Username != "kst" {
		t.Errorf("Username = %q, want %q", ref.Username, "kst")
	}
	if len(ref.Roles) != 1 || ref.Roles[0] != "testrole" {
		t.Errorf("Roles = %v, want [testrole]", ref.Roles)
	}

	s.ClearUser()
	if _, ok := s.User(); ok {
		t.Error("User() found after ClearUser")
	}
}

func TestExpired(t *testing.T) {
	now := time.Now().UTC()

	unsaved := New()
	if unsaved.Expired(now) {
		t.Error("unsaved session must never be expired")
	}

	live := Restore("id1", nil, now.Add(time.Hour))
	if live.Expired(now) {
		t.Error("live session reported expired")
	}

	stale := Restore("id2", nil, now.Add(-time.Minute))
	if !stale.Expired(now) {
		t.Error("stale session reported live")
	}
}

func TestCodecRoundTrip(t *testing.T) {
	s := New()
	s.Set("count", 3)
	s.Set("theme", "dark")
	s.SetUser("kst", []string{"testrole", "superrole"})
	s.AdoptPersisted("deadbeef", time.Now().Add(time.Hour).UTC())

	b, err := Encode(s)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	got, err := Decode("deadbeef", b)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.ID() != "deadbeef" {
		t.Errorf("ID() = %q, want %q", got.ID(), "deadbeef")
	}
	if got.GetString("theme") != "dark" {
		t.Errorf("theme = %q, want %q", got.GetString("theme"), "dark")
	}
	ref, ok := got.User()
	if !ok {
		t.Fatal("user reference lost in round trip")
	}
	if ref.Username != "kst" || len(ref.Roles) != 2 {
		t.Errorf("user ref = %+v", ref)
	}
	if got.Dirty() {
		t.Error("decoded session must be clean")
	}
}

func TestCodecRejectsOpaqueValues(t *testing.T) {
	type opaque struct{ F func() }

	s := New()
	s.Set("bad", opaque{})

	if _, err := Encode(s); err == nil {
		t.Error("Encode() accepted an unsupported value type")
	}
}

func TestCodecRejectsUnknownVersion(t *testing.T) {
	if _, err := Decode("x", []byte(`{"v":99,"expires_at":0,"data":{}}`)); err == nil {
		t.Error("Decode() accepted unknown payload version")
	}
}
