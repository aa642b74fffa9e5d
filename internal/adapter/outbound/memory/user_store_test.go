package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/canopy-web/canopy/internal/domain/auth"
)

func TestUserStoreCRUD(t *testing.T) {
	store := NewUserStore()
	ctx := context.Background()

	if _, err := store.GetUser(ctx, "kst"); !errors.Is(err, auth.ErrUserNotFound) {
		t.Errorf("GetUser() unknown = %v, want ErrUserNotFound", err)
	}

	user := &auth.User{
		Username:     "kst",
		PasswordHash: "$argon2id$fake",
		Roles:        []auth.Role{"testrole"},
		Extra:        map[string]string{"full_name": "K. S. T."},
	}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if err := store.CreateUser(ctx, user); !errors.Is(err, auth.ErrUserExists) {
		t.Errorf("CreateUser() duplicate = %v, want ErrUserExists", err)
	}

	got, err := store.GetUser(ctx, "kst")
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if got.Username != "kst" || !got.HasRole("testrole") {
		t.Errorf("GetUser() = %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreateUser() did not stamp CreatedAt")
	}

	// Mutating the returned copy must not affect the store.
	got.Roles[0] = "mutated"
	again, _ := store.GetUser(ctx, "kst")
	if !again.HasRole("testrole") {
		t.Error("returned user shares memory with the store")
	}

	if err := store.DeleteUser(ctx, "kst"); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}
	if err := store.DeleteUser(ctx, "kst"); !errors.Is(err, auth.ErrUserNotFound) {
		t.Errorf("DeleteUser() twice = %v, want ErrUserNotFound", err)
	}
}

func TestUserStoreCount(t *testing.T) {
	store := NewUserStore()
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		if err := store.CreateUser(ctx, &auth.User{Username: name, PasswordHash: "h"}); err != nil {
			t.Fatalf("CreateUser(%s) error = %v", name, err)
		}
	}
	if store.Count() != 3 {
		t.Errorf("Count() = %d, want 3", store.Count())
	}
}
