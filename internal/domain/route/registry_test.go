package route

import (
	"context"
	"errors"
	"testing"

	"github.com/canopy-web/canopy/internal/domain/auth"
)

func noopHandler(ctx context.Context, req *Request) (any, error) {
	return nil, nil
}

func TestRegisterAndResolve(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register(Route{Method: "get", Path: "/api/things", Handler: noopHandler}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := reg.Register(Route{Method: "POST", Path: "/api/things", Handler: noopHandler}); err != nil {
		t.Fatalf("Register() same path different method error = %v", err)
	}

	r, err := reg.Resolve("GET", "/api/things")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if r.Method != "GET" {
		t.Errorf("method not normalized: %q", r.Method)
	}

	if _, err := reg.Resolve("DELETE", "/api/things"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Resolve() unregistered = %v, want ErrNotFound", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(Route{Method: "GET", Path: "/api/a", Handler: noopHandler}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	err := reg.Register(Route{Method: "get", Path: "/api/a", Handler: noopHandler})
	if !errors.Is(err, ErrDuplicateRoute) {
		t.Errorf("Register() duplicate = %v, want ErrDuplicateRoute", err)
	}
}

func TestFreeze(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(Route{Method: "GET", Path: "/api/a", Handler: noopHandler}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	reg.Freeze()

	err := reg.Register(Route{Method: "GET", Path: "/api/b", Handler: noopHandler})
	if !errors.Is(err, ErrFrozen) {
		t.Errorf("Register() after Freeze = %v, want ErrFrozen", err)
	}
}

func TestPathRegistered(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(Route{Method: "POST", Path: "/api/upload", Handler: noopHandler}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if !reg.PathRegistered("/api/upload") {
		t.Error("PathRegistered() = false for registered path")
	}
	if reg.PathRegistered("/api/other") {
		t.Error("PathRegistered() = true for unknown path")
	}
}

func TestRoutesPreservesOrder(t *testing.T) {
	reg := NewRegistry()
	paths := []string{"/api/c", "/api/a", "/api/b"}
	for _, p := range paths {
		if err := reg.Register(Route{Method: "GET", Path: p, Handler: noopHandler}); err != nil {
			t.Fatalf("Register(%s) error = %v", p, err)
		}
	}

	routes := reg.Routes()
	if len(routes) != len(paths) {
		t.Fatalf("Routes() length = %d, want %d", len(routes), len(paths))
	}
	for i, p := range paths {
		if routes[i].Path != p {
			t.Errorf("Routes()[%d].Path = %q, want %q", i, routes[i].Path, p)
		}
	}
}

func TestRequiresAuth(t *testing.T) {
	public := Route{Method: "GET", Path: "/p", Handler: noopHandler}
	if public.RequiresAuth() {
		t.Error("route without descriptor must be public")
	}

	restricted := Route{Method: "GET", Path: "/r", Handler: noopHandler, Auth: auth.RequireRoles("admin")}
	if !restricted.RequiresAuth() {
		t.Error("route with descriptor must require auth")
	}
}
