package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/canopy-web/canopy/internal/adapter/outbound/memory"
	"github.com/canopy-web/canopy/internal/domain/auth"
	"github.com/canopy-web/canopy/internal/domain/httperr"
	"github.com/canopy-web/canopy/internal/domain/route"
	"github.com/canopy-web/canopy/internal/domain/session"
)

func seedUser(t *testing.T, store *memory.UserStore, username, password string, roles ...auth.Role) {
	t.Helper()

	user, err := auth.NewUser(username, password, roles, map[string]string{"team": "core"})
	if err != nil {
		t.Fatalf("NewUser() error = %v", err)
	}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
}

func TestMandatoryCheck(t *testing.T) {
	data := route.Data{"username": "kst"}

	if err := MandatoryCheck(data, "username"); err != nil {
		t.Errorf("MandatoryCheck() present key = %v, want nil", err)
	}

	err := MandatoryCheck(data, "username", "password")
	if err == nil {
		t.Fatal("MandatoryCheck() missing key = nil, want error")
	}
	herr := httperr.From(err)
	if herr.Status != 400 {
		t.Errorf("status = %d, want 400", herr.Status)
	}
	if herr.Reason != `Mandatory parameter "password" does not found` {
		t.Errorf("reason = %q", herr.Reason)
	}
}

func TestLoginSuccess(t *testing.T) {
	users := memory.NewUserStore()
	seedUser(t, users, "kst", "123", "testrole")
	svc := NewAuthService(users, nil)

	sess := session.New()
	req := &route.Request{
		Data:    route.Data{"username": "kst", "password": "123"},
		Session: sess,
	}

	result, err := svc.Login(context.Background(), req)
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	body, ok := result.(map[string]any)
	if !ok {
		t.Fatalf("Login() result type = %T", result)
	}
	if body["username"] != "kst" {
		t.Errorf("username = %v", body["username"])
	}
	roles, ok := body["roles"].([]string)
	if !ok || len(roles) != 1 || roles[0] != "testrole" {
		t.Errorf("roles = %v", body["roles"])
	}
	extra, ok := body["additional"].(map[string]string)
	if !ok || extra["team"] != "core" {
		t.Errorf("additional = %v", body["additional"])
	}

	ref, ok := sess.User()
	if !ok || ref.Username != "kst" {
		t.Errorf("session user = %+v, ok = %v", ref, ok)
	}
	if !sess.Dirty() {
		t.Error("login did not mark the session dirty")
	}
}

func TestLoginFailures(t *testing.T) {
	users := memory.NewUserStore()
	seedUser(t, users, "kst", "123", "testrole")
	svc := NewAuthService(users, nil)

	tests := []struct {
		name       string
		data       route.Data
		wantStatus int
		wantReason string
	}{
		{
			name:       "unknown user",
			data:       route.Data{"username": "ghost", "password": "123"},
			wantStatus: 401,
			wantReason: "User does not found",
		},
		{
			name:       "wrong password",
			data:       route.Data{"username": "kst", "password": "nope"},
			wantStatus: 401,
			wantReason: "Invalid password",
		},
		{
			name:       "missing password",
			data:       route.Data{"username": "kst"},
			wantStatus: 400,
			wantReason: `Mandatory parameter "password" does not found`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := session.New()
			_, err := svc.Login(context.Background(), &route.Request{Data: tt.data, Session: sess})
			if err == nil {
				t.Fatal("Login() error = nil, want failure")
			}
			herr := httperr.From(err)
			if herr.Status != tt.wantStatus {
				t.Errorf("status = %d, want %d", herr.Status, tt.wantStatus)
			}
			if herr.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", herr.Reason, tt.wantReason)
			}
			if _, ok := sess.User(); ok {
				t.Error("failed login bound a user to the session")
			}
		})
	}
}

func TestLogout(t *testing.T) {
	svc := NewAuthService(memory.NewUserStore(), nil)

	t.Run("default removes the session", func(t *testing.T) {
		sess := session.New()
		sess.SetUser("kst", []string{"testrole"})

		_, err := svc.Logout(context.Background(), &route.Request{Data: route.Data{}, Session: sess})
		if err != nil {
			t.Fatalf("Logout() error = %v", err)
		}
		if !sess.PendingRemoval() {
			t.Error("session not marked for removal")
		}
	})

	t.Run("clear_session false keeps the bag", func(t *testing.T) {
		sess := session.New()
		sess.SetUser("kst", []string{"testrole"})
		sess.Set("theme", "dark")

		_, err := svc.Logout(context.Background(), &route.Request{
			Data:    route.Data{"clear_session": false},
			Session: sess,
		})
		if err != nil {
			t.Fatalf("Logout() error = %v", err)
		}
		if sess.PendingRemoval() {
			t.Error("session marked for removal despite clear_session=false")
		}
		if _, ok := sess.User(); ok {
			t.Error("user binding survived logout")
		}
		if sess.GetString("theme") != "dark" {
			t.Error("unrelated session data was dropped")
		}
	})
}

func TestBuildRegistry(t *testing.T) {
	users := memory.NewUserStore()

	echo := func(_ context.Context, req *route.Request) (any, error) {
		return req.Data, nil
	}
	registry, err := BuildRegistry(users, nil,
		route.Route{Method: "GET", Path: "/api/ping", Handler: echo, Doc: "Health probe."},
	)
	if err != nil {
		t.Fatalf("BuildRegistry() error = %v", err)
	}

	for _, want := range []struct{ method, path string }{
		{"GET", "/api/ping"},
		{"POST", "/api/__auth__"},
		{"POST", "/api/__logout__"},
		{"GET", "/api/__introspect__"},
	} {
		if _, err := registry.Resolve(want.method, want.path); err != nil {
			t.Errorf("Resolve(%s %s) error = %v", want.method, want.path, err)
		}
	}

	if err := registry.Register(route.Route{Method: "GET", Path: "/late", Handler: echo}); !errors.Is(err, route.ErrFrozen) {
		t.Errorf("Register() after build = %v, want ErrFrozen", err)
	}
}

func TestIntrospectionListing(t *testing.T) {
	users := memory.NewUserStore()

	echo := func(_ context.Context, req *route.Request) (any, error) {
		return req.Data, nil
	}
	registry, err := BuildRegistry(users, nil,
		route.Route{Method: "GET", Path: "/api/ping", Handler: echo, Doc: "Health probe.\nSecond line is dropped."},
	)
	if err != nil {
		t.Fatalf("BuildRegistry() error = %v", err)
	}

	r, err := registry.Resolve("GET", "/api/__introspect__")
	if err != nil {
		t.Fatalf("Resolve(introspect) error = %v", err)
	}

	result, err := r.Handler(context.Background(), &route.Request{Data: route.Data{}, Session: session.New()})
	if err != nil {
		t.Fatalf("introspection handler error = %v", err)
	}
	resp, ok := result.(*route.Response)
	if !ok {
		t.Fatalf("introspection result type = %T, want *route.Response", result)
	}
	if resp.ContentType != "text/html; charset=utf-8" {
		t.Errorf("content type = %q", resp.ContentType)
	}

	body := string(resp.Body)
	if !strings.Contains(body, "<li><b>GET</b> /api/ping -- Health probe.</li>") {
		t.Errorf("listing missing route line:\n%s", body)
	}
	if strings.Contains(body, "__auth__") || strings.Contains(body, "__logout__") || strings.Contains(body, "__introspect__") {
		t.Errorf("listing exposes system routes:\n%s", body)
	}
	if strings.Contains(body, "Second line") {
		t.Errorf("listing kept more than the first doc line:\n%s", body)
	}
}

func TestIntrospectionEmpty(t *testing.T) {
	registry, err := BuildRegistry(memory.NewUserStore(), nil)
	if err != nil {
		t.Fatalf("BuildRegistry() error = %v", err)
	}

	r, err := registry.Resolve("GET", "/api/__introspect__")
	if err != nil {
		t.Fatalf("Resolve(introspect) error = %v", err)
	}
	result, err := r.Handler(context.Background(), &route.Request{Data: route.Data{}, Session: session.New()})
	if err != nil {
		t.Fatalf("introspection handler error = %v", err)
	}
	resp := result.(*route.Response)
	if !strings.Contains(string(resp.Body), emptyListing) {
		t.Errorf("empty listing body = %s", resp.Body)
	}
}
