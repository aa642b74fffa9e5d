package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/canopy-web/canopy/internal/domain/auth"
	"github.com/canopy-web/canopy/internal/domain/httperr"
	"github.com/canopy-web/canopy/internal/domain/route"
)

// AuthService implements the built-in login and logout endpoints on top
// of a user store. Both endpoints work entirely through the session; no
// tokens are issued.
type AuthService struct {
	users  auth.UserStore
	logger *slog.Logger
}

// NewAuthService creates the auth service.
func NewAuthService(users auth.UserStore, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{users: users, logger: logger}
}

// Routes returns the system routes mounted under base: login is public,
// logout requires an authenticated session.
func (s *AuthService) Routes(base string) []route.Route {
	return []route.Route{
		{
			Method:  "POST",
			Path:    base + "/__auth__",
			Handler: s.Login,
			Parse:   route.ParseJSON,
			Doc:     "Authenticate with username and password; binds the user to the session.",
		},
		{
			Method:  "POST",
			Path:    base + "/__logout__",
			Handler: s.Logout,
			Auth:    auth.NeedAuth(),
			Parse:   route.ParseJSON,
			Doc:     "End the authenticated session.",
		},
	}
}

// Login checks the submitted credentials against the user store and, on
// success, records the user reference in the session. Unknown users and
// wrong passwords are both 401, with distinct reasons.
func (s *AuthService) Login(ctx context.Context, req *route.Request) (any, error) {
	if err := MandatoryCheck(req.Data, "username", "password"); err != nil {
		return nil, err
	}
	username := req.Data.String("username")
	password := req.Data.String("password")

	user, err := s.users.GetUser(ctx, username)
	if errors.Is(err, auth.ErrUserNotFound) {
		s.logger.Info("login rejected", "username", username, "reason", "unknown user")
		return nil, httperr.Unauthorized("User does not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user %q: %w", username, err)
	}

	ok, err := auth.CheckPassword(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password for %q: %w", username, err)
	}
	if !ok {
		s.logger.Info("login rejected", "username", username, "reason", "bad password")
		return nil, httperr.Unauthorized("Invalid password")
	}

	req.Session.SetUser(user.Username, user.RoleStrings())
	s.logger.Info("login succeeded", "username", username)

	return map[string]any{
		"username":   user.Username,
		"roles":      user.RoleStrings(),
		"additional": user.Extra,
	}, nil
}

// Logout ends the session. By default the whole session record is
// removed; with clear_session set to false only the user binding is
// dropped and the rest of the bag survives.
func (s *AuthService) Logout(_ context.Context, req *route.Request) (any, error) {
	clearSession := true
	if req.Data.Has("clear_session") {
		if v, ok := req.Data["clear_session"].(bool); ok {
			clearSession = v
		}
	}

	if ref, ok := req.Session.User(); ok {
		s.logger.Info("logout", "username", ref.Username, "clear_session", clearSession)
	}

	if clearSession {
		req.Session.MarkRemoval()
	} else {
		req.Session.ClearUser()
	}
	return map[string]any{}, nil
}
