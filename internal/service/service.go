// Package service assembles the application-level route table: the
// built-in authentication primitives, the introspection listing, and
// helpers shared by handlers.
package service

import (
	"fmt"
	"log/slog"

	"github.com/canopy-web/canopy/internal/domain/auth"
	"github.com/canopy-web/canopy/internal/domain/httperr"
	"github.com/canopy-web/canopy/internal/domain/route"
)

// DefaultBasePath is the prefix under which the built-in system routes
// are mounted.
const DefaultBasePath = "/api"

// MandatoryCheck verifies that every listed key is present in the data
// bag. The first missing key aborts with a BadRequest naming it.
func MandatoryCheck(data route.Data, keys ...string) error {
	for _, key := range keys {
		if !data.Has(key) {
			return httperr.BadRequestf("Mandatory parameter %q does not found", key)
		}
	}
	return nil
}

// BuildRegistry assembles the full route table: the application routes
// in declared order, then the built-in auth and introspection routes.
// The returned registry is frozen.
func BuildRegistry(users auth.UserStore, logger *slog.Logger, appRoutes ...route.Route) (*route.Registry, error) {
	registry := route.NewRegistry()

	for _, r := range appRoutes {
		if err := registry.Register(r); err != nil {
			return nil, fmt.Errorf("failed to register route: %w", err)
		}
	}

	authSvc := NewAuthService(users, logger)
	for _, r := range authSvc.Routes(DefaultBasePath) {
		if err := registry.Register(r); err != nil {
			return nil, fmt.Errorf("failed to register auth route: %w", err)
		}
	}

	if err := registry.Register(IntrospectionRoute(DefaultBasePath, registry)); err != nil {
		return nil, fmt.Errorf("failed to register introspection route: %w", err)
	}

	registry.Freeze()
	return registry, nil
}
