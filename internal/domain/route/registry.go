package route

import (
	"errors"
	"fmt"
	"strings"
)

// Registry errors.
var (
	// ErrDuplicateRoute is returned when (method, path) is already taken.
	ErrDuplicateRoute = errors.New("duplicate route")
	// ErrNotFound is returned by Resolve for an unregistered route.
	ErrNotFound = errors.New("route not found")
	// ErrFrozen is returned when registering after Freeze.
	ErrFrozen = errors.New("registry is frozen")
)

// Registry maps (method, path) to routes. Registration happens once at
// startup; after Freeze the registry is read-only and safe for
// concurrent lookups without locking.
type Registry struct {
	byKey   map[string]*Route
	ordered []*Route
	frozen  bool
}

// NewRegistry creates an empty route registry.
func NewRegistry() *Registry {
	return &Registry{byKey: make(map[string]*Route)}
}

func key(method, path string) string {
	return strings.ToUpper(method) + " " + path
}

// Register adds a route. The method is normalized to uppercase.
// Returns ErrDuplicateRoute if (method, path) is present and ErrFrozen
// after Freeze.
func (reg *Registry) Register(r Route) error {
	if reg.frozen {
		return fmt.Errorf("%w: cannot register %s %s", ErrFrozen, r.Method, r.Path)
	}
	if r.Handler == nil {
		return fmt.Errorf("route %s %s has no handler", r.Method, r.Path)
	}
	r.Method = strings.ToUpper(r.Method)

	k := key(r.Method, r.Path)
	if _, exists := reg.byKey[k]; exists {
		return fmt.Errorf("%w: %s %s", ErrDuplicateRoute, r.Method, r.Path)
	}

	stored := r
	reg.byKey[k] = &stored
	reg.ordered = append(reg.ordered, &stored)
	return nil
}

// Freeze ends the build phase. Subsequent Register calls fail;
// Resolve and Routes need no synchronization from here on.
func (reg *Registry) Freeze() {
	reg.frozen = true
}

// Resolve finds the route for (method, path).
// Returns ErrNotFound when no route is registered.
func (reg *Registry) Resolve(method, path string) (*Route, error) {
	r, ok := reg.byKey[key(method, path)]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, method, path)
	}
	return r, nil
}

// PathRegistered reports whether any method is registered for the path.
// The preflight short-circuit needs this to answer OPTIONS for routes
// declared under other methods.
func (reg *Registry) PathRegistered(path string) bool {
	for _, r := range reg.ordered {
		if r.Path == path {
			return true
		}
	}
	return false
}

// Routes returns all routes in declared order. The slice is a copy; the
// routes themselves are shared and immutable.
func (reg *Registry) Routes() []*Route {
	out := make([]*Route, len(reg.ordered))
	copy(out, reg.ordered)
	return out
}
