// Package auth contains the domain types and logic for authentication
// and role-based authorization.
package auth

import "time"

// Role represents a user role for authorization purposes. Roles are
// free-form strings owned by the deployment; the framework only
// intersects sets of them.
type Role string

// User is a registered account. The pipeline never mutates users; it
// only consumes roles through Descriptor checks.
type User struct {
	// Username is the unique identifier for this user.
	Username string
	// PasswordHash is the Argon2id PHC-format hash of the password.
	PasswordHash string
	// Roles are the roles assigned to this user.
	Roles []Role
	// Extra is an arbitrary info bag attached at creation time.
	Extra map[string]string
	// CreatedAt is when the user was created (UTC).
	CreatedAt time.Time
}

// HasRole returns true if the user has the specified role.
func (u *User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// RoleStrings returns the user's roles as plain strings, for embedding
// into session payloads.
func (u *User) RoleStrings() []string {
	out := make([]string, len(u.Roles))
	for i, r := range u.Roles {
		out[i] = string(r)
	}
	return out
}

// Descriptor is the authorization requirement attached to a route.
// An empty Roles set means "any authenticated user"; a non-empty set
// additionally requires the caller's roles to intersect it.
type Descriptor struct {
	Roles map[Role]struct{}
}

// NeedAuth returns the descriptor for routes that require authentication
// without restricting by role.
func NeedAuth() *Descriptor {
	return &Descriptor{}
}

// RequireRoles builds a descriptor allowing only the given roles.
func RequireRoles(roles ...Role) *Descriptor {
	set := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return &Descriptor{Roles: set}
}

// Allows reports whether the given roles satisfy the descriptor.
// An empty descriptor allows any authenticated caller.
func (d *Descriptor) Allows(roles []string) bool {
	if len(d.Roles) == 0 {
		return true
	}
	for _, r := range roles {
		if _, ok := d.Roles[Role(r)]; ok {
			return true
		}
	}
	return false
}

// RoleList returns the descriptor's roles in unspecified order.
func (d *Descriptor) RoleList() []Role {
	out := make([]Role, 0, len(d.Roles))
	for r := range d.Roles {
		out = append(out, r)
	}
	return out
}
