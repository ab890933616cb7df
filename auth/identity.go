package auth

import (
	"slices"
	"time"
)

// AuthMethod records how an identity was established.
type AuthMethod string

const (
	AuthMethodJWT       AuthMethod = "jwt"
	AuthMethodAnonymous AuthMethod = "anonymous"
)

// Identity is an authenticated caller.
type Identity struct {
	// Subject is the user id (the sub claim by default).
	Subject string

	TenantID string

	// Roles in priority order; the first one is the navigation role.
	Roles []string

	// Permissions granted directly, in addition to those of the roles.
	Permissions []string

	// SystemAdmin bypasses permission checks.
	SystemAdmin bool

	Method    AuthMethod
	Claims    map[string]any
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// HasRole reports whether role is assigned directly.
func (id *Identity) HasRole(role string) bool {
	return slices.Contains(id.Roles, role)
}

// Expired reports whether the identity is past its expiry at now.
func (id *Identity) Expired(now time.Time) bool {
	return !id.ExpiresAt.IsZero() && now.After(id.ExpiresAt)
}

// Anonymous reports whether the identity carries no subject.
func (id *Identity) Anonymous() bool {
	return id.Method == AuthMethodAnonymous || id.Subject == ""
}

// AnonymousIdentity returns an identity without subject or roles.
func AnonymousIdentity() *Identity {
	return &Identity{Method: AuthMethodAnonymous, Claims: map[string]any{}}
}
