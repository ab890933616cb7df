package events

import (
	"time"

	"github.com/google/uuid"
)

// Type names a domain event.
type Type string

const (
	CacheInvalidated       Type = "cache.invalidated"
	NavigationAccessed     Type = "navigation.accessed"
	PermissionCheck        Type = "permission.check"
	UserPermissionsChanged Type = "user.permissions_changed"
	TenantSwitched         Type = "tenant.switched"
)

// Event is a domain event. Fields that do not apply to a type are empty.
type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	UserID           string   `json:"user_id,omitempty"`
	TenantID         string   `json:"tenant_id,omitempty"`
	PreviousTenantID string   `json:"previous_tenant_id,omitempty"`
	MenuID           string   `json:"menu_id,omitempty"`
	NodeID           string   `json:"node_id,omitempty"`
	Role             string   `json:"role,omitempty"`
	Permissions      []string `json:"permissions,omitempty"`
	SystemAdmin      bool     `json:"system_admin,omitempty"`

	// AffectedIDs lists the cache keys or node ids touched by the event.
	AffectedIDs []string `json:"affected_ids,omitempty"`
	Version     int64    `json:"version,omitempty"`

	// Allowed carries the outcome of a PermissionCheck.
	Allowed bool `json:"allowed,omitempty"`

	// CacheHit reports whether a NavigationAccessed event was served from cache.
	CacheHit bool `json:"cache_hit,omitempty"`

	Reason string `json:"reason,omitempty"`
}

// New returns an event of type t with a fresh id and timestamp.
func New(t Type) Event {
	return Event{ID: uuid.NewString(), Type: t, Timestamp: time.Now().UTC()}
}
