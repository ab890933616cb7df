package nav

import (
	"fmt"
	"time"
)

// Menu is a named root collection of navigation nodes.
//
// A Menu is treated as immutable once registered: structural edits produce a
// new Menu value with a higher Version.
type Menu struct {
	ID       string
	Name     string
	Scope    Scope
	TenantID string
	UserID   string
	Active   bool

	// Version is incremented on every structural change of the menu.
	Version int64

	Tree      *Tree
	UpdatedAt time.Time
}

// Visible reports whether the menu itself may be selected for p.
func (m *Menu) Visible(p Principal) bool {
	if m == nil || !m.Active {
		return false
	}
	switch m.Scope {
	case ScopeSystem:
		return p.SystemAdmin
	case ScopeTenant:
		return m.TenantID != "" && m.TenantID == p.TenantID
	case ScopeUser:
		return m.UserID != "" && m.UserID == p.UserID
	default:
		return true
	}
}

// MenuSpec is the serializable definition of a menu.
type MenuSpec struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Scope    Scope  `json:"scope,omitempty" yaml:"scope,omitempty"`
	TenantID string `json:"tenantId,omitempty" yaml:"tenant_id,omitempty"`
	UserID   string `json:"userId,omitempty" yaml:"user_id,omitempty"`
	Inactive bool   `json:"inactive,omitempty" yaml:"inactive,omitempty"`
	Items    []Item `json:"items" yaml:"items"`
}

// Build converts the spec into a Menu at the given version.
//
// Tenant- and user-scoped nodes without an explicit binding inherit the
// binding of the menu.
func (s MenuSpec) Build(version int64) (*Menu, error) {
	if s.ID == "" {
		return nil, ErrMissingID
	}
	scope, err := ParseScope(string(s.Scope))
	if err != nil {
		return nil, fmt.Errorf("menu %q: %w", s.ID, err)
	}
	tree, err := FromItems(bindItems(s.Items, s.TenantID, s.UserID))
	if err != nil {
		return nil, fmt.Errorf("menu %q: %w", s.ID, err)
	}
	name := s.Name
	if name == "" {
		name = s.ID
	}
	return &Menu{
		ID:        s.ID,
		Name:      name,
		Scope:     scope,
		TenantID:  s.TenantID,
		UserID:    s.UserID,
		Active:    !s.Inactive,
		Version:   version,
		Tree:      tree,
		UpdatedAt: time.Now().UTC(),
	}, nil
}

func bindItems(items []Item, tenantID, userID string) []Item {
	if len(items) == 0 {
		return nil
	}
	out := make([]Item, len(items))
	for i, it := range items {
		if it.Scope == ScopeTenant && it.TenantID == "" {
			it.TenantID = tenantID
		}
		if it.Scope == ScopeUser && it.UserID == "" {
			it.UserID = userID
		}
		it.Children = bindItems(it.Children, tenantID, userID)
		out[i] = it
	}
	return out
}
