package nav

import "fmt"

// Scope is the visibility domain of a node or menu.
type Scope string

const (
	ScopeGlobal Scope = "global"
	ScopeTenant Scope = "tenant"
	ScopeSystem Scope = "system"
	ScopeUser   Scope = "user"
)

// ParseScope validates s. An empty string is treated as ScopeGlobal.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case "", ScopeGlobal:
		return ScopeGlobal, nil
	case ScopeTenant, ScopeSystem, ScopeUser:
		return Scope(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidScope, s)
	}
}

// NodeID addresses a node inside a Tree arena.
type NodeID int

// NoParent is the parent passed to Builder.Add for root nodes.
const NoParent NodeID = -1

// Node is a single navigation entry.
//
// Nodes are read-only once placed in a Tree. Children are addressed by arena
// index and are only reachable through the owning Tree.
type Node struct {
	// ID is the stable identifier of the node within its menu.
	ID string

	// Label is the display label.
	Label string

	// Path is the navigation target. A node without a path is a container.
	Path string

	// Icon is an optional icon name for renderers.
	Icon string

	// Permissions lists the permission tokens required to see the node.
	Permissions []string

	// RequireAll selects AND semantics over Permissions; OR otherwise.
	RequireAll bool

	// Scope restricts who may see the node at all.
	Scope Scope

	// TenantID binds a tenant-scoped node.
	TenantID string

	// UserID binds a user-scoped node.
	UserID string

	Visible bool
	Enabled bool

	// Weight orders siblings ascending; ties keep insertion order.
	Weight int

	children []NodeID
}

// IsContainer reports whether the node has no navigable path.
func (n Node) IsContainer() bool {
	return n.Path == ""
}

// Item is the nested, serializable form of a node used for menu files and
// rendered output.
type Item struct {
	ID          string   `json:"id" yaml:"id"`
	Label       string   `json:"label" yaml:"label"`
	Path        string   `json:"path,omitempty" yaml:"path,omitempty"`
	Icon        string   `json:"icon,omitempty" yaml:"icon,omitempty"`
	Permissions []string `json:"permissions,omitempty" yaml:"permissions,omitempty"`
	RequireAll  bool     `json:"requireAll,omitempty" yaml:"require_all,omitempty"`
	Scope       Scope    `json:"scope,omitempty" yaml:"scope,omitempty"`
	TenantID    string   `json:"tenantId,omitempty" yaml:"tenant_id,omitempty"`
	UserID      string   `json:"userId,omitempty" yaml:"user_id,omitempty"`
	Hidden      bool     `json:"hidden,omitempty" yaml:"hidden,omitempty"`
	Disabled    bool     `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Weight      int      `json:"weight,omitempty" yaml:"weight,omitempty"`
	Children    []Item   `json:"children,omitempty" yaml:"children,omitempty"`
}

func (it Item) node() Node {
	return Node{
		ID:          it.ID,
		Label:       it.Label,
		Path:        it.Path,
		Icon:        it.Icon,
		Permissions: it.Permissions,
		RequireAll:  it.RequireAll,
		Scope:       it.Scope,
		TenantID:    it.TenantID,
		UserID:      it.UserID,
		Visible:     !it.Hidden,
		Enabled:     !it.Disabled,
		Weight:      it.Weight,
	}
}

func itemFromNode(n Node) Item {
	var perms []string
	if len(n.Permissions) > 0 {
		perms = append([]string(nil), n.Permissions...)
	}
	return Item{
		ID:          n.ID,
		Label:       n.Label,
		Path:        n.Path,
		Icon:        n.Icon,
		Permissions: perms,
		RequireAll:  n.RequireAll,
		Scope:       n.Scope,
		TenantID:    n.TenantID,
		UserID:      n.UserID,
		Hidden:      !n.Visible,
		Disabled:    !n.Enabled,
		Weight:      n.Weight,
	}
}
