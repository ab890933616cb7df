package auth

import (
	"fmt"
	"slices"

	"github.com/jonwraymond/navcache/nav"
)

// RoleConfig defines what a role grants.
type RoleConfig struct {
	// Permissions are navigation permission tokens, e.g. "orders:read" or
	// "orders:*".
	Permissions []string `yaml:"permissions"`

	// Inherits lists roles whose grants this role also receives.
	Inherits []string `yaml:"inherits"`

	// SystemAdmin marks holders as system administrators.
	SystemAdmin bool `yaml:"system_admin"`
}

// RBACConfig configures a RoleResolver.
type RBACConfig struct {
	Roles map[string]RoleConfig `yaml:"roles"`

	// DefaultRole is used for identities without roles.
	DefaultRole string `yaml:"default_role"`
}

// Validate reports inheritance from or defaults to undefined roles.
func (c RBACConfig) Validate() error {
	if c.DefaultRole != "" {
		if _, ok := c.Roles[c.DefaultRole]; !ok {
			return fmt.Errorf("%w: default role %q", ErrUnknownRole, c.DefaultRole)
		}
	}
	for name, role := range c.Roles {
		for _, parent := range role.Inherits {
			if _, ok := c.Roles[parent]; !ok {
				return fmt.Errorf("%w: %q inherits %q", ErrUnknownRole, name, parent)
			}
		}
	}
	return nil
}

// RoleResolver expands roles into permissions.
//
// Contract:
// - Concurrency: safe for concurrent use; the configuration is read-only.
type RoleResolver struct {
	config RBACConfig
}

func NewRoleResolver(config RBACConfig) *RoleResolver {
	return &RoleResolver{config: config}
}

// Expand returns roles followed by every inherited role, breadth first and
// without repeats. Inheritance cycles are cut at the first repeat.
func (r *RoleResolver) Expand(roles []string) []string {
	queue := append([]string(nil), roles...)
	if len(queue) == 0 && r.config.DefaultRole != "" {
		queue = append(queue, r.config.DefaultRole)
	}
	seen := make(map[string]bool, len(queue))
	var out []string
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
		queue = append(queue, r.config.Roles[name].Inherits...)
	}
	return out
}

// Permissions returns the sorted, de-duplicated permission tokens granted
// by roles and their ancestors.
func (r *RoleResolver) Permissions(roles []string) []string {
	var perms []string
	for _, name := range r.Expand(roles) {
		perms = append(perms, r.config.Roles[name].Permissions...)
	}
	slices.Sort(perms)
	return slices.Compact(perms)
}

// Principal maps id to the principal navigation is evaluated for. The first
// role (or the default role) becomes the principal's role, and direct
// permissions are merged with those of the expanded roles.
func (r *RoleResolver) Principal(id *Identity) nav.Principal {
	roles := r.Expand(id.Roles)
	p := nav.Principal{
		UserID:      id.Subject,
		TenantID:    id.TenantID,
		SystemAdmin: id.SystemAdmin,
	}
	if len(roles) > 0 {
		p.Role = roles[0]
	}
	perms := append(r.Permissions(id.Roles), id.Permissions...)
	slices.Sort(perms)
	p.Permissions = slices.Compact(perms)
	for _, name := range roles {
		if r.config.Roles[name].SystemAdmin {
			p.SystemAdmin = true
		}
	}
	return p
}
