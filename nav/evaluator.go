package nav

// Evaluator decides whether a single node is visible to a principal.
type Evaluator func(n Node, p Principal) bool

// Visible is the default Evaluator.
//
// System administrators see every node. Otherwise the node's scope must admit
// the principal and its permission list must be satisfied: all tokens when
// RequireAll is set, any token otherwise. A node without permissions is public.
// Denial is a plain false.
func Visible(n Node, p Principal) bool {
	if p.SystemAdmin {
		return true
	}

	switch n.Scope {
	case ScopeSystem:
		return false
	case ScopeTenant:
		if n.TenantID == "" || n.TenantID != p.TenantID {
			return false
		}
	case ScopeUser:
		if n.UserID == "" || n.UserID != p.UserID {
			return false
		}
	}

	if len(n.Permissions) == 0 {
		return true
	}

	if n.RequireAll {
		for _, perm := range n.Permissions {
			if !p.Has(perm) {
				return false
			}
		}
		return true
	}

	for _, perm := range n.Permissions {
		if p.Has(perm) {
			return true
		}
	}
	return false
}
