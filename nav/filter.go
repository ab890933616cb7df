package nav

// DefaultMaxDepth is the depth cap used when FilterOptions.MaxDepth is unset.
const DefaultMaxDepth = 10

// FilterOptions controls Filter.
type FilterOptions struct {
	// IncludeDisabled keeps nodes whose Enabled flag is false.
	IncludeDisabled bool `json:"includeDisabled" yaml:"include_disabled"`

	// IncludeHidden keeps nodes whose Visible flag is false.
	IncludeHidden bool `json:"includeHidden" yaml:"include_hidden"`

	// MaxDepth is the maximum number of levels emitted. Roots are level one.
	// Zero or negative selects DefaultMaxDepth.
	MaxDepth int `json:"maxDepth" yaml:"max_depth"`

	// Evaluator overrides Visible when set.
	Evaluator Evaluator `json:"-" yaml:"-"`
}

// DefaultFilterOptions returns options that drop hidden and disabled nodes.
func DefaultFilterOptions() FilterOptions {
	return FilterOptions{MaxDepth: DefaultMaxDepth}
}

// Filter returns the subtree of src visible to p.
//
// The walk is depth-first pre-order. A node is dropped when it is disabled or
// hidden (unless included by opts), when the evaluator denies it, when it lies
// below MaxDepth, or when it is a container whose filtered children are all
// gone. Sibling order is preserved. The result never shares storage with src.
func Filter(src *Tree, p Principal, opts FilterOptions) *Tree {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	visible := opts.Evaluator
	if visible == nil {
		visible = Visible
	}

	out := &Tree{}
	if src.Len() == 0 {
		return out
	}

	var walk func(ids []NodeID, depth int) []NodeID
	walk = func(ids []NodeID, depth int) []NodeID {
		if depth >= maxDepth {
			return nil
		}
		var kept []NodeID
		for _, id := range ids {
			n := src.nodes[id]
			if !opts.IncludeDisabled && !n.Enabled {
				continue
			}
			if !opts.IncludeHidden && !n.Visible {
				continue
			}
			if !visible(n, p) {
				continue
			}

			children := walk(n.children, depth+1)
			if n.IsContainer() && len(children) == 0 {
				continue
			}

			n.Permissions = append([]string(nil), n.Permissions...)
			n.children = children
			out.nodes = append(out.nodes, n)
			kept = append(kept, NodeID(len(out.nodes)-1))
		}
		return kept
	}
	out.roots = walk(src.roots, 0)
	return out
}
