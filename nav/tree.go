package nav

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Tree is an arena of navigation nodes. The zero value and nil are empty trees.
//
// Contract:
// - Ownership: a Tree exclusively owns its nodes; Clone and Filter never share
// node storage with the source.
// - Concurrency: a built Tree is immutable and safe for concurrent reads.
type Tree struct {
	nodes []Node
	roots []NodeID
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.nodes)
}

// Roots returns the root node ids in display order.
func (t *Tree) Roots() []NodeID {
	if t == nil {
		return nil
	}
	out := make([]NodeID, len(t.roots))
	copy(out, t.roots)
	return out
}

// Node returns the node stored at id. It panics if id is out of range.
func (t *Tree) Node(id NodeID) Node {
	return t.nodes[id]
}

// Children returns the child ids of id in display order.
func (t *Tree) Children(id NodeID) []NodeID {
	kids := t.nodes[id].children
	out := make([]NodeID, len(kids))
	copy(out, kids)
	return out
}

// Find returns the arena id of the node with the given identifier.
func (t *Tree) Find(nodeID string) (NodeID, bool) {
	if t == nil {
		return NoParent, false
	}
	for i := range t.nodes {
		if t.nodes[i].ID == nodeID {
			return NodeID(i), true
		}
	}
	return NoParent, false
}

// Walk visits nodes depth-first in pre-order. Roots have depth 0.
// Returning false from fn skips the children of the visited node.
func (t *Tree) Walk(fn func(id NodeID, depth int) bool) {
	if t == nil {
		return
	}
	var visit func(ids []NodeID, depth int)
	visit = func(ids []NodeID, depth int) {
		for _, id := range ids {
			if fn(id, depth) {
				visit(t.nodes[id].children, depth+1)
			}
		}
	}
	visit(t.roots, 0)
}

// Depth returns the number of levels in the tree.
func (t *Tree) Depth() int {
	max := 0
	t.Walk(func(_ NodeID, depth int) bool {
		if depth+1 > max {
			max = depth + 1
		}
		return true
	})
	return max
}

// Clone returns a deep copy of the tree.
func (t *Tree) Clone() *Tree {
	if t == nil {
		return &Tree{}
	}
	out := &Tree{
		nodes: make([]Node, len(t.nodes)),
		roots: append([]NodeID(nil), t.roots...),
	}
	for i, n := range t.nodes {
		n.Permissions = append([]string(nil), n.Permissions...)
		n.children = append([]NodeID(nil), n.children...)
		out.nodes[i] = n
	}
	return out
}

// Items returns the nested representation of the tree.
func (t *Tree) Items() []Item {
	if t == nil {
		return []Item{}
	}
	var build func(ids []NodeID) []Item
	build = func(ids []NodeID) []Item {
		items := make([]Item, 0, len(ids))
		for _, id := range ids {
			n := t.nodes[id]
			it := itemFromNode(n)
			if len(n.children) > 0 {
				it.Children = build(n.children)
			}
			items = append(items, it)
		}
		return items
	}
	return build(t.roots)
}

// MarshalJSON encodes the tree in its nested form.
func (t *Tree) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Items())
}

// UnmarshalJSON decodes a nested item list into the tree.
func (t *Tree) UnmarshalJSON(data []byte) error {
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	built, err := FromItems(items)
	if err != nil {
		return err
	}
	*t = *built
	return nil
}

// FromItems builds a tree from nested items.
func FromItems(items []Item) (*Tree, error) {
	b := NewBuilder()
	var add func(parent NodeID, items []Item)
	add = func(parent NodeID, items []Item) {
		for _, it := range items {
			id := b.Add(parent, it.node())
			if id == NoParent {
				return
			}
			add(id, it.Children)
		}
	}
	add(NoParent, items)
	return b.Build()
}

// Builder assembles a Tree. It is not safe for concurrent use.
type Builder struct {
	nodes []Node
	roots []NodeID
	ids   map[string]NodeID
	err   error
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{ids: make(map[string]NodeID)}
}

// Add appends n under parent and returns its id. Use NoParent for roots.
// After the first error Add returns NoParent and Build reports the error.
func (b *Builder) Add(parent NodeID, n Node) NodeID {
	if b.err != nil {
		return NoParent
	}
	if n.ID == "" {
		b.err = ErrMissingID
		return NoParent
	}
	if _, dup := b.ids[n.ID]; dup {
		b.err = fmt.Errorf("%w: %q", ErrDuplicateNodeID, n.ID)
		return NoParent
	}
	scope, err := ParseScope(string(n.Scope))
	if err != nil {
		b.err = err
		return NoParent
	}
	if parent != NoParent && (parent < 0 || int(parent) >= len(b.nodes)) {
		b.err = fmt.Errorf("%w: %d", ErrInvalidParent, parent)
		return NoParent
	}

	n.Scope = scope
	n.Permissions = append([]string(nil), n.Permissions...)
	n.children = nil

	id := NodeID(len(b.nodes))
	b.nodes = append(b.nodes, n)
	b.ids[n.ID] = id
	if parent == NoParent {
		b.roots = append(b.roots, id)
	} else {
		b.nodes[parent].children = append(b.nodes[parent].children, id)
	}
	return id
}

// Build finalizes the tree, ordering every sibling list by weight.
func (b *Builder) Build() (*Tree, error) {
	if b.err != nil {
		return nil, b.err
	}
	t := &Tree{nodes: b.nodes, roots: b.roots}
	t.sortSiblings(t.roots)
	for i := range t.nodes {
		t.sortSiblings(t.nodes[i].children)
	}
	b.nodes, b.roots, b.ids = nil, nil, make(map[string]NodeID)
	return t, nil
}

func (t *Tree) sortSiblings(ids []NodeID) {
	sort.SliceStable(ids, func(i, j int) bool {
		return t.nodes[ids[i]].Weight < t.nodes[ids[j]].Weight
	})
}
