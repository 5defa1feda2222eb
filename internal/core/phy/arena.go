package phy

// Arena is a flat, id-addressed view over a tree. Mappings and diff entries
// refer to nodes by id; the arena resolves those ids without holding on to the
// tree's nesting.
type Arena struct {
	nodes  []*Node
	parent []int
	depth  []int
	byID   map[string]int
}

// NewArena indexes every node of root that has an id. Nodes without an id are
// traversed but cannot be looked up. A nil root yields an empty arena.
func NewArena(root *Node) *Arena {
	a := &Arena{byID: make(map[string]int)}

	var add func(n *Node, parent, depth int)
	add = func(n *Node, parent, depth int) {
		if n == nil {
			return
		}
		idx := len(a.nodes)
		a.nodes = append(a.nodes, n)
		a.parent = append(a.parent, parent)
		a.depth = append(a.depth, depth)
		if n.ID != "" {
			if _, exists := a.byID[n.ID]; !exists {
				a.byID[n.ID] = idx
			}
		}
		for _, child := range n.Children {
			add(child, idx, depth+1)
		}
	}
	add(root, -1, 0)

	return a
}

// Len returns the number of nodes in the arena.
func (a *Arena) Len() int {
	if a == nil {
		return 0
	}
	return len(a.nodes)
}

// Get returns the node with the given id.
func (a *Arena) Get(id string) (*Node, bool) {
	if a == nil {
		return nil, false
	}
	idx, ok := a.byID[id]
	if !ok {
		return nil, false
	}
	return a.nodes[idx], true
}

// Depth returns the nesting level of the node, 0 for the root.
func (a *Arena) Depth(id string) (int, bool) {
	if a == nil {
		return 0, false
	}
	idx, ok := a.byID[id]
	if !ok {
		return 0, false
	}
	return a.depth[idx], true
}

// Parent returns the closest ancestor that has an id.
func (a *Arena) Parent(id string) (*Node, bool) {
	if a == nil {
		return nil, false
	}
	idx, ok := a.byID[id]
	if !ok {
		return nil, false
	}
	for p := a.parent[idx]; p >= 0; p = a.parent[p] {
		if a.nodes[p].ID != "" {
			return a.nodes[p], true
		}
	}
	return nil, false
}

// IsAncestor reports whether the node ancestor strictly contains descendant.
func (a *Arena) IsAncestor(ancestor, descendant string) bool {
	if a == nil {
		return false
	}
	anc, ok := a.byID[ancestor]
	if !ok {
		return false
	}
	idx, ok := a.byID[descendant]
	if !ok {
		return false
	}
	for p := a.parent[idx]; p >= 0; p = a.parent[p] {
		if p == anc {
			return true
		}
	}
	return false
}

// Nodes returns all nodes in pre-order.
func (a *Arena) Nodes() []*Node {
	if a == nil {
		return nil
	}
	return a.nodes
}
