package tree

import (
	"sort"
	"strings"
)

// Node is a node of a rooted phylogenetic tree. A tree is represented by its root node.
type Node struct {
	// Name is the taxon name for leaves and an optional clade name or support value for internal nodes.
	Name string
	// Length is the length of the branch leading to the node. It is only meaningful when HasLength is set.
	Length    float64
	HasLength bool
	Children  []*Node
}

// NewLeaf creates a leaf without branch length.
func NewLeaf(name string) *Node {
	return &Node{Name: name}
}

// NewInternal creates an internal node with the given children.
func NewInternal(children ...*Node) *Node {
	return &Node{Children: children}
}

// SetLength sets the branch length leading to the node.
func (n *Node) SetLength(length float64) *Node {
	n.Length = length
	n.HasLength = true

	return n
}

// ClearLength removes the branch length leading to the node.
func (n *Node) ClearLength() {
	n.Length = 0
	n.HasLength = false
}

// AddChild appends child to the node children.
func (n *Node) AddChild(child *Node) {
	n.Children = append(n.Children, child)
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Walk visits the tree in pre-order. Returning false from fn skips the subtree of the visited node.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(node *Node, depth int) bool, depth int) {
	if !fn(n, depth) {
		return
	}

	for _, child := range n.Children {
		child.walk(fn, depth+1)
	}
}

// Leaves returns the leaves in left to right order.
func (n *Node) Leaves() []*Node {
	var leaves []*Node

	n.Walk(func(node *Node, _ int) bool {
		if node.IsLeaf() {
			leaves = append(leaves, node)
		}

		return true
	})

	return leaves
}

// LeafNames returns the leaf names in left to right order.
func (n *Node) LeafNames() []string {
	leaves := n.Leaves()
	names := make([]string, len(leaves))

	for i, leaf := range leaves {
		names[i] = leaf.Name
	}

	return names
}

// NodeCount returns the number of nodes of the tree, root included.
func (n *Node) NodeCount() int {
	count := 0

	n.Walk(func(*Node, int) bool {
		count++

		return true
	})

	return count
}

// MaxDepth returns the number of edges on the longest root to leaf path.
func (n *Node) MaxDepth() int {
	maxDepth := 0

	n.Walk(func(_ *Node, depth int) bool {
		if depth > maxDepth {
			maxDepth = depth
		}

		return true
	})

	return maxDepth
}

// HasLengths reports whether at least one non-root node carries a branch length.
func (n *Node) HasLengths() bool {
	found := false

	n.Walk(func(node *Node, depth int) bool {
		if depth > 0 && node.HasLength {
			found = true
		}

		return !found
	})

	return found
}

// Clone returns a deep copy of the tree.
func (n *Node) Clone() *Node {
	clone := &Node{
		Name:      n.Name,
		Length:    n.Length,
		HasLength: n.HasLength,
	}

	if len(n.Children) > 0 {
		clone.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			clone.Children[i] = child.Clone()
		}
	}

	return clone
}

// IsMultifurcating reports whether any node has more than two children.
func (n *Node) IsMultifurcating() bool {
	return n.CountMultifurcations() > 0
}

// IsBinary reports whether every internal node has exactly two children.
func (n *Node) IsBinary() bool {
	binary := true

	n.Walk(func(node *Node, _ int) bool {
		if !node.IsLeaf() && len(node.Children) != 2 {
			binary = false
		}

		return binary
	})

	return binary
}

// CountMultifurcations returns the number of nodes with more than two children.
func (n *Node) CountMultifurcations() int {
	count := 0

	n.Walk(func(node *Node, _ int) bool {
		if len(node.Children) > 2 {
			count++
		}

		return true
	})

	return count
}

// ResolvePolytomies turns every node with more than two children into a cascade of binary nodes.
// lengthFn provides the branch length of every node it creates. A nil lengthFn creates zero length branches.
func (n *Node) ResolvePolytomies(lengthFn func() float64) {
	for _, child := range n.Children {
		child.ResolvePolytomies(lengthFn)
	}

	for len(n.Children) > 2 {
		last := len(n.Children)
		joined := NewInternal(n.Children[last-2], n.Children[last-1])

		if lengthFn != nil {
			joined.SetLength(lengthFn())
		} else {
			joined.SetLength(0)
		}

		n.Children = append(n.Children[:last-2], joined)
	}
}

// CollapseUnary removes internal nodes with a single child, adding their branch length to the child.
func (n *Node) CollapseUnary() *Node {
	for i, child := range n.Children {
		n.Children[i] = child.CollapseUnary()
	}

	if len(n.Children) != 1 {
		return n
	}

	child := n.Children[0]
	if n.HasLength {
		child.SetLength(child.Length + n.Length)
	}

	return child
}

// Canonical returns a string that is equal for two trees exactly when they have the same rooted topology
// and the same leaf names, whatever the order of the children.
func (n *Node) Canonical() string {
	if n.IsLeaf() {
		return n.Name
	}

	parts := make([]string, len(n.Children))
	for i, child := range n.Children {
		parts[i] = child.Canonical()
	}

	sort.Strings(parts)

	return "(" + strings.Join(parts, ",") + ")"
}
