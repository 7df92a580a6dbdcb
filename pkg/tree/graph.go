package tree

import (
	"strconv"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"

	"github.com/askiada/phylobench/internal/store"
)

// Clade is the vertex value of the graph view of a tree.
type Clade struct {
	ID    int
	Depth int
	Node  *Node
}

// CladeHash is the graph hash function for clades.
func CladeHash(c Clade) int {
	return c.ID
}

// View is a directed graph view of a tree: vertices are clades numbered in pre-order, the root has
// ID 0 and every edge goes from a parent to one of its children.
type View struct {
	Graph graph.Graph[int, Clade]
	Store store.CustomStore[int, Clade]
	Clades []Clade
}

// NewView builds the graph view of the tree rooted at root.
// Edge attribute "length" holds the branch length of the child when it has one.
func NewView(root *Node) (*View, error) {
	if root == nil {
		return nil, errors.New("tree must be set")
	}

	st := store.NewMemoryStore[int, Clade]()
	view := &View{
		Graph: graph.NewWithStore(CladeHash, graph.Store[int, Clade](st), graph.Directed(), graph.Acyclic()),
		Store: st,
	}

	var add func(node *Node, depth, parent int) error

	add = func(node *Node, depth, parent int) error {
		clade := Clade{ID: len(view.Clades), Depth: depth, Node: node}
		view.Clades = append(view.Clades, clade)

		attributes := []func(*graph.VertexProperties){graph.VertexAttribute("depth", strconv.Itoa(depth))}
		if node.Name != "" {
			attributes = append(attributes, graph.VertexAttribute("name", node.Name))
		}

		err := view.Graph.AddVertex(clade, attributes...)
		if err != nil {
			return errors.Wrapf(err, "unable to add clade %d", clade.ID)
		}

		if parent >= 0 {
			var edgeOpts []func(*graph.EdgeProperties)
			if node.HasLength {
				edgeOpts = append(edgeOpts, graph.EdgeAttribute("length", strconv.FormatFloat(node.Length, 'f', -1, 64)))
			}

			err = view.Graph.AddEdge(parent, clade.ID, edgeOpts...)
			if err != nil {
				return errors.Wrapf(err, "unable to add edge from %d to %d", parent, clade.ID)
			}
		}

		for _, child := range node.Children {
			err := add(child, depth+1, clade.ID)
			if err != nil {
				return err
			}
		}

		return nil
	}

	err := add(root, 0, -1)
	if err != nil {
		return nil, err
	}

	return view, nil
}

// Children returns the clade IDs of the children of id, in the original order.
func (v *View) Children(id int) ([]int, error) {
	children, err := v.Store.Successors(id)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to get children of clade %d", id)
	}

	return children, nil
}

// PathToRoot returns the clade IDs from id up to the root, both included.
func (v *View) PathToRoot(id int) ([]int, error) {
	predecessors, err := v.Graph.PredecessorMap()
	if err != nil {
		return nil, errors.Wrap(err, "unable to get predecessor map")
	}

	path := []int{id}

	for current := id; current != 0; {
		parents, ok := predecessors[current]
		if !ok || len(parents) != 1 {
			return nil, errors.Errorf("clade %d has %d parents", current, len(parents))
		}

		for parent := range parents {
			current = parent
		}

		path = append(path, current)
	}

	return path, nil
}
