package taxonomy

import (
	"context"

	"github.com/pkg/errors"

	"github.com/askiada/phylobench/pkg/tree"
)

// Topology returns the minimal subtree of the taxonomy that connects ids. Leaves are named by
// identifier and internal nodes with a single child are collapsed. An identifier that is an ancestor
// of another requested identifier is kept as a leaf hanging from its own clade.
func Topology(ctx context.Context, src Source, ids []ID) (*tree.Node, error) {
	if len(ids) == 0 {
		return nil, errors.New("at least one taxon is required")
	}

	requested := make(map[ID]struct{}, len(ids))
	children := make(map[ID][]ID)
	seenEdge := make(map[[2]ID]struct{})
	var root ID

	for i, id := range ids {
		requested[id] = struct{}{}

		lineage, err := Lineage(ctx, src, id)
		if err != nil {
			return nil, err
		}

		top := lineage[len(lineage)-1]
		if i == 0 {
			root = top
		} else if top != root {
			return nil, errors.Errorf("taxa %d and %d do not share a root", ids[0], id)
		}

		// lineage goes from the leaf to the root, edges are recorded parent first
		for j := len(lineage) - 1; j > 0; j-- {
			edge := [2]ID{lineage[j], lineage[j-1]}
			if _, ok := seenEdge[edge]; ok {
				continue
			}

			seenEdge[edge] = struct{}{}
			children[lineage[j]] = append(children[lineage[j]], lineage[j-1])
		}
	}

	var build func(id ID) *tree.Node

	build = func(id ID) *tree.Node {
		kids := children[id]
		if len(kids) == 0 {
			return tree.NewLeaf(id.String())
		}

		node := tree.NewInternal()
		if _, ok := requested[id]; ok {
			node.AddChild(tree.NewLeaf(id.String()))
		}

		for _, kid := range kids {
			node.AddChild(build(kid))
		}

		return node
	}

	return build(root).CollapseUnary(), nil
}
