package tree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/phylobench/pkg/tree"
)

func sample() *tree.Node {
	// ((A:1,B:2):0.5,(C:1,D:1,E:1):1,F:3)
	return tree.NewInternal(
		tree.NewInternal(tree.NewLeaf("A").SetLength(1), tree.NewLeaf("B").SetLength(2)).SetLength(0.5),
		tree.NewInternal(tree.NewLeaf("C").SetLength(1), tree.NewLeaf("D").SetLength(1), tree.NewLeaf("E").SetLength(1)).SetLength(1),
		tree.NewLeaf("F").SetLength(3),
	)
}

func TestLeavesAndCounts(t *testing.T) {
	t.Parallel()

	root := sample()
	assert.Equal(t, []string{"A", "B", "C", "D", "E", "F"}, root.LeafNames())
	assert.Equal(t, 9, root.NodeCount())
	assert.Equal(t, 2, root.MaxDepth())
	assert.True(t, root.HasLengths())
	assert.Equal(t, 2, root.CountMultifurcations())
	assert.True(t, root.IsMultifurcating())
	assert.False(t, root.IsBinary())
}

func TestSingleLeaf(t *testing.T) {
	t.Parallel()

	root := tree.NewLeaf("A")
	assert.True(t, root.IsLeaf())
	assert.Equal(t, []string{"A"}, root.LeafNames())
	assert.True(t, root.IsBinary())
	assert.False(t, root.HasLengths())
}

func TestCloneIsDeep(t *testing.T) {
	t.Parallel()

	root := sample()
	clone := root.Clone()
	clone.Children[0].Children[0].Name = "changed"

	assert.Equal(t, "A", root.Children[0].Children[0].Name)
	assert.Equal(t, root.Canonical(), sample().Canonical())
}

func TestResolvePolytomies(t *testing.T) {
	t.Parallel()

	root := sample()
	root.ResolvePolytomies(func() float64 { return 0.25 })

	assert.True(t, root.IsBinary())
	assert.ElementsMatch(t, []string{"A", "B", "C", "D", "E", "F"}, root.LeafNames())
	assert.Equal(t, 0, root.CountMultifurcations())

	created := root.Children[1]
	assert.True(t, created.HasLength)
	assert.InDelta(t, 0.25, created.Length, 1e-12)
}

func TestCollapseUnary(t *testing.T) {
	t.Parallel()

	root := tree.NewInternal(
		tree.NewInternal(tree.NewInternal(tree.NewLeaf("A").SetLength(1)).SetLength(2)).SetLength(3),
		tree.NewLeaf("B"),
	)

	collapsed := root.CollapseUnary()
	require.Len(t, collapsed.Children, 2)
	assert.Equal(t, "A", collapsed.Children[0].Name)
	assert.InDelta(t, 6, collapsed.Children[0].Length, 1e-12)
}

func TestCanonicalIgnoresChildOrder(t *testing.T) {
	t.Parallel()

	left := tree.NewInternal(tree.NewInternal(tree.NewLeaf("A"), tree.NewLeaf("B")), tree.NewLeaf("C"))
	right := tree.NewInternal(tree.NewLeaf("C"), tree.NewInternal(tree.NewLeaf("B"), tree.NewLeaf("A")))
	other := tree.NewInternal(tree.NewInternal(tree.NewLeaf("A"), tree.NewLeaf("C")), tree.NewLeaf("B"))

	assert.Equal(t, left.Canonical(), right.Canonical())
	assert.NotEqual(t, left.Canonical(), other.Canonical())
}

func TestSplitsUnrooted(t *testing.T) {
	t.Parallel()

	splits := tree.Splits(sample(), tree.SplitOptions{})
	keys := make([][]string, 0, len(splits))

	for _, split := range splits {
		keys = append(keys, split.Leaves)
	}

	assert.ElementsMatch(t, [][]string{{"C", "D", "E"}, {"C", "D", "E", "F"}}, keys)
}

func TestSplitsRootedAndRestricted(t *testing.T) {
	t.Parallel()

	splits := tree.Splits(sample(), tree.SplitOptions{Rooted: true})
	assert.Len(t, splits, 2)

	restricted := tree.Splits(sample(), tree.SplitOptions{
		Rooted:   true,
		Restrict: map[string]struct{}{"A": {}, "B": {}, "C": {}},
	})
	require.Len(t, restricted, 1)

	for _, split := range restricted {
		assert.Equal(t, []string{"A", "B"}, split.Leaves)
		assert.True(t, split.HasLength)
		assert.InDelta(t, 0.5, split.Length, 1e-12)
	}
}

func TestSplitsRootEdgesAreSummed(t *testing.T) {
	t.Parallel()

	root := tree.NewInternal(
		tree.NewInternal(tree.NewLeaf("A").SetLength(1), tree.NewLeaf("B").SetLength(1)).SetLength(0.5),
		tree.NewInternal(tree.NewLeaf("C").SetLength(1), tree.NewLeaf("D").SetLength(1)).SetLength(1.5),
	)

	splits := tree.Splits(root, tree.SplitOptions{})
	require.Len(t, splits, 1)

	for _, split := range splits {
		assert.InDelta(t, 2, split.Length, 1e-12)
	}

	lengths := tree.LeafLengths(root)
	assert.Len(t, lengths, 4)
}

func TestView(t *testing.T) {
	t.Parallel()

	view, err := tree.NewView(sample())
	require.NoError(t, err)
	require.Len(t, view.Clades, 9)

	children, err := view.Children(0)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4, 8}, children)

	path, err := view.PathToRoot(3)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 0}, path)

	edge, err := view.Graph.Edge(1, 3)
	require.NoError(t, err)
	assert.Equal(t, "2", edge.Properties.Attributes["length"])

	_, err = tree.NewView(nil)
	assert.Error(t, err)
}
