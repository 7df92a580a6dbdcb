package generator_test

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/askiada/phylobench/internal/generator"
	"github.com/askiada/phylobench/internal/taxonomy"
	"github.com/askiada/phylobench/pkg/newick"
	"github.com/askiada/phylobench/pkg/tree"
)

func newGenerator(seed int64) *generator.Generator {
	return generator.New(taxonomy.Synthetic{Max: 10000}, rand.New(rand.NewSource(seed)), zap.NewNop())
}

func TestGenerateInvalidCount(t *testing.T) {
	t.Parallel()

	params := generator.DefaultParams()
	params.Count = 0

	_, err := newGenerator(1).Generate(context.Background(), params)
	assert.ErrorIs(t, err, generator.ErrZeroTaxa)

	params.Count = -3
	_, err = newGenerator(1).Generate(context.Background(), params)
	assert.ErrorIs(t, err, generator.ErrNegativeTaxa)
}

func TestGenerateSingleTaxon(t *testing.T) {
	t.Parallel()

	params := generator.DefaultParams()
	params.Count = 1

	res, err := newGenerator(1).Generate(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, res.IDs, 1)
	assert.True(t, res.Tree.IsLeaf())
	assert.Len(t, res.Tree.LeafNames(), 1)

	parsed, err := newick.Parse(res.Newick)
	require.NoError(t, err)
	assert.Equal(t, res.Tree.LeafNames(), parsed.LeafNames())
}

func TestGenerateRandomRoundTrip(t *testing.T) {
	t.Parallel()

	res, err := newGenerator(7).Generate(context.Background(), generator.DefaultParams())
	require.NoError(t, err)

	require.Len(t, res.IDs, 10)
	assert.Len(t, res.Tree.LeafNames(), 10)

	for _, id := range res.IDs {
		assert.Contains(t, res.Tree.LeafNames(), res.Names[id])
	}

	parsed, err := newick.Parse(res.Newick)
	require.NoError(t, err)
	assert.Equal(t, res.Tree.Canonical(), parsed.Canonical())
	assert.ElementsMatch(t, res.Tree.LeafNames(), parsed.LeafNames())

	assert.Len(t, res.IDTree.LeafNames(), 10)
	assert.NotContains(t, res.IDTree.LeafNames(), res.Tree.LeafNames()[0])
}

func TestGenerateDeterministic(t *testing.T) {
	t.Parallel()

	first, err := newGenerator(42).Generate(context.Background(), generator.DefaultParams())
	require.NoError(t, err)

	second, err := newGenerator(42).Generate(context.Background(), generator.DefaultParams())
	require.NoError(t, err)

	assert.Equal(t, first.Newick, second.Newick)
}

func TestGenerateBinary(t *testing.T) {
	t.Parallel()

	params := generator.DefaultParams()
	params.Count = 25
	params.Topology = generator.TopologyBinary

	res, err := newGenerator(3).Generate(context.Background(), params)
	require.NoError(t, err)
	assert.True(t, res.Tree.IsBinary())
	assert.Len(t, res.Tree.LeafNames(), 25)
}

func TestGenerateResolvePolytomies(t *testing.T) {
	t.Parallel()

	params := generator.DefaultParams()
	params.Count = 30
	params.ResolvePolytomies = true

	res, err := newGenerator(5).Generate(context.Background(), params)
	require.NoError(t, err)
	assert.True(t, res.Tree.IsBinary())
	assert.Len(t, res.Tree.LeafNames(), 30)
}

func TestGenerateTaxonomyTopology(t *testing.T) {
	t.Parallel()

	params := generator.DefaultParams()
	params.Count = 12
	params.Topology = generator.TopologyTaxonomy

	res, err := newGenerator(11).Generate(context.Background(), params)
	require.NoError(t, err)
	assert.Len(t, res.Tree.LeafNames(), 12)
	assert.Equal(t, 0, countUnary(res.Tree))
}

func countUnary(root *tree.Node) int {
	count := 0

	root.Walk(func(node *tree.Node, _ int) bool {
		if len(node.Children) == 1 {
			count++
		}

		return true
	})

	return count
}

func TestGenerateDistances(t *testing.T) {
	t.Parallel()

	params := generator.DefaultParams()
	params.Count = 15
	params.MaxDistance = 2.5

	res, err := newGenerator(9).Generate(context.Background(), params)
	require.NoError(t, err)

	res.Tree.Walk(func(node *tree.Node, depth int) bool {
		if depth == 0 {
			assert.False(t, node.HasLength)

			return true
		}

		require.True(t, node.HasLength)
		assert.GreaterOrEqual(t, node.Length, 0.0)
		assert.LessOrEqual(t, node.Length, 2.5)

		scaled := node.Length * 100
		assert.InDelta(t, math.Round(scaled), scaled, 1e-6)

		return true
	})
}

func TestGenerateUnitDistances(t *testing.T) {
	t.Parallel()

	res, err := newGenerator(2).Generate(context.Background(), generator.DefaultParams())
	require.NoError(t, err)

	class, _, err := newick.Classify(res.Newick)
	require.NoError(t, err)
	assert.Equal(t, newick.WithLengths, class)

	for _, leaf := range res.Tree.Leaves() {
		assert.InDelta(t, 1.0, leaf.Length, 1e-12)
	}
}

func TestGenerateNoDistances(t *testing.T) {
	t.Parallel()

	params := generator.DefaultParams()
	params.NoDistances = true

	res, err := newGenerator(2).Generate(context.Background(), params)
	require.NoError(t, err)
	assert.False(t, res.Tree.HasLengths())

	class, _, err := newick.Classify(res.Newick)
	require.NoError(t, err)
	assert.Equal(t, newick.TaxaOnly, class)
}

func TestGenerateRandomizeCount(t *testing.T) {
	t.Parallel()

	params := generator.DefaultParams()
	params.Count = 6
	params.RandomizeCount = true

	gen := newGenerator(13)

	for i := 0; i < 20; i++ {
		res, err := gen.Generate(context.Background(), params)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(res.IDs), 1)
		assert.LessOrEqual(t, len(res.IDs), 6)
	}
}

func TestSampleNotEnoughTaxa(t *testing.T) {
	t.Parallel()

	params := generator.DefaultParams()
	params.MinID = 1
	params.MaxID = 5

	_, _, err := newGenerator(1).SampleIDs(context.Background(), params)
	assert.ErrorIs(t, err, generator.ErrNotEnoughTaxa)

	mem := taxonomy.NewMemory()
	mem.Add(1, 1, "1")
	mem.Add(2, 1, "123")
	mem.Add(3, 1, "Homo sapiens")

	params = generator.DefaultParams()
	params.Count = 2
	params.MaxID = 3
	params.MaxAttempts = 50

	gen := generator.New(mem, rand.New(rand.NewSource(1)), zap.NewNop())
	_, _, err = gen.SampleIDs(context.Background(), params)
	assert.ErrorIs(t, err, generator.ErrNotEnoughTaxa)
}

func TestSampleInvalidRange(t *testing.T) {
	t.Parallel()

	params := generator.DefaultParams()
	params.MinID = 10
	params.MaxID = 2

	_, _, err := newGenerator(1).SampleIDs(context.Background(), params)
	assert.ErrorIs(t, err, generator.ErrInvalidRange)
}

func TestNamesWithSpacesSurvive(t *testing.T) {
	t.Parallel()

	mem := taxonomy.NewMemory()
	mem.Add(1, 1, "Homo sapiens")
	mem.Add(2, 1, "Pan troglodytes")
	mem.Add(3, 1, "Mus musculus")

	params := generator.DefaultParams()
	params.Count = 3
	params.MaxID = 3

	res, err := generator.New(mem, rand.New(rand.NewSource(1)), zap.NewNop()).Generate(context.Background(), params)
	require.NoError(t, err)

	parsed, err := newick.Parse(res.Newick)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Homo sapiens", "Pan troglodytes", "Mus musculus"}, parsed.LeafNames())
}

func TestSampleRejectsCollidingSanitizedNames(t *testing.T) {
	t.Parallel()

	mem := taxonomy.NewMemory()
	mem.Add(1, 1, "[Clostridium] innocuum")
	mem.Add(2, 1, "Clostridium innocuum")
	mem.Add(3, 1, "[]()")
	mem.Add(4, 1, "Mus musculus")

	params := generator.DefaultParams()
	params.Count = 2
	params.MaxID = 4
	params.MaxAttempts = 1000

	res, err := generator.New(mem, rand.New(rand.NewSource(1)), zap.NewNop()).Generate(context.Background(), params)
	require.NoError(t, err)

	parsed, err := newick.Parse(res.Newick)
	require.NoError(t, err)

	leaves := parsed.LeafNames()
	require.Len(t, leaves, 2)
	assert.Contains(t, leaves, "Mus musculus")
	assert.Contains(t, leaves, "Clostridium innocuum")
	assert.NotContains(t, leaves, "")

	params.Count = 3
	_, _, err = generator.New(mem, rand.New(rand.NewSource(1)), zap.NewNop()).SampleIDs(context.Background(), params)
	assert.ErrorIs(t, err, generator.ErrNotEnoughTaxa)
}

func TestSanitize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Escherichia coli O157H7", generator.Sanitize("Escherichia coli O157:H7"))
	assert.Equal(t, "Candidatus sp. strain A", generator.Sanitize("'Candidatus' sp. [strain A]"))
	assert.Equal(t, "Homo sapiens", generator.Sanitize("Homo sapiens"))
}

func TestParseTopology(t *testing.T) {
	t.Parallel()

	topology, err := generator.ParseTopology("Binary")
	require.NoError(t, err)
	assert.Equal(t, generator.TopologyBinary, topology)

	topology, err = generator.ParseTopology("")
	require.NoError(t, err)
	assert.Equal(t, generator.TopologyRandom, topology)

	_, err = generator.ParseTopology("star")
	assert.Error(t, err)
}
