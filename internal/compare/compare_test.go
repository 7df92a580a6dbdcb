package compare_test

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/phylobench/internal/compare"
	"github.com/askiada/phylobench/pkg/newick"
)

func TestCompareIdentical(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"((A:1,B:2):0.5,(C:1,D:1):1);",
		"(('Homo sapiens',B),C);",
		"((,),(,(,)));",
		"(A:1);",
		"((A,B),,C);",
		"((A:1,B:1):1,:1);",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			t.Parallel()

			rep, err := compare.Compare(input, input, compare.Options{})
			require.NoError(t, err)
			assert.Zero(t, rep.Divergence())
			assert.Zero(t, rep.Topology.RF)
			assert.InDelta(t, 1, rep.Topology.RFRatio, 1e-12)
		})
	}
}

func TestCompareChildOrderIsIgnored(t *testing.T) {
	t.Parallel()

	rep, err := compare.Compare("((A:1,B:2):0.5,(C:1,D:1):1);", "((D:1,C:1):1,(B:2,A:1):0.5);", compare.Options{})
	require.NoError(t, err)
	assert.Zero(t, rep.Divergence())
}

func TestCompareDifferentTopology(t *testing.T) {
	t.Parallel()

	rep, err := compare.Compare("((A:1,B:2):0.5,(C:1,D:1):1);", "((A:1,C:2):0.5,(B:1,D:1):1);", compare.Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Topology.RF)
	assert.Equal(t, 2, rep.Topology.MaxRF)
	assert.Zero(t, rep.Topology.RFRatio)
	assert.Equal(t, 1, rep.Topology.MissingEdges)
	assert.Equal(t, []string{"{C,D}"}, rep.Topology.Missing)
	assert.Zero(t, rep.Topology.CorrectEdgeRatio)
	assert.InDelta(t, 1, rep.Taxa.CorrectRatio, 1e-12)
	assert.Greater(t, rep.Divergence(), 0.0)
}

func TestCompareRootingDifference(t *testing.T) {
	t.Parallel()

	rep, err := compare.Compare("((A,B),C);", "(A,(B,C));", compare.Options{})
	require.NoError(t, err)

	assert.Zero(t, rep.Topology.MaxRF)
	assert.False(t, rep.Topology.SameRooted)
	assert.Greater(t, rep.Divergence(), 0.0)

	rooted, err := compare.Compare("((A,B),C);", "(A,(B,C));", compare.Options{Rooted: true})
	require.NoError(t, err)
	assert.Equal(t, 2, rooted.Topology.RF)
}

func TestCompareLengths(t *testing.T) {
	t.Parallel()

	rep, err := compare.Compare("((A:1,B:2):0.5,(C:1,D:1):1);", "((A:1,B:2):0.5,(C:1,D:3):1);", compare.Options{})
	require.NoError(t, err)

	require.NotNil(t, rep.Distances)
	assert.Zero(t, rep.Topology.RF)
	assert.InDelta(t, 2, rep.Distances.MaxAbsDiff, 1e-12)
	assert.Equal(t, 6, rep.Distances.Compared)
	assert.Greater(t, rep.Divergence(), 0.0)
}

func TestCompareTaxaOnlySkipsDistances(t *testing.T) {
	t.Parallel()

	rep, err := compare.Compare("((A,B),C);", "((A,B),C);", compare.Options{})
	require.NoError(t, err)
	assert.True(t, rep.TaxaOnly)
	assert.Nil(t, rep.Distances)
	assert.Equal(t, newick.TaxaOnly, rep.Class)
}

func TestCompareTopologyOnly(t *testing.T) {
	t.Parallel()

	rep, err := compare.Compare("((,),);", "(,(,));", compare.Options{})
	require.NoError(t, err)
	assert.True(t, rep.TopologyOnly)
	assert.Nil(t, rep.Taxa)
	assert.Zero(t, rep.Divergence())

	rep, err = compare.Compare("((,),);", "(,,);", compare.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Topology.RF)
	assert.Greater(t, rep.Divergence(), 0.0)
}

func TestCompareFormatMismatch(t *testing.T) {
	t.Parallel()

	_, err := compare.Compare("((A,B),C);", "((A:1,B:1):1,C:1);", compare.Options{})
	assert.ErrorIs(t, err, compare.ErrFormatMismatch)

	rep, err := compare.Compare("((A,B),C);", "((A:1,B:1):1,C:1);", compare.Options{AllowFormatMismatch: true})
	require.NoError(t, err)
	assert.Nil(t, rep.Distances)
	assert.Zero(t, rep.Topology.RF)
}

func TestCompareInvalid(t *testing.T) {
	t.Parallel()

	_, err := compare.Compare("((A,B);", "(A,B);", compare.Options{})
	assert.ErrorIs(t, err, newick.ErrUnbalanced)

	_, err = compare.Compare("(A,B);", "", compare.Options{})
	assert.Error(t, err)
}

func TestComparePairedNamesAreSubstituted(t *testing.T) {
	t.Parallel()

	original := "(('Homo sapiens','Pan troglodytes'),('Mus musculus','Rattus rattus'));"
	generated := "(('Homo sapiens','Pan troglodytis'),('Mus musculus','Rattus rattus'));"

	rep, err := compare.Compare(original, generated, compare.Options{})
	require.NoError(t, err)

	assert.Zero(t, rep.Topology.RF)
	assert.Equal(t, 3, rep.Taxa.ExactMatches)
	assert.Empty(t, rep.Taxa.Unmatched)
	assert.Greater(t, rep.Divergence(), 0.0)
}

func TestCompareTaxa(t *testing.T) {
	t.Parallel()

	rep := compare.CompareTaxa(
		[]string{"Homo sapiens", "Pan troglodytes", "Mus musculus"},
		[]string{"Pan troglodytis", "Homo sapiens", "Gorilla"},
		compare.DefaultPairThreshold,
	)

	require.Len(t, rep.Pairs, 3)
	assert.Equal(t, "Homo sapiens", rep.Pairs[0].Generated)
	assert.Equal(t, "Pan troglodytis", rep.Pairs[1].Generated)
	assert.Equal(t, 1, rep.Pairs[1].Distance)
	assert.False(t, rep.Pairs[2].Matched())
	assert.Equal(t, 12, rep.Pairs[2].Distance)

	assert.Equal(t, 3, rep.OriginalCount)
	assert.Equal(t, 3, rep.GeneratedCount)
	assert.Equal(t, 1, rep.ExactMatches)
	assert.InDelta(t, 0.3333, rep.CorrectRatio, 1e-9)
	assert.Equal(t, 2, rep.EqualLength)
	assert.Zero(t, rep.UnequalLength)
	assert.InDelta(t, 0.5, rep.MeanHamming, 1e-9)
	assert.InDelta(t, 0.5, rep.MeanEdit, 1e-9)
	assert.InDelta(t, 4.3333, rep.MeanEditTotal, 1e-9)
	assert.InDelta(t, 0.9667, rep.MeanEditRatio, 1e-9)
	assert.InDelta(t, 0.6444, rep.MeanEditRatioTotal, 1e-9)
	assert.Equal(t, []string{"Mus musculus"}, rep.Unmatched)
}

func TestCompareTaxaUnnamedLeavesPair(t *testing.T) {
	t.Parallel()

	rep := compare.CompareTaxa([]string{"A", "", "C"}, []string{"A", "", "C"}, compare.DefaultPairThreshold)

	require.Len(t, rep.Pairs, 3)
	assert.True(t, rep.Pairs[1].Matched())
	assert.Empty(t, rep.Pairs[1].Generated)
	assert.Equal(t, 3, rep.ExactMatches)
	assert.Empty(t, rep.Unmatched)
	assert.InDelta(t, 1, rep.CorrectRatio, 1e-12)
}

func TestCompareTaxaEmpty(t *testing.T) {
	t.Parallel()

	rep := compare.CompareTaxa(nil, nil, compare.DefaultPairThreshold)
	assert.InDelta(t, 1, rep.CorrectRatio, 1e-12)
	assert.Zero(t, rep.MeanEdit)
}

func TestDistances(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 3, compare.EditDistance("kitten", "sitting"))
	assert.InDelta(t, 1, compare.EditRatio("", ""), 1e-12)
	assert.InDelta(t, 0.5, compare.EditRatio("ab", "ac"), 1e-12)

	distance, ok := compare.Hamming("Añb", "Acb")
	assert.True(t, ok)
	assert.Equal(t, 1, distance)

	_, ok = compare.Hamming("a", "ab")
	assert.False(t, ok)

	// decomposed and precomposed forms are the same name once normalized
	assert.Equal(t, compare.Normalize("Am\u00e9lie"), compare.Normalize("Ame\u0301lie"))
}

func TestAppendTSV(t *testing.T) {
	t.Parallel()

	params, err := compare.ReadParams(strings.NewReader("taxa\tseed\n4\t42\n"))
	require.NoError(t, err)

	rep, err := compare.Compare("((A:1,B:2):0.5,(C:1,D:1):1);", "((A:1,B:2):0.5,(C:1,D:1):1);", compare.Options{})
	require.NoError(t, err)

	rep.Original, rep.Generated = "truth.nwk", "predicted.nwk"
	topo, err := compare.Compare("((,),);", "((,),);", compare.Options{})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "comparison.tsv")
	require.NoError(t, compare.AppendTSV(path, params, rep))
	require.NoError(t, compare.AppendTSV(path, params, topo))

	lines := readLines(t, path)
	require.Len(t, lines, 3)

	header := strings.Split(lines[0], "\t")
	assert.Equal(t, compare.Header(params), header)
	assert.Equal(t, "newick1", header[0])
	assert.Equal(t, "seed", header[len(header)-1])

	first := strings.Split(lines[1], "\t")
	require.Len(t, first, len(header))
	assert.Equal(t, []string{"truth.nwk", "predicted.nwk", "false", "false", "4", "4", "1"}, first[:7])
	assert.Equal(t, "42", first[len(first)-1])

	second := strings.Split(lines[2], "\t")
	require.Len(t, second, len(header))
	assert.Equal(t, "true", second[3])
	assert.Equal(t, "None", second[4])
}

func TestReadParams(t *testing.T) {
	t.Parallel()

	params, err := compare.ReadParams(strings.NewReader("a\tb\tc\n1\t2\n"))
	require.NoError(t, err)

	rep, err := compare.Compare("(A,B);", "(A,B);", compare.Options{})
	require.NoError(t, err)

	entry := compare.Entry(rep, params)
	assert.Equal(t, []string{"1", "2", "None"}, entry[len(entry)-3:])

	_, err = compare.ReadParams(strings.NewReader("a\n1\t2\n"))
	assert.Error(t, err)

	_, err = compare.ReadParams(strings.NewReader(""))
	assert.Error(t, err)
}

func readLines(t *testing.T, path string) []string {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	require.NoError(t, scanner.Err())

	return lines
}
