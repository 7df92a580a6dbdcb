package compare

import (
	"math"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/phylobench/pkg/newick"
	"github.com/askiada/phylobench/pkg/tree"
)

var ErrFormatMismatch = errors.New("newick descriptions have different formats")

// lengthTolerance is the largest branch length difference considered equal.
const lengthTolerance = 1e-9

// Options controls a comparison.
type Options struct {
	// PairThreshold is the edit ratio above which taxa are paired. Zero uses DefaultPairThreshold.
	PairThreshold float64
	// Rooted compares clusters instead of unrooted bipartitions for the Robinson-Foulds distance.
	Rooted bool
	// AllowFormatMismatch compares descriptions of different format classes on what they share.
	AllowFormatMismatch bool
}

// TopologyReport compares the bipartitions of two trees.
type TopologyReport struct {
	RF               int
	MaxRF            int
	RFRatio          float64
	OriginalEdges    int
	GeneratedEdges   int
	CommonEdges      int
	MissingEdges     int
	CorrectEdgeRatio float64
	Common           []string
	Missing          []string
	// SameRooted is set when both trees have the same rooted topology, which unrooted bipartitions
	// cannot tell apart for small trees.
	SameRooted bool
}

// DistanceReport compares the branch lengths of the edges both trees share.
type DistanceReport struct {
	Compared    int
	MeanAbsDiff float64
	MaxAbsDiff  float64
	// Missing counts shared edges with a length in only one of the trees.
	Missing int
}

// Report is the result of comparing an original and a generated description.
type Report struct {
	Original     string
	Generated    string
	Class        newick.Class
	TaxaOnly     bool
	TopologyOnly bool
	Taxa         *TaxaReport
	Topology     *TopologyReport
	Distances    *DistanceReport
}

// Divergence summarizes the report in a single number. It is zero exactly when both descriptions
// denote the same tree and grows with the differences.
func (r *Report) Divergence() float64 {
	div := 0.0

	if r.Taxa != nil {
		total := r.Taxa.OriginalCount + r.Taxa.GeneratedCount
		if total > 0 {
			div += 1 - float64(2*r.Taxa.ExactMatches)/float64(total)
		}
	}

	if r.Topology != nil {
		if r.Topology.MaxRF > 0 {
			div += float64(r.Topology.RF) / float64(r.Topology.MaxRF)
		}

		if !r.Topology.SameRooted {
			div++
		}
	}

	if r.Distances != nil {
		if r.Distances.MaxAbsDiff > lengthTolerance {
			div += r.Distances.MeanAbsDiff + r.Distances.MaxAbsDiff
		}

		div += float64(r.Distances.Missing)
	}

	return div
}

// Compare parses both descriptions and compares them.
func Compare(original, generated string, opts Options) (*Report, error) {
	originalClass, originalTree, err := newick.Classify(original)
	if err != nil {
		return nil, errors.Wrap(err, "invalid original newick")
	}

	generatedClass, generatedTree, err := newick.Classify(generated)
	if err != nil {
		return nil, errors.Wrap(err, "invalid generated newick")
	}

	if originalClass != generatedClass && !opts.AllowFormatMismatch {
		return nil, errors.Wrapf(ErrFormatMismatch, "original is %s, generated is %s", originalClass, generatedClass)
	}

	return CompareTrees(originalTree, generatedTree, originalClass, generatedClass, opts), nil
}

// CompareTrees compares two parsed trees whose format classes are known.
func CompareTrees(original, generated *tree.Node, originalClass, generatedClass newick.Class, opts Options) *Report {
	threshold := opts.PairThreshold
	if threshold <= 0 {
		threshold = DefaultPairThreshold
	}

	rep := &Report{
		Class:        originalClass,
		TopologyOnly: originalClass == newick.TopologyOnly || generatedClass == newick.TopologyOnly,
		TaxaOnly:     originalClass == newick.TaxaOnly || generatedClass == newick.TaxaOnly,
	}

	if rep.TopologyOnly {
		rep.Topology = compareShapes(original, generated)

		return rep
	}

	original = normalizeNames(original)
	generated = normalizeNames(generated)

	rep.Taxa = CompareTaxa(original.LeafNames(), generated.LeafNames(), threshold)
	renamePaired(generated, rep.Taxa.Pairs)

	rep.Topology = compareSplits(original, generated, opts.Rooted)

	if !rep.TaxaOnly {
		rep.Distances = compareDistances(original, generated)
	}

	return rep
}

func normalizeNames(root *tree.Node) *tree.Node {
	clone := root.Clone()

	clone.Walk(func(node *tree.Node, _ int) bool {
		node.Name = Normalize(node.Name)

		return true
	})

	return clone
}

// renamePaired gives every paired generated leaf the name of its original taxon.
func renamePaired(generated *tree.Node, pairs []Pair) {
	renames := make(map[string][]string)
	for _, pair := range pairs {
		if pair.Matched() {
			renames[pair.Generated] = append(renames[pair.Generated], pair.Original)
		}
	}

	for _, leaf := range generated.Leaves() {
		targets := renames[leaf.Name]
		if len(targets) == 0 {
			continue
		}

		renames[leaf.Name] = targets[1:]
		leaf.Name = targets[0]
	}
}

func commonLeaves(a, b *tree.Node) map[string]struct{} {
	inA := make(map[string]struct{})
	for _, name := range a.LeafNames() {
		inA[name] = struct{}{}
	}

	res := make(map[string]struct{})

	for _, name := range b.LeafNames() {
		if _, ok := inA[name]; ok {
			res[name] = struct{}{}
		}
	}

	return res
}

func compareSplits(original, generated *tree.Node, rooted bool) *TopologyReport {
	common := commonLeaves(original, generated)
	opts := tree.SplitOptions{Rooted: rooted, Restrict: common}

	originalSplits := tree.Splits(original, opts)
	generatedSplits := tree.Splits(generated, opts)

	rep := &TopologyReport{
		OriginalEdges:  len(originalSplits),
		GeneratedEdges: len(generatedSplits),
		SameRooted:     original.Canonical() == generated.Canonical(),
	}

	for key, split := range originalSplits {
		if _, ok := generatedSplits[key]; ok {
			rep.Common = append(rep.Common, formatSplit(split))
		} else {
			rep.Missing = append(rep.Missing, formatSplit(split))
		}
	}

	sort.Strings(rep.Common)
	sort.Strings(rep.Missing)

	rep.CommonEdges = len(rep.Common)
	rep.MissingEdges = len(rep.Missing)
	fillRF(rep)

	return rep
}

func fillRF(rep *TopologyReport) {
	rep.RF = rep.OriginalEdges + rep.GeneratedEdges - 2*rep.CommonEdges
	rep.MaxRF = rep.OriginalEdges + rep.GeneratedEdges
	rep.RFRatio = 1

	if rep.MaxRF > 0 {
		rep.RFRatio = round4(1 - float64(rep.RF)/float64(rep.MaxRF))
	}

	rep.CorrectEdgeRatio = round4(ratio(rep.CommonEdges, rep.OriginalEdges))
	if rep.OriginalEdges == 0 && rep.GeneratedEdges > 0 {
		rep.CorrectEdgeRatio = 0
	}
}

func formatSplit(split *tree.Split) string {
	return "{" + strings.Join(split.Leaves, ",") + "}"
}

// compareShapes compares unlabeled trees through the multiset of the shapes of their clades.
func compareShapes(original, generated *tree.Node) *TopologyReport {
	originalShapes := shapes(original)
	generatedShapes := shapes(generated)

	rep := &TopologyReport{
		SameRooted: shape(original, nil) == shape(generated, nil),
	}

	for key, count := range originalShapes {
		rep.OriginalEdges += count
		shared := min(count, generatedShapes[key])
		rep.CommonEdges += shared

		for i := 0; i < count-shared; i++ {
			rep.Missing = append(rep.Missing, key)
		}

		for i := 0; i < shared; i++ {
			rep.Common = append(rep.Common, key)
		}
	}

	for _, count := range generatedShapes {
		rep.GeneratedEdges += count
	}

	sort.Strings(rep.Common)
	sort.Strings(rep.Missing)

	rep.MissingEdges = len(rep.Missing)
	fillRF(rep)

	return rep
}

// shapes counts the unlabeled shapes of the internal clades below the root.
func shapes(root *tree.Node) map[string]int {
	res := make(map[string]int)

	for _, child := range root.Children {
		shape(child, res)
	}

	return res
}

func shape(node *tree.Node, acc map[string]int) string {
	if node.IsLeaf() {
		return "()"
	}

	parts := make([]string, len(node.Children))
	for i, child := range node.Children {
		parts[i] = shape(child, acc)
	}

	sort.Strings(parts)
	key := "(" + strings.Join(parts, "") + ")"

	if acc != nil {
		acc[key]++
	}

	return key
}

// compareDistances compares the lengths of the rooted clusters and leaf edges both trees share.
func compareDistances(original, generated *tree.Node) *DistanceReport {
	rep := &DistanceReport{}
	opts := tree.SplitOptions{Rooted: true, Restrict: commonLeaves(original, generated)}

	originalSplits := tree.Splits(original, opts)
	generatedSplits := tree.Splits(generated, opts)

	sum := 0.0

	add := func(a, b float64, hasA, hasB bool) {
		if hasA != hasB {
			rep.Missing++

			return
		}

		if !hasA {
			return
		}

		diff := math.Abs(a - b)
		sum += diff
		rep.Compared++
		rep.MaxAbsDiff = math.Max(rep.MaxAbsDiff, diff)
	}

	for key, split := range originalSplits {
		if other, ok := generatedSplits[key]; ok {
			add(split.Length, other.Length, split.HasLength, other.HasLength)
		}
	}

	originalLeaves := leafEdges(original)
	generatedLeaves := leafEdges(generated)

	for name, edge := range originalLeaves {
		if other, ok := generatedLeaves[name]; ok {
			add(edge.Length, other.Length, edge.HasLength, other.HasLength)
		}
	}

	rep.MeanAbsDiff = round4(mean(sum, rep.Compared))

	return rep
}

func leafEdges(root *tree.Node) map[string]*tree.Node {
	res := make(map[string]*tree.Node)

	for _, leaf := range root.Leaves() {
		if _, ok := res[leaf.Name]; !ok {
			res[leaf.Name] = leaf
		}
	}

	return res
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
