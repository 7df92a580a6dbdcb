package tree

import (
	"sort"
	"strings"
)

const splitSeparator = "\x1f"

// Split is a bipartition of the leaf set induced by one edge of a tree.
// Key identifies the bipartition independently of the tree it comes from.
type Split struct {
	Key    string
	Leaves []string
	// Length is the length of the edge, when known. In unrooted mode the two edges around the root
	// induce the same bipartition and their lengths are summed.
	Length    float64
	HasLength bool
}

// SplitOptions controls how bipartitions are extracted.
type SplitOptions struct {
	// Rooted keeps the direction of the root: clusters are compared instead of unrooted bipartitions.
	Rooted bool
	// Restrict limits the computation to the given leaf names. Leaves outside the set are ignored.
	Restrict map[string]struct{}
}

// Splits returns the non trivial bipartitions of the tree keyed by Split.Key.
// A bipartition is trivial when one of its sides has less than two leaves.
func Splits(root *Node, opts SplitOptions) map[string]*Split {
	all := restrictedLeaves(root, opts.Restrict)
	total := len(all)
	reference := ""

	if total > 0 {
		reference = all[0]
	}

	res := make(map[string]*Split)

	var visit func(node *Node, isRoot bool) []string

	visit = func(node *Node, isRoot bool) []string {
		var below []string

		if node.IsLeaf() {
			if inSet(opts.Restrict, node.Name) {
				below = []string{node.Name}
			}
		} else {
			for _, child := range node.Children {
				below = append(below, visit(child, false)...)
			}
		}

		if isRoot || node.IsLeaf() {
			return below
		}

		side := sortedCopy(below)
		if !opts.Rooted && containsSorted(side, reference) {
			side = complement(all, side)
		}

		if !isNonTrivial(len(side), total, opts.Rooted) {
			return below
		}

		key := strings.Join(side, splitSeparator)
		split, ok := res[key]

		if !ok {
			split = &Split{Key: key, Leaves: side}
			res[key] = split
		}

		if node.HasLength {
			split.Length += node.Length
			split.HasLength = true
		}

		return below
	}

	visit(root, true)

	return res
}

// LeafLengths returns the branch length leading to every named leaf that has one.
func LeafLengths(root *Node) map[string]float64 {
	res := make(map[string]float64)

	for _, leaf := range root.Leaves() {
		if leaf.HasLength {
			res[leaf.Name] = leaf.Length
		}
	}

	return res
}

func isNonTrivial(size, total int, rooted bool) bool {
	if size < 2 {
		return false
	}

	if rooted {
		return size < total
	}

	return total-size >= 2
}

func restrictedLeaves(root *Node, restrict map[string]struct{}) []string {
	seen := make(map[string]struct{})
	res := []string{}

	for _, name := range root.LeafNames() {
		if !inSet(restrict, name) {
			continue
		}

		if _, ok := seen[name]; ok {
			continue
		}

		seen[name] = struct{}{}
		res = append(res, name)
	}

	sort.Strings(res)

	return res
}

func inSet(set map[string]struct{}, name string) bool {
	if set == nil {
		return true
	}

	_, ok := set[name]

	return ok
}

func sortedCopy(names []string) []string {
	res := make([]string, len(names))
	copy(res, names)
	sort.Strings(res)

	return res
}

func containsSorted(sorted []string, name string) bool {
	idx := sort.SearchStrings(sorted, name)

	return idx < len(sorted) && sorted[idx] == name
}

func complement(all, side []string) []string {
	res := make([]string, 0, len(all)-len(side))

	for _, name := range all {
		if !containsSorted(side, name) {
			res = append(res, name)
		}
	}

	return res
}
