package newick

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/phylobench/pkg/tree"
)

// Class is the format class of a Newick description. Classes go from the most to the least restrictive.
type Class int

const (
	// TopologyOnly has neither labels nor branch lengths: ((,),);
	TopologyOnly Class = iota
	// TaxaOnly has leaf names and no branch lengths: ((A,B),C);
	TaxaOnly
	// WithLengths has leaf names and a length on every branch: ((A:1,B:2):1,C:3);
	WithLengths
	// Flexible is any other parseable description.
	Flexible
)

func (c Class) String() string {
	switch c {
	case TopologyOnly:
		return "topology-only"
	case TaxaOnly:
		return "taxa-only"
	case WithLengths:
		return "with-lengths"
	default:
		return "flexible"
	}
}

// Classify parses s and returns its format class.
func Classify(s string) (Class, *tree.Node, error) {
	root, err := Parse(s)
	if err != nil {
		return Flexible, nil, errors.Wrap(err, "unable to classify newick")
	}

	return ClassOf(root), root, nil
}

// ClassOf returns the format class of an already parsed tree.
func ClassOf(root *tree.Node) Class {
	namedLeaves, unnamedLeaves := 0, 0
	withLength, withoutLength := 0, 0

	root.Walk(func(node *tree.Node, depth int) bool {
		if node.IsLeaf() {
			if node.Name == "" {
				unnamedLeaves++
			} else {
				namedLeaves++
			}
		}

		if depth > 0 {
			if node.HasLength {
				withLength++
			} else {
				withoutLength++
			}
		}

		return true
	})

	switch {
	case namedLeaves == 0 && withLength == 0:
		return TopologyOnly
	case unnamedLeaves == 0 && withLength == 0:
		return TaxaOnly
	case unnamedLeaves == 0 && withoutLength == 0:
		return WithLengths
	default:
		return Flexible
	}
}

// IsBalanced reports whether every opening parenthesis outside quoted labels has a closing one.
func IsBalanced(s string) bool {
	depth := 0
	quoted := false

	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\'':
			quoted = !quoted
		case quoted:
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}

	return depth == 0
}

// BalanceParentheses naively repairs unbalanced parentheses by adding the missing ones at the start or
// at the end of the description. The result always ends with a semicolon.
func BalanceParentheses(s string) string {
	s = strings.TrimSuffix(strings.TrimSpace(s), ";")
	opening := strings.Count(s, "(")
	closing := strings.Count(s, ")")

	if opening > closing {
		s += strings.Repeat(")", opening-closing)
	}

	if closing > opening {
		s = strings.Repeat("(", closing-opening) + s
	}

	return s + ";"
}

// RemoveSupportValues clears numeric labels of internal nodes.
func RemoveSupportValues(root *tree.Node) {
	root.Walk(func(node *tree.Node, _ int) bool {
		if node.IsLeaf() || node.Name == "" {
			return true
		}

		if _, err := strconv.ParseFloat(node.Name, 64); err == nil {
			node.Name = ""
		}

		return true
	})
}

// StripLengths removes every branch length.
func StripLengths(root *tree.Node) {
	root.Walk(func(node *tree.Node, _ int) bool {
		node.ClearLength()

		return true
	})
}

// StripNames removes every label.
func StripNames(root *tree.Node) {
	root.Walk(func(node *tree.Node, _ int) bool {
		node.Name = ""

		return true
	})
}
