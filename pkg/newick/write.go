package newick

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/askiada/phylobench/pkg/tree"
)

// WriteOptions controls the serialization of a tree.
type WriteOptions struct {
	// OmitLengths drops every branch length.
	OmitLengths bool
	// OmitNames drops every label, producing a topology-only description.
	OmitNames bool
	// OmitInternalNames drops labels of internal nodes, such as support values.
	OmitInternalNames bool
	// Precision is the number of decimals of branch lengths. Zero uses the shortest representation
	// that round-trips.
	Precision int
}

// DefaultWriteOptions writes every label and length with the shortest representation.
var DefaultWriteOptions = WriteOptions{}

// String serializes the tree with DefaultWriteOptions.
func String(root *tree.Node) string {
	return Format(root, DefaultWriteOptions)
}

// Format serializes the tree rooted at root, terminating semicolon included.
func Format(root *tree.Node, opts WriteOptions) string {
	var sb strings.Builder

	write(&sb, root, opts, true)
	sb.WriteByte(';')

	return sb.String()
}

func write(sb *strings.Builder, node *tree.Node, opts WriteOptions, isRoot bool) {
	if !node.IsLeaf() {
		sb.WriteByte('(')

		for i, child := range node.Children {
			if i > 0 {
				sb.WriteByte(',')
			}

			write(sb, child, opts, false)
		}

		sb.WriteByte(')')
	}

	if !opts.OmitNames && (node.IsLeaf() || !opts.OmitInternalNames) {
		sb.WriteString(QuoteLabel(node.Name))
	}

	if node.HasLength && !opts.OmitLengths && !isRoot {
		sb.WriteByte(':')
		precision := opts.Precision
		if precision <= 0 {
			precision = -1
		}

		sb.WriteString(strconv.FormatFloat(node.Length, 'f', precision, 64))
	}
}

const labelMetachars = "()[]':;,"

// QuoteLabel returns the label as it must appear in a Newick string. Labels containing whitespace or
// Newick metacharacters are single quoted, with embedded quotes doubled.
func QuoteLabel(label string) string {
	if label == "" {
		return ""
	}

	if !strings.ContainsAny(label, labelMetachars) && strings.IndexFunc(label, unicode.IsSpace) < 0 {
		return label
	}

	return "'" + strings.ReplaceAll(label, "'", "''") + "'"
}
