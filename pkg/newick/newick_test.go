package newick_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/phylobench/pkg/newick"
	"github.com/askiada/phylobench/pkg/tree"
)

func TestParseLengthsAndNames(t *testing.T) {
	t.Parallel()

	root, err := newick.Parse("((A:1.5,B:2):0.25,C:3);")
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C"}, root.LeafNames())
	require.Len(t, root.Children, 2)
	assert.True(t, root.Children[0].HasLength)
	assert.InDelta(t, 0.25, root.Children[0].Length, 1e-12)
	assert.InDelta(t, 1.5, root.Children[0].Children[0].Length, 1e-12)
	assert.False(t, root.HasLength)
}

func TestParseQuotedLabels(t *testing.T) {
	t.Parallel()

	root, err := newick.Parse("('Homo sapiens':1,'O''Brien''s toad':2,Mus_musculus:3);")
	require.NoError(t, err)
	assert.Equal(t, []string{"Homo sapiens", "O'Brien's toad", "Mus_musculus"}, root.LeafNames())
}

func TestParseUnquotedSpaces(t *testing.T) {
	t.Parallel()

	root, err := newick.Parse("( Homo sapiens :1, Pan troglodytes:2);")
	require.NoError(t, err)
	assert.Equal(t, []string{"Homo sapiens", "Pan troglodytes"}, root.LeafNames())
}

func TestParseUnderscoreToSpace(t *testing.T) {
	t.Parallel()

	root, err := newick.ParseWith("(Homo_sapiens,Pan);", newick.ParseOptions{UnderscoreToSpace: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Homo sapiens", "Pan"}, root.LeafNames())
}

func TestParseCommentsAndSupport(t *testing.T) {
	t.Parallel()

	root, err := newick.Parse("((A,B)95[note]:1,C)[root];")
	require.NoError(t, err)
	assert.Equal(t, "95", root.Children[0].Name)

	newick.RemoveSupportValues(root)
	assert.Equal(t, "", root.Children[0].Name)
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		input string
		err   error
	}{
		"empty":         {input: "   ", err: newick.ErrEmpty},
		"unbalanced":    {input: "((A,B);", err: newick.ErrUnbalanced},
		"no terminator": {input: "(A,B)", err: newick.ErrMissingTerminator},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := newick.Parse(tc.input)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestParseSyntaxError(t *testing.T) {
	t.Parallel()

	_, err := newick.Parse("(A:x,B);")
	require.Error(t, err)

	var syntaxErr *newick.SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	assert.Equal(t, 3, syntaxErr.Offset)

	_, err = newick.Parse("(A,B); (C,D);")
	assert.ErrorAs(t, err, &syntaxErr)
}

func TestParseAllowMissingTerminator(t *testing.T) {
	t.Parallel()

	root, err := newick.ParseWith("(A,B)", newick.ParseOptions{AllowMissingTerminator: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, root.LeafNames())
}

func TestFormat(t *testing.T) {
	t.Parallel()

	root := tree.NewInternal(
		tree.NewInternal(tree.NewLeaf("Homo sapiens").SetLength(1), tree.NewLeaf("B").SetLength(0.5)).SetLength(2),
		tree.NewLeaf("C").SetLength(3),
	)

	assert.Equal(t, "(('Homo sapiens':1,B:0.5):2,C:3);", newick.String(root))
	assert.Equal(t, "(('Homo sapiens',B),C);", newick.Format(root, newick.WriteOptions{OmitLengths: true}))
	assert.Equal(t, "((,),);", newick.Format(root, newick.WriteOptions{OmitLengths: true, OmitNames: true}))
	assert.Equal(t, "(('Homo sapiens':1.00,B:0.50):2.00,C:3.00);", newick.Format(root, newick.WriteOptions{Precision: 2}))
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"((A:1,B:2):0.5,(C:1,D:1.25):3);",
		"('Homo sapiens':0.12,('Pan troglodytes':1,'Gorilla gorilla gorilla':2,Pongo:0.01):4);",
		"((,),(,(,)));",
		"(A,B,C,D);",
		"single;",
	}

	for _, input := range inputs {
		first, err := newick.Parse(input)
		require.NoError(t, err, input)

		second, err := newick.Parse(newick.String(first))
		require.NoError(t, err, input)

		assert.Equal(t, first.LeafNames(), second.LeafNames(), input)
		assert.Equal(t, first.Canonical(), second.Canonical(), input)
		assert.Empty(t, cmp.Diff(first, second), input)
	}
}

func TestRoundTripUnicodeSpaces(t *testing.T) {
	t.Parallel()

	names := []string{"Homo\u00a0", "\u2003lead", "Pan\u2009troglodytes", "tab\tinside"}

	root := tree.NewInternal()
	for _, name := range names {
		root.AddChild(tree.NewLeaf(name))
	}

	parsed, err := newick.Parse(newick.String(root))
	require.NoError(t, err)
	assert.Equal(t, names, parsed.LeafNames())
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := map[string]newick.Class{
		"((,),);":            newick.TopologyOnly,
		"((A,B),C);":         newick.TaxaOnly,
		"((A:1,B:2):1,C:3);": newick.WithLengths,
		"((A:1,B),C);":       newick.Flexible,
	}

	for input, expected := range tests {
		class, root, err := newick.Classify(input)
		require.NoError(t, err, input)
		require.NotNil(t, root)
		assert.Equal(t, expected, class, input)
	}

	_, _, err := newick.Classify("((A,B);")
	assert.ErrorIs(t, err, newick.ErrUnbalanced)
}

func TestBalanceParentheses(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "((A,B),C);", newick.BalanceParentheses("((A,B),C"))
	assert.Equal(t, "((A,B),C);", newick.BalanceParentheses("(A,B),C);"))
	assert.Equal(t, "(A,B);", newick.BalanceParentheses("(A,B);"))
	assert.True(t, newick.IsBalanced("('a)b',C);"))
	assert.False(t, newick.IsBalanced(")A,B("))
}

func TestStrip(t *testing.T) {
	t.Parallel()

	root, err := newick.Parse("((A:1,B:2)x:1,C:3);")
	require.NoError(t, err)

	newick.StripLengths(root)
	assert.Equal(t, "((A,B)x,C);", newick.String(root))

	newick.StripNames(root)
	assert.Equal(t, newick.TopologyOnly, newick.ClassOf(root))
}
