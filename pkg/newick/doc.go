// Package newick reads and writes phylogenetic trees in the Newick format.
//
// Labels containing whitespace or Newick metacharacters are written single quoted, with embedded quotes
// doubled, so taxon names such as "Homo sapiens" survive a write and parse cycle unmodified. Unlike the
// PHYLIP convention, underscores of unquoted labels are kept as they are unless
// ParseOptions.UnderscoreToSpace is set. Bracketed comments are skipped.
package newick
