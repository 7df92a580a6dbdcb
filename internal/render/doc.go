// Package render draws phylogenetic trees as rectangular phylograms.
//
// PNG images use the fixed 7x13 bitmap font so that the width of every label is known in advance
// and the canvas can be sized to show names in full. SVG output shares the same layout. DOT output
// describes the tree graph for Graphviz.
package render
