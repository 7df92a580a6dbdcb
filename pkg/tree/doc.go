// Package tree provides the rooted phylogenetic tree model shared by the generator, the renderer and the
// comparator, together with a graph view of a tree and the extraction of its bipartitions.
package tree
