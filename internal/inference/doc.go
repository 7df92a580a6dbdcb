// Package inference asks a multimodal model to describe the tree image of a bundle in Newick format.
package inference
