// Package pipeline runs data through a graph of steps connected by channels.
//
// A pipeline starts with one or more root steps producing elements, transforms them with one-to-one
// or one-to-many steps, duplicates them with splitters, joins branches with mergers and consumes
// them in sinks. A step can run its function on several goroutines.
//
// Steps start when Run is called. The first error of a step cancels every other step and is
// returned by Run, wrapped with the name of the failing step.
//
// Pipeline options hook into the life cycle of the steps: the measure package records durations
// and the drawer package writes a DOT graph of the pipeline.
package pipeline
