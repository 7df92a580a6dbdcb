package main

import (
	"github.com/spf13/cobra"

	"github.com/askiada/phylobench/internal/config"
)

// override copies value into dst when the flag name was set on the command line.
func override[T any](cmd *cobra.Command, name string, value T, dst *T) {
	if cmd.Flags().Changed(name) {
		*dst = value
	}
}

// generatorFlags are shared by generate and batch generate.
type generatorFlags struct {
	count             int
	randomizeCount    bool
	minID             int
	maxID             int
	topology          string
	resolvePolytomies bool
	maxDistance       float64
	noDistances       bool
	seed              int64
	format            string
	taxonomyDB        string
}

func (f *generatorFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.count, "count", "n", 10, "Number of taxa")
	cmd.Flags().BoolVar(&f.randomizeCount, "randomize-count", false, "Draw the number of taxa in [1, count]")
	cmd.Flags().IntVar(&f.minID, "min-id", 1, "Smallest taxon identifier")
	cmd.Flags().IntVar(&f.maxID, "max-id", 10000, "Largest taxon identifier")
	cmd.Flags().StringVar(&f.topology, "topology", "random", "Topology: random, binary or taxonomy")
	cmd.Flags().BoolVar(&f.resolvePolytomies, "resolve-polytomies", false, "Make the tree strictly binary")
	cmd.Flags().Float64Var(&f.maxDistance, "max-distance", 0, "Draw branch lengths in [0, max-distance], unit lengths when 0")
	cmd.Flags().BoolVar(&f.noDistances, "no-distances", false, "Drop branch lengths")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "Random seed, the clock when 0")
	cmd.Flags().StringVar(&f.format, "format", "png", "Image format: png or svg")
	cmd.Flags().StringVar(&f.taxonomyDB, "taxonomy-db", "", "Taxonomy database, synthetic taxa when empty")
}

func (f *generatorFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	override(cmd, "count", f.count, &cfg.Generator.Count)
	override(cmd, "randomize-count", f.randomizeCount, &cfg.Generator.RandomizeCount)
	override(cmd, "min-id", f.minID, &cfg.Generator.MinID)
	override(cmd, "max-id", f.maxID, &cfg.Generator.MaxID)
	override(cmd, "topology", f.topology, &cfg.Generator.Topology)
	override(cmd, "resolve-polytomies", f.resolvePolytomies, &cfg.Generator.ResolvePolytomies)
	override(cmd, "max-distance", f.maxDistance, &cfg.Generator.MaxDistance)
	override(cmd, "no-distances", f.noDistances, &cfg.Generator.NoDistances)
	override(cmd, "seed", f.seed, &cfg.Generator.Seed)
	override(cmd, "taxonomy-db", f.taxonomyDB, &cfg.Taxonomy.Database)

	if cmd.Flags().Changed("format") {
		cfg.Render.Format = renderFormat(f.format)
	}

	if cfg.Generator.NoDistances {
		cfg.Render.ShowLengths = false
	}
}

// inferenceFlags are shared by infer and batch infer.
type inferenceFlags struct {
	backend      string
	model        string
	approach     string
	repair       bool
	allowInvalid bool
}

func (f *inferenceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.backend, "backend", "gemini", "Backend: gemini or openai")
	cmd.Flags().StringVar(&f.model, "model", "", "Model name, the backend default when empty")
	cmd.Flags().StringVar(&f.approach, "approach", "newick", "Approach: newick, taxa-only, topology-only or hierarchy")
	cmd.Flags().BoolVar(&f.repair, "repair", false, "Ask the model to repair invalid answers once")
	cmd.Flags().BoolVar(&f.allowInvalid, "allow-invalid", false, "Store invalid answers without failing")
}

func (f *inferenceFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	override(cmd, "backend", f.backend, &cfg.Inference.Backend)
	override(cmd, "model", f.model, &cfg.Inference.Model)
	override(cmd, "approach", f.approach, &cfg.Inference.Approach)
	override(cmd, "repair", f.repair, &cfg.Inference.Repair)
	override(cmd, "allow-invalid", f.allowInvalid, &cfg.Inference.AllowInvalid)
}

// compareFlags are shared by compare and batch compare.
type compareFlags struct {
	tsv                 string
	params              string
	resultsDB           string
	rooted              bool
	allowFormatMismatch bool
	pairThreshold       float64
}

func (f *compareFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.tsv, "tsv", "comparison.tsv", "Report file comparisons are appended to, disabled when empty")
	cmd.Flags().StringVar(&f.params, "params", "", "Parameter TSV appended to every report entry")
	cmd.Flags().StringVar(&f.resultsDB, "results-db", "", "Results database comparisons are stored in")
	cmd.Flags().BoolVar(&f.rooted, "rooted", false, "Compare rooted clades instead of unrooted splits")
	cmd.Flags().BoolVar(&f.allowFormatMismatch, "allow-format-mismatch", false, "Compare descriptions of different formats")
	cmd.Flags().Float64Var(&f.pairThreshold, "pair-threshold", 0.75, "Edit ratio above which taxa are paired")
}

func (f *compareFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	override(cmd, "tsv", f.tsv, &cfg.Compare.TSV)
	override(cmd, "params", f.params, &cfg.Compare.Params)
	override(cmd, "results-db", f.resultsDB, &cfg.Compare.ResultsDB)
	override(cmd, "rooted", f.rooted, &cfg.Compare.Rooted)
	override(cmd, "allow-format-mismatch", f.allowFormatMismatch, &cfg.Compare.AllowFormatMismatch)
	override(cmd, "pair-threshold", f.pairThreshold, &cfg.Compare.PairThreshold)
}
