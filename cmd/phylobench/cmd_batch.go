package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/askiada/phylobench/internal/results"
	"github.com/askiada/phylobench/internal/workflow"
)

var (
	batchBundles   int
	batchWorkers   int
	batchOutputDir string
	batchPrefix    string
	batchGraph     string
	batchForce     bool

	batchGenerateOpts generatorFlags
	batchInferOpts    inferenceFlags
	batchCompareOpts  compareFlags
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run a stage over many bundles concurrently",
}

var batchGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate many bundles",
	Long: `Generates --bundles bundles into the output directory. Bundle i is seeded with seed+i so
that a batch can be reproduced.

Example:
  phylobench batch generate --bundles 100 -n 8 --workers 8 --out bundles`,
	Args: cobra.NoArgs,
	RunE: runBatchGenerate,
}

var batchInferCmd = &cobra.Command{
	Use:   "infer [dir...]",
	Short: "Run inference over every bundle of the directories",
	Long: `Runs inference over every bundle of the directories, the output directory when none is
given. Bundles that already hold a prediction are skipped unless --force is set.`,
	RunE: runBatchInfer,
}

var batchCompareCmd = &cobra.Command{
	Use:   "compare [dir...]",
	Short: "Compare every bundle of the directories",
	Long: `Compares every bundle of the directories, the output directory when none is given. Reports
are appended to the TSV report file and stored in the results database when one is set.`,
	RunE: runBatchCompare,
}

func init() {
	batchCmd.PersistentFlags().IntVar(&batchWorkers, "workers", 4, "Bundles processed concurrently")
	batchCmd.PersistentFlags().StringVar(&batchOutputDir, "out", "bundles", "Bundle directory")
	batchCmd.PersistentFlags().StringVar(&batchGraph, "graph", "", "DOT file the batch pipeline is drawn into")

	batchGenerateOpts.register(batchGenerateCmd)
	batchGenerateCmd.Flags().IntVar(&batchBundles, "bundles", 10, "Number of bundles")
	batchGenerateCmd.Flags().StringVar(&batchPrefix, "prefix", "tree", "Prefix of the bundle names")

	batchInferOpts.register(batchInferCmd)
	batchInferCmd.Flags().BoolVar(&batchForce, "force", false, "Run inference again on bundles that hold a prediction")

	batchCompareOpts.register(batchCompareCmd)

	batchCmd.AddCommand(batchGenerateCmd)
	batchCmd.AddCommand(batchInferCmd)
	batchCmd.AddCommand(batchCompareCmd)
}

func newRunner(cmd *cobra.Command) (*workflow.Runner, error) {
	override(cmd, "workers", batchWorkers, &cfg.Batch.Workers)
	override(cmd, "out", batchOutputDir, &cfg.Batch.OutputDir)
	override(cmd, "graph", batchGraph, &cfg.Batch.Graph)

	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	opts := []workflow.RunnerOption{workflow.WithWorkers(cfg.Batch.Workers)}
	if cfg.Batch.Graph != "" {
		opts = append(opts, workflow.WithGraph(cfg.Batch.Graph))
	}

	return workflow.NewRunner(logger, opts...), nil
}

func batchDirs(args []string) []string {
	if len(args) > 0 {
		return args
	}

	return []string{cfg.Batch.OutputDir}
}

func runBatchGenerate(cmd *cobra.Command, _ []string) error {
	batchGenerateOpts.apply(cmd, cfg)

	runner, err := newRunner(cmd)
	if err != nil {
		return err
	}

	params, err := cfg.Params()
	if err != nil {
		return err
	}

	src, release, err := openSource(cmd.Context())
	if err != nil {
		return err
	}
	defer release()

	generated, err := runner.BatchGenerate(cmd.Context(), src, workflow.BatchGenerateRequest{
		Count:     batchBundles,
		Params:    params,
		Render:    cfg.Render,
		Seed:      cfg.Generator.Seed,
		OutputDir: cfg.Batch.OutputDir,
		Prefix:    batchPrefix,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d bundles written to %s\n", len(generated), cfg.Batch.OutputDir)

	return nil
}

func runBatchInfer(cmd *cobra.Command, args []string) error {
	batchInferOpts.apply(cmd, cfg)

	skip := cfg.Batch.SkipExisting && !batchForce

	runner, err := newRunner(cmd)
	if err != nil {
		return err
	}

	caller, err := newCaller(cmd.Context())
	if err != nil {
		return err
	}

	summary, err := runner.BatchInfer(cmd.Context(), caller, batchDirs(args), skip)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "inferred: %d, invalid: %d, skipped: %d\n", summary.Inferred, summary.Invalid, summary.Skipped)

	return nil
}

func runBatchCompare(cmd *cobra.Command, args []string) error {
	batchCompareOpts.apply(cmd, cfg)

	runner, err := newRunner(cmd)
	if err != nil {
		return err
	}

	params, err := readParams()
	if err != nil {
		return err
	}

	out := workflow.CompareOutputs{TSV: cfg.Compare.TSV, Params: params}

	var summary *workflow.CompareSummary

	run := func(store *results.Store) error {
		out.Store = store
		summary, err = runner.BatchCompare(cmd.Context(), batchDirs(args), cfg.Options(), out)

		return err
	}

	if cfg.Compare.ResultsDB == "" {
		err = run(nil)
	} else {
		err = withResults(cmd.Context(), run)
	}

	if err != nil {
		return err
	}

	printSummary(cmd, summary)

	return nil
}

func printSummary(cmd *cobra.Command, summary *workflow.CompareSummary) {
	wrt := cmd.OutOrStdout()
	fmt.Fprintf(wrt, "compared: %d, exact: %d, skipped: %d, invalid: %d\n",
		summary.Compared, summary.Exact, summary.Skipped, summary.Invalid)
	fmt.Fprintf(wrt, "mean divergence: %.4f\n", summary.MeanDivergence)

	var correct float64

	withTaxa := 0

	for _, cmp := range summary.Comparisons {
		if cmp.Report.Taxa != nil {
			correct += cmp.Report.Taxa.CorrectRatio
			withTaxa++
		}
	}

	if withTaxa > 0 {
		fmt.Fprintf(wrt, "mean correct taxa: %.4f\n", correct/float64(withTaxa))
	}
}
