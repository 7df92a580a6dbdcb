package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/askiada/phylobench/internal/compare"
	"github.com/askiada/phylobench/internal/results"
	"github.com/askiada/phylobench/internal/workflow"
)

var (
	compareOpts      compareFlags
	compareOriginal  string
	compareGenerated string
)

var compareCmd = &cobra.Command{
	Use:   "compare [bundle]",
	Short: "Compare the ground truth and the predicted description of a bundle",
	Long: `Compares taxa, topology and branch lengths of two Newick descriptions, either the two
descriptions of a bundle or two files given with --original and --generated. The report is
printed and appended to the TSV report file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCompare,
}

func init() {
	compareOpts.register(compareCmd)
	compareCmd.Flags().StringVar(&compareOriginal, "original", "", "Ground truth Newick file")
	compareCmd.Flags().StringVar(&compareGenerated, "generated", "", "Generated Newick file")
}

func runCompare(cmd *cobra.Command, args []string) error {
	compareOpts.apply(cmd, cfg)

	cmp, err := comparison(args)
	if err != nil {
		return err
	}

	printReport(cmd.OutOrStdout(), cmp.Report)

	params, err := readParams()
	if err != nil {
		return err
	}

	if cfg.Compare.TSV != "" {
		err = compare.AppendTSV(cfg.Compare.TSV, params, cmp.Report)
		if err != nil {
			return err
		}
	}

	return withResults(cmd.Context(), func(store *results.Store) error {
		return store.Save(cmd.Context(), cmp.Record())
	})
}

func comparison(args []string) (*workflow.Comparison, error) {
	if len(args) == 1 {
		return workflow.CompareBundle(args[0], cfg.Options())
	}

	if compareOriginal == "" || compareGenerated == "" {
		return nil, errors.New("a bundle or both --original and --generated are required")
	}

	original, err := os.ReadFile(compareOriginal)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read original")
	}

	generated, err := os.ReadFile(compareGenerated)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read generated")
	}

	rep, err := compare.Compare(strings.TrimSpace(string(original)), strings.TrimSpace(string(generated)), cfg.Options())
	if err != nil {
		return nil, err
	}

	return &workflow.Comparison{Path: compareGenerated, Report: rep}, nil
}

func readParams() (*compare.Params, error) {
	if cfg.Compare.Params == "" {
		return nil, nil
	}

	return compare.ReadParamsFile(cfg.Compare.Params)
}

// withResults calls fn with the results database when one is configured.
func withResults(ctx context.Context, fn func(store *results.Store) error) error {
	if cfg.Compare.ResultsDB == "" {
		return nil
	}

	store, err := results.Open(ctx, cfg.Compare.ResultsDB, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(store)
}

func printReport(wrt io.Writer, rep *compare.Report) {
	fmt.Fprintf(wrt, "format:            %s\n", rep.Class)
	fmt.Fprintf(wrt, "divergence:        %.4f\n", rep.Divergence())

	if rep.Taxa != nil {
		fmt.Fprintf(wrt, "taxa:              %d original, %d generated\n", rep.Taxa.OriginalCount, rep.Taxa.GeneratedCount)
		fmt.Fprintf(wrt, "correct taxa:      %.4f\n", rep.Taxa.CorrectRatio)
	}

	if rep.Topology != nil {
		fmt.Fprintf(wrt, "robinson-foulds:   %d / %d\n", rep.Topology.RF, rep.Topology.MaxRF)
		fmt.Fprintf(wrt, "correct edges:     %.4f\n", rep.Topology.CorrectEdgeRatio)
	}

	if rep.Distances != nil {
		fmt.Fprintf(wrt, "mean length diff:  %.4f\n", rep.Distances.MeanAbsDiff)
	}
}
