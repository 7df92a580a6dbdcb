package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/askiada/phylobench/internal/results"
)

var errNoResultsDB = errors.New("no results database, set --results-db or compare.results_db")

var (
	resultsFilter results.Filter
	resultsDB     string
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Query the results database",
}

var resultsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored comparisons, newest first",
	Args:  cobra.NoArgs,
	RunE:  runResultsList,
}

var resultsSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Aggregate stored comparisons",
	Args:  cobra.NoArgs,
	RunE:  runResultsSummary,
}

func init() {
	resultsCmd.PersistentFlags().StringVar(&resultsDB, "results-db", "", "Results database, the configured one when empty")
	resultsCmd.PersistentFlags().StringVar(&resultsFilter.Bundle, "bundle", "", "Only comparisons of this bundle")
	resultsCmd.PersistentFlags().StringVar(&resultsFilter.Model, "model", "", "Only comparisons of this model")
	resultsListCmd.Flags().IntVar(&resultsFilter.Limit, "limit", 20, "Maximum number of comparisons, all when 0")

	resultsCmd.AddCommand(resultsListCmd)
	resultsCmd.AddCommand(resultsSummaryCmd)
}

func openResults(cmd *cobra.Command) (*results.Store, error) {
	override(cmd, "results-db", resultsDB, &cfg.Compare.ResultsDB)

	if cfg.Compare.ResultsDB == "" {
		return nil, errNoResultsDB
	}

	return results.Open(cmd.Context(), cfg.Compare.ResultsDB, logger)
}

func runResultsList(cmd *cobra.Command, _ []string) error {
	store, err := openResults(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List(cmd.Context(), resultsFilter)
	if err != nil {
		return err
	}

	wrt := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(wrt, "CREATED\tBUNDLE\tMODEL\tAPPROACH\tDIVERGENCE")

	for _, rec := range records {
		fmt.Fprintf(wrt, "%s\t%s\t%s\t%s\t%.4f\n",
			rec.CreatedAt.Local().Format(time.DateTime), rec.Bundle, rec.Model, rec.Approach, rec.Report.Divergence())
	}

	return wrt.Flush()
}

func runResultsSummary(cmd *cobra.Command, _ []string) error {
	store, err := openResults(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	sum, err := store.Summarize(cmd.Context(), resultsFilter)
	if err != nil {
		return err
	}

	wrt := cmd.OutOrStdout()
	fmt.Fprintf(wrt, "comparisons:       %d\n", sum.Count)
	fmt.Fprintf(wrt, "exact trees:       %d\n", sum.ExactTrees)
	fmt.Fprintf(wrt, "mean divergence:   %.4f\n", sum.MeanDivergence)

	if sum.WithTaxaRatio > 0 {
		fmt.Fprintf(wrt, "mean correct taxa: %.4f\n", sum.MeanCorrectTaxa)
	}

	if sum.WithTopologyRatio > 0 {
		fmt.Fprintf(wrt, "mean rf ratio:     %.4f\n", sum.MeanRFRatio)
	}

	if sum.WithLengthDiffs > 0 {
		fmt.Fprintf(wrt, "mean length diff:  %.4f\n", sum.MeanLengthDiff)
	}

	return nil
}
