package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/askiada/phylobench/internal/inference"
)

var inferOpts inferenceFlags

var inferCmd = &cobra.Command{
	Use:   "infer [bundle]",
	Short: "Ask a model to describe the image of a bundle",
	Long: `Sends the image of the bundle to the configured backend and stores the cleaned Newick
answer into the bundle as predicted.nwk.

The api key is read from the configuration, PHYLOBENCH_API_KEY, or GEMINI_API_KEY and
OPENAI_API_KEY depending on the backend.`,
	Args: cobra.ExactArgs(1),
	RunE: runInfer,
}

func init() {
	inferOpts.register(inferCmd)
}

func runInfer(cmd *cobra.Command, args []string) error {
	inferOpts.apply(cmd, cfg)

	caller, err := newCaller(cmd.Context())
	if err != nil {
		return err
	}

	outcome, err := caller.Infer(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), outcome.Newick)

	return nil
}

func newCaller(ctx context.Context) (*inference.Caller, error) {
	settings, err := cfg.Settings()
	if err != nil {
		return nil, err
	}

	opts, err := cfg.CallerOptions()
	if err != nil {
		return nil, err
	}

	client, err := inference.NewClient(ctx, settings)
	if err != nil {
		return nil, err
	}

	return inference.NewCaller(client, logger, opts...), nil
}
