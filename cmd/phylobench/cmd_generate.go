package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/askiada/phylobench/internal/workflow"
)

var (
	generateOpts   generatorFlags
	generateOutput string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a random tree and package its image into a bundle",
	Long: `Draws distinct taxa from the taxonomy, connects them with a random topology, renders the
tree and writes the image, the ground truth Newick and the metadata into a zip bundle.

Example:
  phylobench generate -n 12 --max-distance 5 -o tree.zip`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	generateOpts.register(generateCmd)
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "tree.zip", "Bundle to write")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	generateOpts.apply(cmd, cfg)

	params, err := cfg.Params()
	if err != nil {
		return err
	}

	err = cfg.Render.Validate()
	if err != nil {
		return err
	}

	src, release, err := openSource(cmd.Context())
	if err != nil {
		return err
	}
	defer release()

	generated, err := workflow.Generate(cmd.Context(), src, workflow.GenerateRequest{
		Params: params,
		Render: cfg.Render,
		Seed:   cfg.Generator.Seed,
		Output: generateOutput,
	}, logger)
	if err != nil {
		return err
	}

	logger.Debug("ground truth", zap.String("newick", generated.Result.Newick))

	return nil
}
