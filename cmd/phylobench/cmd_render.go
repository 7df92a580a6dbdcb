package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/askiada/phylobench/internal/bundle"
	"github.com/askiada/phylobench/internal/render"
	"github.com/askiada/phylobench/pkg/newick"
)

var (
	renderOutput      string
	renderFormatName  string
	renderWidth       int
	renderHeight      int
	renderNoLabels    bool
	renderNoLengths   bool
	renderRightToLeft bool
	renderPredicted   bool
)

var renderCmd = &cobra.Command{
	Use:   "render [newick file | bundle]",
	Short: "Render a Newick description as an image",
	Long: `Renders a Newick file, or the ground truth of a bundle, as a PNG, SVG or DOT image.

Example:
  phylobench render tree.zip --predicted --format svg -o predicted.svg`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "Image to write, the input name with the format extension when empty")
	renderCmd.Flags().StringVar(&renderFormatName, "format", "png", "Image format: png, svg or dot")
	renderCmd.Flags().IntVar(&renderWidth, "width", 0, "Image width, computed from the tree when 0")
	renderCmd.Flags().IntVar(&renderHeight, "height", 0, "Image height, computed from the tree when 0")
	renderCmd.Flags().BoolVar(&renderNoLabels, "no-labels", false, "Do not draw taxon names")
	renderCmd.Flags().BoolVar(&renderNoLengths, "no-lengths", false, "Do not draw branch lengths")
	renderCmd.Flags().BoolVar(&renderRightToLeft, "right-to-left", false, "Put the root on the right side")
	renderCmd.Flags().BoolVar(&renderPredicted, "predicted", false, "Render the predicted description of a bundle")
}

func renderFormat(name string) render.Format {
	return render.Format(strings.ToLower(strings.TrimSpace(name)))
}

func runRender(cmd *cobra.Command, args []string) error {
	opts := cfg.Render
	override(cmd, "format", renderFormat(renderFormatName), &opts.Format)
	override(cmd, "width", renderWidth, &opts.Width)
	override(cmd, "height", renderHeight, &opts.Height)
	override(cmd, "right-to-left", renderRightToLeft, &opts.RightToLeft)

	if renderNoLabels {
		opts.ShowLabels = false
	}

	if renderNoLengths {
		opts.ShowLengths = false
	}

	text, err := readDescription(args[0])
	if err != nil {
		return err
	}

	root, err := newick.Parse(text)
	if err != nil {
		return errors.Wrapf(err, "unable to parse %s", args[0])
	}

	data, err := render.Bytes(root, opts)
	if err != nil {
		return err
	}

	output := renderOutput
	if output == "" {
		format, _ := render.ParseFormat(string(opts.Format))
		output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + format.Extension()
	}

	err = os.WriteFile(output, data, 0o644)
	if err != nil {
		return errors.Wrap(err, "unable to write image")
	}

	logger.Info("tree rendered", zap.String("output", output), zap.Int("bytes", len(data)))

	return nil
}

// readDescription returns the Newick text of a file, or of a bundle when path is a zip archive.
func readDescription(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		b, err := bundle.Open(path)
		if err != nil {
			return "", err
		}

		if renderPredicted {
			return b.Predicted()
		}

		return b.Truth()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "unable to read %s", path)
	}

	return strings.TrimSpace(string(data)), nil
}
