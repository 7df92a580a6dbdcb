// Package workflow chains the stages of the benchmark: it generates bundles, runs inference over
// them and compares their descriptions, one bundle at a time or in batches.
package workflow

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/phylobench/internal/bundle"
	"github.com/askiada/phylobench/internal/compare"
	"github.com/askiada/phylobench/internal/generator"
	"github.com/askiada/phylobench/internal/inference"
	"github.com/askiada/phylobench/internal/render"
	"github.com/askiada/phylobench/internal/results"
	"github.com/askiada/phylobench/internal/taxonomy"
	"github.com/askiada/phylobench/pkg/newick"
)

var ErrImageFormat = errors.New("bundles need a png or svg image")

// GenerateRequest describes a bundle to generate.
type GenerateRequest struct {
	Params generator.Params
	Render render.Options
	// Seed of the random source. Zero seeds from the clock.
	Seed int64
	// Output is the path of the bundle.
	Output string
}

// Generated is a bundle written by Generate.
type Generated struct {
	Path   string
	Meta   *bundle.Meta
	Result *generator.Result
}

// Generate draws a tree over the taxa of src, renders it and writes the image, the ground truth
// description and the metadata into a new bundle.
func Generate(ctx context.Context, src taxonomy.Source, req GenerateRequest, logger *zap.Logger) (*Generated, error) {
	format, err := render.ParseFormat(string(req.Render.Format))
	if err != nil {
		return nil, err
	}

	entry, err := imageEntry(format)
	if err != nil {
		return nil, err
	}

	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	gen := generator.New(src, rand.New(rand.NewSource(seed)), logger) //nolint:gosec // not used for security

	res, err := gen.Generate(ctx, req.Params)
	if err != nil {
		return nil, errors.Wrap(err, "unable to generate tree")
	}

	image, err := render.Bytes(res.Tree, req.Render)
	if err != nil {
		return nil, errors.Wrap(err, "unable to render tree")
	}

	meta := bundle.NewMeta()
	meta.Generator = generatorMeta(req, res, seed)

	b := bundle.New()
	b.Put(entry, image)
	b.SetTruth(res.Newick)

	err = b.SetMeta(meta)
	if err != nil {
		return nil, err
	}

	err = os.MkdirAll(filepath.Dir(req.Output), 0o755)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create output directory")
	}

	err = b.Save(req.Output)
	if err != nil {
		return nil, err
	}

	logger.Info("bundle generated",
		zap.String("bundle", req.Output),
		zap.String("id", meta.ID),
		zap.Int("taxa", len(res.IDs)),
		zap.Int64("seed", seed))

	return &Generated{Path: req.Output, Meta: meta, Result: res}, nil
}

func imageEntry(format render.Format) (string, error) {
	switch format {
	case render.PNG:
		return bundle.ImagePNG, nil
	case render.SVG:
		return bundle.ImageSVG, nil
	default:
		return "", errors.Wrapf(ErrImageFormat, "got %s", format)
	}
}

func generatorMeta(req GenerateRequest, res *generator.Result, seed int64) *bundle.GeneratorMeta {
	ids := make([]int, len(res.IDs))
	for i, id := range res.IDs {
		ids[i] = int(id)
	}

	return &bundle.GeneratorMeta{
		RequestedTaxa:       req.Params.Count,
		Taxa:                len(res.IDs),
		RandomizedCount:     req.Params.RandomizeCount,
		Topology:            string(req.Params.Topology),
		RandomizedDistances: req.Params.MaxDistance > 0 && !req.Params.NoDistances,
		MaxDistance:         req.Params.MaxDistance,
		NoDistances:         req.Params.NoDistances,
		Seed:                seed,
		TaxonIDs:            ids,
		Render: bundle.RenderMeta{
			Format:      string(req.Render.Format),
			Width:       req.Render.Width,
			Height:      req.Render.Height,
			ShowLabels:  req.Render.ShowLabels,
			ShowLengths: req.Render.ShowLengths,
			RightToLeft: req.Render.RightToLeft,
		},
	}
}

// Inferer runs inference over a bundle. *inference.Caller implements it.
type Inferer interface {
	Infer(ctx context.Context, path string) (*inference.Outcome, error)
}

var _ Inferer = (*inference.Caller)(nil)

// Comparison is the comparison of the descriptions of a bundle.
type Comparison struct {
	Path   string
	Meta   *bundle.Meta
	Report *compare.Report
}

// CompareBundle compares the ground truth and the predicted descriptions of the bundle at path.
func CompareBundle(path string, opts compare.Options) (*Comparison, error) {
	b, err := bundle.Open(path)
	if err != nil {
		return nil, err
	}

	truth, err := b.Truth()
	if err != nil {
		return nil, errors.Wrapf(err, "bundle %s", path)
	}

	predicted, err := b.Predicted()
	if err != nil {
		return nil, errors.Wrapf(err, "bundle %s", path)
	}

	meta, err := b.Meta()
	if err != nil {
		return nil, errors.Wrapf(err, "bundle %s", path)
	}

	rep, err := compare.Compare(truth, predicted, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "bundle %s", path)
	}

	return &Comparison{Path: path, Meta: meta, Report: rep}, nil
}

// Record returns the comparison as a results record.
func (c *Comparison) Record() *results.Record {
	rec := &results.Record{
		Bundle: filepath.Base(c.Path),
		Report: c.Report,
	}

	if c.Meta != nil && c.Meta.Inference != nil {
		rec.Backend = c.Meta.Inference.Backend
		rec.Model = c.Meta.Inference.Model
		rec.Approach = c.Meta.Inference.Approach
	}

	return rec
}

// invalidDescription reports whether err comes from a description that cannot be compared.
func invalidDescription(err error) bool {
	var syntaxErr *newick.SyntaxError

	return errors.Is(err, compare.ErrFormatMismatch) ||
		errors.Is(err, newick.ErrEmpty) ||
		errors.Is(err, newick.ErrUnbalanced) ||
		errors.Is(err, newick.ErrMissingTerminator) ||
		errors.As(err, &syntaxErr)
}
