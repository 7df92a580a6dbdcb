package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
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
	"github.com/askiada/phylobench/pkg/pipeline"
	"github.com/askiada/phylobench/pkg/pipeline/drawer"
	"github.com/askiada/phylobench/pkg/pipeline/measure"
	"github.com/askiada/phylobench/pkg/pipeline/model"
)

// Runner runs the stages over many bundles through a pipeline.
type Runner struct {
	logger  *zap.Logger
	workers int
	graph   string
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithWorkers sets the number of bundles processed concurrently by the slow steps.
func WithWorkers(workers int) RunnerOption {
	return func(r *Runner) {
		r.workers = workers
	}
}

// WithGraph draws every batch pipeline into the DOT file at path.
func WithGraph(path string) RunnerOption {
	return func(r *Runner) {
		r.graph = path
	}
}

// NewRunner creates a batch runner.
func NewRunner(logger *zap.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{logger: logger, workers: 1}

	for _, opt := range opts {
		opt(r)
	}

	if r.workers < 1 {
		r.workers = 1
	}

	return r
}

func (r *Runner) newPipeline(ctx context.Context) (*pipeline.Pipeline, measure.Measure, error) {
	msr := measure.NewDefaultMeasure()
	opts := []model.PipelineOption{measure.PipelineMeasure(msr)}

	if r.graph != "" {
		opts = append(opts, drawer.PipelineDrawer(drawer.NewDOTDrawer(r.graph), msr))
	}

	pipe, err := pipeline.New(ctx, opts...)
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to create pipeline")
	}

	return pipe, msr, nil
}

func (r *Runner) run(pipe *pipeline.Pipeline, msr measure.Measure) error {
	err := pipe.Run()

	measure.Log(r.logger, msr)

	return err
}

// BatchGenerateRequest describes a batch of bundles to generate.
type BatchGenerateRequest struct {
	// Count is the number of bundles.
	Count  int
	Params generator.Params
	Render render.Options
	// Seed of the first bundle, bundle i is seeded with Seed+i. Zero seeds from the clock.
	Seed      int64
	OutputDir string
	// Prefix of the bundle names, "tree" when empty.
	Prefix string
}

// BatchGenerate writes req.Count bundles into req.OutputDir. The returned bundles are sorted by path.
func (r *Runner) BatchGenerate(ctx context.Context, src taxonomy.Source, req BatchGenerateRequest) ([]*Generated, error) {
	if req.Count < 1 {
		return nil, errors.New("at least one bundle is required")
	}

	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	prefix := req.Prefix
	if prefix == "" {
		prefix = "tree"
	}

	pipe, msr, err := r.newPipeline(ctx)
	if err != nil {
		return nil, err
	}

	indexes, err := pipeline.AddRootStep(pipe, "index", func(ctx context.Context, rootChan chan<- int) error {
		for i := 0; i < req.Count; i++ {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case rootChan <- i:
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	generated, err := pipeline.AddStepOneToOne(pipe, "generate", indexes, func(ctx context.Context, i int) (*Generated, error) {
		return Generate(ctx, src, GenerateRequest{
			Params: req.Params,
			Render: req.Render,
			Seed:   seed + int64(i),
			Output: filepath.Join(req.OutputDir, fmt.Sprintf("%s_%04d.zip", prefix, i+1)),
		}, r.logger)
	}, pipeline.StepConcurrency(r.workers))
	if err != nil {
		return nil, err
	}

	var res []*Generated

	err = pipeline.AddSink(pipe, "collect", generated, func(_ context.Context, g *Generated) error {
		res = append(res, g)

		return nil
	})
	if err != nil {
		return nil, err
	}

	err = r.run(pipe, msr)
	if err != nil {
		return nil, err
	}

	sort.Slice(res, func(i, j int) bool {
		return res[i].Path < res[j].Path
	})

	r.logger.Info("batch generated", zap.Int("bundles", len(res)), zap.String("dir", req.OutputDir))

	return res, nil
}

// InferSummary counts the bundles of a batch inference.
type InferSummary struct {
	Inferred int
	// Invalid bundles hold an answer that is not a valid newick.
	Invalid int
	// Skipped bundles already had a prediction.
	Skipped int
}

type inferred struct {
	path    string
	outcome *inference.Outcome
	valid   bool
}

// BatchInfer runs inference over every bundle of dirs. Invalid answers are stored and counted
// without stopping the batch; any other error does. With skipExisting, bundles that already hold a
// prediction are left untouched.
func (r *Runner) BatchInfer(ctx context.Context, inferer Inferer, dirs []string, skipExisting bool) (*InferSummary, error) {
	pipe, msr, err := r.newPipeline(ctx)
	if err != nil {
		return nil, err
	}

	root, err := pipeline.AddRootSlice(pipe, "dirs", dirs)
	if err != nil {
		return nil, err
	}

	paths, err := pipeline.AddStepOneToMany(pipe, "list", root, func(_ context.Context, dir string) ([]string, error) {
		return ListBundles(dir)
	})
	if err != nil {
		return nil, err
	}

	summary := &InferSummary{}
	var mu sync.Mutex

	pending, err := pipeline.AddStepOneToOneOrZero(pipe, "filter", paths, func(_ context.Context, path string) (string, error) {
		if !skipExisting {
			return path, nil
		}

		b, err := bundle.Open(path)
		if err != nil {
			return "", err
		}

		if !b.Has(bundle.PredictedFile) {
			return path, nil
		}

		r.logger.Debug("bundle already has a prediction", zap.String("bundle", path))

		mu.Lock()
		summary.Skipped++
		mu.Unlock()

		return "", pipeline.ErrSkip
	})
	if err != nil {
		return nil, err
	}

	done, err := pipeline.AddStepOneToOne(pipe, "infer", pending, func(ctx context.Context, path string) (*inferred, error) {
		outcome, err := inferer.Infer(ctx, path)
		if errors.Is(err, inference.ErrInvalidNewick) {
			r.logger.Warn("invalid answer stored", zap.String("bundle", path), zap.Error(err))

			return &inferred{path: path, outcome: outcome}, nil
		}

		if err != nil {
			return nil, err
		}

		return &inferred{path: path, outcome: outcome, valid: outcome.Valid}, nil
	}, pipeline.StepConcurrency(r.workers))
	if err != nil {
		return nil, err
	}

	err = pipeline.AddSink(pipe, "count", done, func(_ context.Context, in *inferred) error {
		mu.Lock()
		defer mu.Unlock()

		summary.Inferred++
		if !in.valid {
			summary.Invalid++
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	err = r.run(pipe, msr)
	if err != nil {
		return nil, err
	}

	r.logger.Info("batch inferred",
		zap.Int("inferred", summary.Inferred),
		zap.Int("invalid", summary.Invalid),
		zap.Int("skipped", summary.Skipped))

	return summary, nil
}

// CompareOutputs are the destinations of batch comparisons. Zero fields are disabled.
type CompareOutputs struct {
	// TSV is the report file comparisons are appended to.
	TSV string
	// Params are appended to every TSV entry.
	Params *compare.Params
	Store  *results.Store
}

// CompareSummary aggregates a batch comparison.
type CompareSummary struct {
	Compared int
	// Skipped bundles have no prediction yet.
	Skipped int
	// Invalid bundles have a prediction that cannot be compared to the truth.
	Invalid        int
	Exact          int
	MeanDivergence float64
	// Comparisons are sorted by path.
	Comparisons []*Comparison
}

// BatchCompare compares every bundle of dirs and writes the reports to out.
func (r *Runner) BatchCompare(ctx context.Context, dirs []string, opts compare.Options, out CompareOutputs) (*CompareSummary, error) {
	if len(dirs) == 0 {
		return nil, errors.New("at least one directory is required")
	}

	pipe, msr, err := r.newPipeline(ctx)
	if err != nil {
		return nil, err
	}

	roots := make([]*model.Step[string], 0, len(dirs))

	for i, dir := range dirs {
		root, err := pipeline.AddRootStep(pipe, fmt.Sprintf("list %d", i+1), func(ctx context.Context, rootChan chan<- string) error {
			paths, err := ListBundles(dir)
			if err != nil {
				return err
			}

			for _, path := range paths {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case rootChan <- path:
				}
			}

			return nil
		})
		if err != nil {
			return nil, err
		}

		roots = append(roots, root)
	}

	paths := roots[0]
	if len(roots) > 1 {
		paths, err = pipeline.AddMerger(pipe, "merge", roots...)
		if err != nil {
			return nil, err
		}
	}

	summary := &CompareSummary{}
	var mu sync.Mutex

	comparisons, err := pipeline.AddStepOneToOneOrZero(pipe, "compare", paths, func(_ context.Context, path string) (*Comparison, error) {
		cmp, err := CompareBundle(path, opts)
		if err == nil {
			return cmp, nil
		}

		switch {
		case errors.Is(err, bundle.ErrEntryNotFound):
			r.logger.Debug("bundle skipped", zap.String("bundle", path), zap.Error(err))

			mu.Lock()
			summary.Skipped++
			mu.Unlock()

			return nil, pipeline.ErrSkip
		case invalidDescription(err):
			r.logger.Warn("bundle cannot be compared", zap.String("bundle", path), zap.Error(err))

			mu.Lock()
			summary.Invalid++
			mu.Unlock()

			return nil, pipeline.ErrSkip
		default:
			return nil, err
		}
	}, pipeline.StepConcurrency(r.workers))
	if err != nil {
		return nil, err
	}

	collect := func(cmp *Comparison) {
		mu.Lock()
		defer mu.Unlock()

		summary.Comparisons = append(summary.Comparisons, cmp)
	}

	sinks := []func(ctx context.Context, cmp *Comparison) error{}

	if out.TSV != "" {
		sinks = append(sinks, func(_ context.Context, cmp *Comparison) error {
			return compare.AppendTSV(out.TSV, out.Params, cmp.Report)
		})
	}

	if out.Store != nil {
		sinks = append(sinks, func(ctx context.Context, cmp *Comparison) error {
			return out.Store.Save(ctx, cmp.Record())
		})
	}

	if len(sinks) == 0 {
		sinks = append(sinks, func(context.Context, *Comparison) error { return nil })
	}

	// the first sink also collects the comparisons
	first := sinks[0]
	sinks[0] = func(ctx context.Context, cmp *Comparison) error {
		collect(cmp)

		return first(ctx, cmp)
	}

	err = addSinks(pipe, comparisons, sinks)
	if err != nil {
		return nil, err
	}

	err = r.run(pipe, msr)
	if err != nil {
		return nil, err
	}

	summarize(summary)

	r.logger.Info("batch compared",
		zap.Int("compared", summary.Compared),
		zap.Int("exact", summary.Exact),
		zap.Int("skipped", summary.Skipped),
		zap.Int("invalid", summary.Invalid),
		zap.Float64("mean_divergence", summary.MeanDivergence))

	return summary, nil
}

// addSinks plugs every sink on input, through a splitter when there is more than one.
func addSinks[I any](pipe *pipeline.Pipeline, input *model.Step[I], sinks []func(context.Context, I) error) error {
	if len(sinks) == 1 {
		return pipeline.AddSink(pipe, "write", input, sinks[0])
	}

	splitter, err := pipeline.AddSplitter(pipe, "split", input, len(sinks))
	if err != nil {
		return err
	}

	for i, sink := range sinks {
		step, ok := splitter.Get()
		if !ok {
			return errors.Errorf("splitter has no output %d", i)
		}

		err = pipeline.AddSink(pipe, fmt.Sprintf("write %d", i+1), step, sink)
		if err != nil {
			return err
		}
	}

	return nil
}

func summarize(summary *CompareSummary) {
	sort.Slice(summary.Comparisons, func(i, j int) bool {
		return summary.Comparisons[i].Path < summary.Comparisons[j].Path
	})

	total := 0.0

	for _, cmp := range summary.Comparisons {
		divergence := cmp.Report.Divergence()
		if divergence == 0 {
			summary.Exact++
		}

		total += divergence
	}

	summary.Compared = len(summary.Comparisons)
	if summary.Compared > 0 {
		summary.MeanDivergence = total / float64(summary.Compared)
	}
}

// ListBundles returns the paths of the bundles of dir, sorted by name.
func ListBundles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to list bundles of %s", dir)
	}

	var paths []string

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), ".zip") {
			continue
		}

		paths = append(paths, filepath.Join(dir, name))
	}

	return paths, nil
}
