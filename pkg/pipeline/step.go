package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/phylobench/pkg/pipeline/model"
)

type manyFn[I, O any] func(ctx context.Context, input I) ([]O, error)

func sequentialStep[I, O any](ctx context.Context, pipe *Pipeline, goIdx int, input *model.Step[I], output *model.Step[O], fn manyFn[I, O]) error {
	for {
		start := time.Now()

		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "go routine %d", goIdx)
		case in, ok := <-input.Output:
			if !ok {
				return nil
			}

			startFn := time.Now()

			outs, err := fn(ctx, in)
			if err != nil {
				return errors.Wrapf(err, "go routine %d", goIdx)
			}

			endFn := time.Since(startFn)

			for _, out := range outs {
				// the context is checked again so that running go routines stop feeding the pipeline
				select {
				case <-ctx.Done():
					return errors.Wrapf(ctx.Err(), "go routine %d", goIdx)
				case output.Output <- out:
				}

				for _, opt := range pipe.opts {
					err := opt.OnStepOutput(parentDetails(input), output.Details, time.Since(start)-endFn, endFn)
					if err != nil {
						return errors.Wrap(err, "unable to run on step output function")
					}
				}
			}
		}
	}
}

func runStep[I, O any](ctx context.Context, pipe *Pipeline, input *model.Step[I], output *model.Step[O], fn manyFn[I, O]) error {
	if output.Details.Concurrent == 1 {
		return sequentialStep(ctx, pipe, 0, input, output, fn)
	}

	errGrp, dCtx := errgroup.WithContext(ctx)
	errGrp.SetLimit(output.Details.Concurrent)

	// each consumer stops as soon as one of them fails
	for goIdx := 0; goIdx < output.Details.Concurrent; goIdx++ {
		errGrp.Go(func() error {
			return sequentialStep(dCtx, pipe, goIdx, input, output, fn)
		})
	}

	return errGrp.Wait()
}

func addStep[I, O any](p *Pipeline, name string, input *model.Step[I], fn manyFn[I, O], opts []StepOption) (*model.Step[O], error) {
	if p == nil {
		return nil, ErrPipelineMustBeSet
	}

	if input == nil {
		return nil, ErrInputMustBeSet
	}

	info := newStepInfo(model.NormalStepType, name, opts)
	step := &model.Step[O]{
		Details: info,
		Output:  make(chan O, info.BufferSize),
	}

	for _, opt := range p.opts {
		err := opt.PrepareStep(parentDetails(input), step.Details)
		if err != nil {
			return nil, errors.Wrap(err, "unable to run before step function")
		}
	}

	p.spawn(name, func(ctx context.Context) error {
		return runStep(ctx, p, input, step, fn)
	}, func() {
		close(step.Output)
	})

	return step, nil
}

// AddStepOneToOne adds a step producing one output per input.
func AddStepOneToOne[I, O any](p *Pipeline, name string, input *model.Step[I], oneToOneFn func(context.Context, I) (O, error), opts ...StepOption) (*model.Step[O], error) {
	return addStep(p, name, input, func(ctx context.Context, in I) ([]O, error) {
		out, err := oneToOneFn(ctx, in)
		if err != nil {
			return nil, err
		}

		return []O{out}, nil
	}, opts)
}

// AddStepOneToOneOrZero adds a step producing at most one output per input. An input is dropped
// when oneToOneFn returns ErrSkip.
func AddStepOneToOneOrZero[I, O any](p *Pipeline, name string, input *model.Step[I], oneToOneFn func(context.Context, I) (O, error), opts ...StepOption) (*model.Step[O], error) {
	return addStep(p, name, input, func(ctx context.Context, in I) ([]O, error) {
		out, err := oneToOneFn(ctx, in)
		if errors.Is(err, ErrSkip) {
			return nil, nil
		}

		if err != nil {
			return nil, err
		}

		return []O{out}, nil
	}, opts)
}

// AddStepOneToMany adds a step producing any number of outputs per input.
func AddStepOneToMany[I, O any](p *Pipeline, name string, input *model.Step[I], oneToManyFn func(context.Context, I) ([]O, error), opts ...StepOption) (*model.Step[O], error) {
	return addStep(p, name, input, oneToManyFn, opts)
}

// parentDetails returns the details of a step, with a placeholder for steps built outside the pipeline.
func parentDetails[I any](step *model.Step[I]) *model.StepInfo {
	if step.Details == nil {
		return model.StartStep.Details
	}

	return step.Details
}
