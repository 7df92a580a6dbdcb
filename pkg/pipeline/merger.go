package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/phylobench/pkg/pipeline/model"
)

func runStepMerger[I any](ctx context.Context, pipe *Pipeline, step, outputStep *model.Step[I]) error {
	parent := parentDetails(step)

	for {
		startIter := time.Now()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry, ok := <-step.Output:
			if !ok {
				return nil
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case outputStep.Output <- entry:
			}

			endIter := time.Since(startIter)

			for _, opt := range pipe.opts {
				err := opt.OnMergerOutput(parent, outputStep.Details, endIter)
				if err != nil {
					return errors.Wrap(err, "unable to run on merger output function")
				}
			}
		}
	}
}

// AddMerger adds a merger step to the pipeline. It merges the outputs of steps into a single channel,
// in no particular order.
func AddMerger[I any](pipe *Pipeline, name string, steps ...*model.Step[I]) (*model.Step[I], error) {
	if pipe == nil {
		return nil, ErrPipelineMustBeSet
	}

	if len(steps) == 0 {
		return nil, ErrMergerInputs
	}

	parents := make([]*model.StepInfo, len(steps))

	for i, step := range steps {
		if step == nil {
			return nil, ErrInputMustBeSet
		}

		parents[i] = parentDetails(step)
	}

	outputStep := &model.Step[I]{
		Details: newStepInfo(model.MergerStepType, name, nil),
		Output:  make(chan I),
	}

	for _, opt := range pipe.opts {
		err := opt.PrepareMerger(parents, outputStep.Details)
		if err != nil {
			return nil, errors.Wrap(err, "unable to run before merger function")
		}
	}

	pipe.spawn(name, func(ctx context.Context) error {
		errGrp, dCtx := errgroup.WithContext(ctx)

		for _, step := range steps {
			errGrp.Go(func() error {
				return runStepMerger(dCtx, pipe, step, outputStep)
			})
		}

		return errGrp.Wait()
	}, func() {
		close(outputStep.Output)
	})

	return outputStep, nil
}
