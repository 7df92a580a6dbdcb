package pipeline

import (
	"context"

	"github.com/pkg/errors"

	"github.com/askiada/phylobench/pkg/pipeline/model"
)

// AddRootStep adds a step that produces the elements of the pipeline. stepFn pushes them to rootChan
// and must stop when ctx is done. rootChan is closed once stepFn returns.
func AddRootStep[O any](p *Pipeline, name string, stepFn func(ctx context.Context, rootChan chan<- O) error, opts ...StepOption) (*model.Step[O], error) {
	if p == nil {
		return nil, ErrPipelineMustBeSet
	}

	info := newStepInfo(model.RootStepType, name, opts)
	step := &model.Step[O]{
		Details: info,
		Output:  make(chan O, info.BufferSize),
	}

	for _, opt := range p.opts {
		err := opt.PrepareStep(model.StartStep.Details, step.Details)
		if err != nil {
			return nil, errors.Wrap(err, "unable to run before step function")
		}
	}

	p.spawn(name, func(ctx context.Context) error {
		return stepFn(ctx, step.Output)
	}, func() {
		close(step.Output)
	})

	return step, nil
}

// AddRootSlice adds a root step that pushes the elements of values in order.
func AddRootSlice[O any](p *Pipeline, name string, values []O, opts ...StepOption) (*model.Step[O], error) {
	return AddRootStep(p, name, func(ctx context.Context, rootChan chan<- O) error {
		for _, value := range values {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case rootChan <- value:
			}
		}

		return nil
	}, opts...)
}
