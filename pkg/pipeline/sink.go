package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/phylobench/pkg/pipeline/model"
)

// AddSink adds the final step of a branch. sinkFn is called sequentially for every element of input.
func AddSink[I any](pipe *Pipeline, name string, input *model.Step[I], sinkFn func(ctx context.Context, input I) error) error {
	if pipe == nil {
		return ErrPipelineMustBeSet
	}

	if input == nil {
		return ErrInputMustBeSet
	}

	info := newStepInfo(model.SinkStepType, name, nil)
	parent := parentDetails(input)

	for _, opt := range pipe.opts {
		err := opt.PrepareSink(parent, info)
		if err != nil {
			return errors.Wrap(err, "unable to run before sink function")
		}
	}

	pipe.spawn(name, func(ctx context.Context) error {
		err := consume(ctx, pipe, parent, info, input.Output, sinkFn)
		if err != nil {
			return err
		}

		for _, opt := range pipe.opts {
			err := opt.AfterSink(info, time.Since(pipe.startTime))
			if err != nil {
				return errors.Wrap(err, "unable to run after sink function")
			}
		}

		return nil
	}, func() {})

	return nil
}

func consume[I any](ctx context.Context, pipe *Pipeline, parent, info *model.StepInfo, input <-chan I, sinkFn func(ctx context.Context, input I) error) error {
	for {
		startInputChan := time.Now()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case in, ok := <-input:
			if !ok {
				return nil
			}

			endInputChan := time.Since(startInputChan)
			startFn := time.Now()

			err := sinkFn(ctx, in)
			if err != nil {
				return err
			}

			endFn := time.Since(startFn)

			for _, opt := range pipe.opts {
				err := opt.OnSinkOutput(parent, info, endInputChan, endFn)
				if err != nil {
					return errors.Wrap(err, "unable to run on sink output function")
				}
			}
		}
	}
}
