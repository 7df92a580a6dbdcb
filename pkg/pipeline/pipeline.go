package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/phylobench/pkg/pipeline/model"
)

// Pipeline is a pipeline of steps. Steps are registered with the Add functions and start when Run
// is called.
type Pipeline struct {
	ctx       context.Context
	cancel    context.CancelFunc
	errcList  *errorChans
	opts      []model.PipelineOption
	startTime time.Time
	goFn      []func(ctx context.Context)
	ran       bool
}

// New creates a new pipeline. Cancelling ctx stops every step.
func New(ctx context.Context, opts ...model.PipelineOption) (*Pipeline, error) {
	dCtx, cancel := context.WithCancel(ctx)

	pipe := &Pipeline{
		ctx:       dCtx,
		cancel:    cancel,
		errcList:  &errorChans{},
		startTime: time.Now(),
		opts:      opts,
	}

	for _, opt := range opts {
		err := opt.New()
		if err != nil {
			cancel()

			return nil, errors.Wrap(err, "unable to apply pipeline option")
		}
	}

	return pipe, nil
}

// spawn registers fn to run as a step named name once the pipeline runs. done runs after fn returns,
// before the error channel of the step is closed.
func (p *Pipeline) spawn(name string, fn func(ctx context.Context) error, done func()) {
	errC := make(chan error, 1)
	p.errcList.add(newErrorChan(name, errC))

	p.goFn = append(p.goFn, func(ctx context.Context) {
		defer close(errC)
		defer done()

		err := fn(ctx)
		if err != nil {
			errC <- err
		}
	})
}

// waitForPipeline waits for all error channels to be closed. The first error cancels the pipeline
// and is returned once every step has stopped.
func waitForPipeline(cancel context.CancelFunc, errs ...*errorChan) error {
	var first error

	for err := range mergeErrors(errs...) {
		if err != nil && first == nil {
			first = err

			cancel()
		}
	}

	return first
}

// Run starts the pipeline and waits for every step to finish. It returns the first error of a step.
// A pipeline runs only once.
func (p *Pipeline) Run() error {
	if p.ran {
		return ErrAlreadyRun
	}

	p.ran = true
	p.startTime = time.Now()

	defer p.cancel()

	for _, fn := range p.goFn {
		go fn(p.ctx)
	}

	err := waitForPipeline(p.cancel, p.errcList.list...)
	if err != nil {
		return err
	}

	return p.finishRun()
}

func (p *Pipeline) finishRun() error {
	for _, opt := range p.opts {
		err := opt.Finish()
		if err != nil {
			return errors.Wrap(err, "unable to finish pipeline option")
		}
	}

	return nil
}
