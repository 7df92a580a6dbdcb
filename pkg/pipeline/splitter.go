package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/phylobench/pkg/pipeline/model"
)

// Splitter duplicates every element of its input to Total output steps.
type Splitter[I any] struct {
	mu            sync.Mutex
	currIdx       int
	splittedSteps []*model.Step[I]
	Total         int
}

// Get returns the next output step. ok is false once every output has been returned.
func (s *Splitter[I]) Get() (*model.Step[I], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currIdx >= len(s.splittedSteps) {
		return nil, false
	}

	step := s.splittedSteps[s.currIdx]
	s.currIdx++

	return step, true
}

// AddSplitter adds a step sending every element of input to total outputs. An output blocks the
// others once its buffer is full.
func AddSplitter[I any](p *Pipeline, name string, input *model.Step[I], total int, opts ...StepOption) (*Splitter[I], error) {
	if p == nil {
		return nil, ErrPipelineMustBeSet
	}

	if input == nil {
		return nil, ErrInputMustBeSet
	}

	if total <= 0 {
		return nil, ErrSplitterTotal
	}

	info := newStepInfo(model.SplitterStepType, name, opts)
	if info.BufferSize == 0 {
		info.BufferSize = 1
	}

	parent := parentDetails(input)

	for _, opt := range p.opts {
		err := opt.PrepareSplitter(parent, info)
		if err != nil {
			return nil, errors.Wrap(err, "unable to run before splitter function")
		}
	}

	splitter := &Splitter[I]{
		Total:         total,
		splittedSteps: make([]*model.Step[I], total),
	}

	for i := range splitter.splittedSteps {
		splitter.splittedSteps[i] = &model.Step[I]{
			Details: info,
			Output:  make(chan I, info.BufferSize),
		}
	}

	p.spawn(name, func(ctx context.Context) error {
		for {
			startIter := time.Now()

			select {
			case <-ctx.Done():
				return ctx.Err()
			case entry, ok := <-input.Output:
				if !ok {
					return nil
				}

				startFn := time.Now()

				for _, step := range splitter.splittedSteps {
					select {
					case <-ctx.Done():
						return ctx.Err()
					case step.Output <- entry:
					}
				}

				endFn := time.Since(startFn)
				endIter := time.Since(startIter) - endFn

				for _, opt := range p.opts {
					err := opt.OnSplitterOutput(parent, info, endIter, endFn)
					if err != nil {
						return errors.Wrap(err, "unable to run on splitter output function")
					}
				}
			}
		}
	}, func() {
		for _, step := range splitter.splittedSteps {
			close(step.Output)
		}
	})

	return splitter, nil
}
