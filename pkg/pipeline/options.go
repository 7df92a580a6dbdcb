package pipeline

import "github.com/askiada/phylobench/pkg/pipeline/model"

// StepOption configures a step.
type StepOption func(info *model.StepInfo)

// StepConcurrency sets the number of goroutines running the function of a step.
func StepConcurrency(concurrent int) StepOption {
	return func(info *model.StepInfo) {
		info.Concurrent = concurrent
	}
}

// StepBufferSize sets the capacity of the output channel of a step. For a splitter it is the
// capacity of every output.
func StepBufferSize(bufferSize int) StepOption {
	return func(info *model.StepInfo) {
		info.BufferSize = bufferSize
	}
}

func newStepInfo(stepType model.StepType, name string, opts []StepOption) *model.StepInfo {
	info := &model.StepInfo{
		Type:       stepType,
		Name:       name,
		Concurrent: 1,
	}

	for _, opt := range opts {
		opt(info)
	}

	if info.Concurrent < 1 {
		info.Concurrent = 1
	}

	if info.BufferSize < 0 {
		info.BufferSize = 0
	}

	return info
}
