package measure_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/phylobench/pkg/pipeline/measure"
)

func TestDefaultMetric(t *testing.T) {
	t.Parallel()

	msr := measure.NewDefaultMeasure()
	mt := msr.AddMetric("step", 2)
	assert.Same(t, mt, msr.AddMetric("step", 5))

	mt.AddDuration(10 * time.Millisecond)
	mt.AddDuration(30 * time.Millisecond)
	mt.AddTransportDuration("root", 4*time.Millisecond)
	mt.AddTransportDuration("root", 8*time.Millisecond)

	assert.Equal(t, int64(2), mt.Count())
	assert.Equal(t, 20*time.Millisecond, mt.AVGDuration())

	transports := mt.AVGTransportDuration()
	require.Contains(t, transports, "root")
	assert.Equal(t, 3*time.Millisecond, transports["root"].Elapsed)
	assert.Equal(t, int64(2), transports["root"].Total)

	// averages do not change the recorded values
	assert.Equal(t, 3*time.Millisecond, mt.AVGTransportDuration()["root"].Elapsed)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	msr := measure.NewDefaultMeasure()
	msr.AddMetric("idle", 1)
	msr.GetMetric("b").AddDuration(time.Second)
	msr.GetMetric("a").AddDuration(time.Second)

	sums := measure.Summarize(msr)
	require.Len(t, sums, 2)
	assert.Equal(t, "a", sums[0].Name)
	assert.Equal(t, "b", sums[1].Name)
	assert.Equal(t, time.Second, sums[0].Average)
}
