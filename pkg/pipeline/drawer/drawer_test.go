package drawer_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/phylobench/pkg/pipeline/drawer"
	"github.com/askiada/phylobench/pkg/pipeline/measure"
)

func TestDOTDrawer(t *testing.T) {
	t.Parallel()

	d := drawer.NewDOTDrawer("unused.gv")
	require.NoError(t, d.AddStep("root"))
	require.NoError(t, d.AddStep("root"))
	require.NoError(t, d.AddStep("sink"))
	require.NoError(t, d.AddLink("root", "sink"))
	require.NoError(t, d.AddLink("root", "sink"))
	assert.Error(t, d.AddLink("root", "missing"))

	msr := measure.NewDefaultMeasure()
	require.NoError(t, d.AddMeasure(msr))

	msr.GetMetric("sink").AddDuration(time.Millisecond)
	msr.GetMetric("sink").AddTransportDuration("root", 2*time.Millisecond)
	require.NoError(t, d.AddMeasure(msr))

	var sb strings.Builder
	require.NoError(t, d.Write(&sb))

	out := sb.String()
	assert.Contains(t, out, `"root" -> "sink"`)
	assert.Contains(t, out, `label="2ms"`)
	assert.Regexp(t, `color="#[0-9a-fA-F]{6}"`, out)
	assert.Contains(t, out, "<sink <BR />")
}
