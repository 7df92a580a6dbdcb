package inference_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/askiada/phylobench/internal/bundle"
	"github.com/askiada/phylobench/internal/inference"
)

type scriptedClient struct {
	answers  []string
	err      error
	requests []inference.Request
}

func (c *scriptedClient) Extract(_ context.Context, req inference.Request) (string, error) {
	c.requests = append(c.requests, req)

	if c.err != nil {
		return "", c.err
	}

	answer := c.answers[0]
	if len(c.answers) > 1 {
		c.answers = c.answers[1:]
	}

	return answer, nil
}

func writeBundle(t *testing.T) string {
	t.Helper()

	b := bundle.New()
	b.Put(bundle.ImagePNG, []byte("image"))
	b.SetTruth("((A:1,B:1):1,C:2);")

	path := filepath.Join(t.TempDir(), "tree.zip")
	require.NoError(t, b.Save(path))

	return path
}

func TestInferStoresPrediction(t *testing.T) {
	t.Parallel()

	path := writeBundle(t)
	client := &scriptedClient{answers: []string{"```\n((A:1,B:1):1,C:2);\n```"}}
	caller := inference.NewCaller(client, zap.NewNop(), inference.WithModelInfo("fake", "fake-1"))

	outcome, err := caller.Infer(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, outcome.Valid)
	assert.Equal(t, "((A:1,B:1):1,C:2);", outcome.Newick)

	require.Len(t, client.requests, 1)
	assert.Equal(t, "image/png", client.requests[0].MIMEType)
	assert.Equal(t, []byte("image"), client.requests[0].Image)
	assert.Equal(t, inference.Instructions(inference.ApproachNewick), client.requests[0].Instructions)

	b, err := bundle.Open(path)
	require.NoError(t, err)

	predicted, err := b.Predicted()
	require.NoError(t, err)
	assert.Equal(t, "((A:1,B:1):1,C:2);", predicted)

	meta, err := b.Meta()
	require.NoError(t, err)
	require.NotNil(t, meta.Inference)
	assert.Equal(t, "fake-1", meta.Inference.Model)
	assert.Equal(t, "newick", meta.Inference.Approach)
	assert.True(t, meta.Inference.Valid)
}

func TestInferInvalidAnswer(t *testing.T) {
	t.Parallel()

	path := writeBundle(t)
	caller := inference.NewCaller(&scriptedClient{answers: []string{"(A,B:?"}}, zap.NewNop())

	outcome, err := caller.Infer(context.Background(), path)
	require.ErrorIs(t, err, inference.ErrInvalidNewick)
	require.NotNil(t, outcome)
	assert.False(t, outcome.Valid)

	b, err := bundle.Open(path)
	require.NoError(t, err)

	predicted, err := b.Predicted()
	require.NoError(t, err)
	assert.Equal(t, "(A,B:?);", predicted)

	allowing := inference.NewCaller(&scriptedClient{answers: []string{"(A,B:?"}}, zap.NewNop(), inference.WithAllowInvalid(true))
	outcome, err = allowing.Infer(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, outcome.Valid)
}

func TestInferRepair(t *testing.T) {
	t.Parallel()

	path := writeBundle(t)
	client := &scriptedClient{answers: []string{"(A,B:?", "(A,B);"}}
	caller := inference.NewCaller(client, zap.NewNop(), inference.WithRepair(true), inference.WithApproach(inference.ApproachTaxaOnly))

	outcome, err := caller.Infer(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, outcome.Repaired)
	assert.True(t, outcome.Valid)
	assert.Equal(t, "(A,B);", outcome.Newick)

	require.Len(t, client.requests, 2)
	assert.Contains(t, client.requests[1].Prompt, "(A,B:?);")
}

func TestInferErrors(t *testing.T) {
	t.Parallel()

	caller := inference.NewCaller(&scriptedClient{err: errors.New("boom")}, zap.NewNop())

	_, err := caller.Infer(context.Background(), writeBundle(t))
	assert.ErrorContains(t, err, "boom")

	_, err = caller.Infer(context.Background(), filepath.Join(t.TempDir(), "missing.zip"))
	assert.Error(t, err)

	empty := bundle.New()
	empty.SetTruth("(A,B);")
	path := filepath.Join(t.TempDir(), "empty.zip")
	require.NoError(t, empty.Save(path))

	_, err = caller.Infer(context.Background(), path)
	assert.ErrorIs(t, err, bundle.ErrNoImage)

	blank := inference.NewCaller(&scriptedClient{answers: []string{"```\n```"}}, zap.NewNop())
	_, err = blank.Infer(context.Background(), writeBundle(t))
	assert.ErrorIs(t, err, inference.ErrEmptyResponse)
}
