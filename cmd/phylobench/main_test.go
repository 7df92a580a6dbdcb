package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/phylobench/internal/bundle"
)

// execute runs the root command. Commands share global state, tests of this package are not parallel.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "phylobench.yaml"), "--log-level", "error"}, args...))

	err := rootCmd.Execute()

	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "phylobench dev\n", out)
}

func TestGenerateRenderCompare(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tree.zip")

	_, err := execute(t, "generate", "-n", "5", "--max-id", "1000", "--seed", "11", "-o", path)
	require.NoError(t, err)

	b, err := bundle.Open(path)
	require.NoError(t, err)
	truth, err := b.Truth()
	require.NoError(t, err)

	image := filepath.Join(dir, "tree.svg")
	_, err = execute(t, "render", path, "--format", "svg", "-o", image)
	require.NoError(t, err)

	data, err := os.ReadFile(image)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<svg")

	original := filepath.Join(dir, "original.nwk")
	require.NoError(t, os.WriteFile(original, []byte(truth+"\n"), 0o600))

	tsv := filepath.Join(dir, "comparison.tsv")
	out, err := execute(t, "compare", "--original", original, "--generated", original, "--tsv", tsv)
	require.NoError(t, err)
	assert.Contains(t, out, "divergence:        0.0000")

	report, err := os.ReadFile(tsv)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(report)), "\n"), 2)
}

func TestCompareRequiresInput(t *testing.T) {
	compareOriginal, compareGenerated = "", ""

	_, err := execute(t, "compare")
	assert.Error(t, err)
}

func TestBatchGenerateAndCompare(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "batch", "generate", "--bundles", "3", "-n", "4", "--max-id", "1000", "--seed", "5", "--out", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "3 bundles written")

	out, err = execute(t, "batch", "compare", dir, "--tsv", "")
	require.NoError(t, err)
	assert.Contains(t, out, "compared: 0, exact: 0, skipped: 3, invalid: 0")
}

func TestResultsWithoutDatabase(t *testing.T) {
	_, err := execute(t, "results", "summary")
	assert.ErrorIs(t, err, errNoResultsDB)
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phylobench.yaml")

	rootCmd.SetArgs([]string{"--config", path, "--log-level", "error", "config", "init"})
	require.NoError(t, rootCmd.Execute())

	_, err := os.Stat(path)
	require.NoError(t, err)

	rootCmd.SetArgs([]string{"--config", path, "--log-level", "error", "config", "check"})
	require.NoError(t, rootCmd.Execute())
}
