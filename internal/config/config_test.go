package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/phylobench/internal/config"
	"github.com/askiada/phylobench/internal/generator"
	"github.com/askiada/phylobench/internal/inference"
)

func TestDefaultConfigIsValid(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	require.NoError(t, cfg.Validate())

	params, err := cfg.Params()
	require.NoError(t, err)
	assert.Equal(t, generator.DefaultParams(), params)
	assert.Equal(t, inference.DefaultGeminiModel, cfg.Model())
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Generator, cfg.Generator)
}

func TestSaveAndLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "phylobench.yaml")
	cfg := config.DefaultConfig()
	cfg.Generator.Count = 25
	cfg.Generator.Topology = "binary"
	cfg.Inference.Backend = inference.BackendOpenAI
	cfg.Compare.Rooted = true

	require.NoError(t, cfg.Save(path))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 25, loaded.Generator.Count)
	assert.Equal(t, "binary", loaded.Generator.Topology)
	assert.True(t, loaded.Compare.Rooted)
	assert.Equal(t, inference.DefaultOpenAIModel, loaded.Model())
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "phylobench.yaml")
	require.NoError(t, os.WriteFile(path, []byte("generator:\n  count: 7\n"), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Generator.Count)
	assert.Equal(t, config.DefaultConfig().Render, cfg.Render)
	assert.Equal(t, 4, cfg.Batch.Workers)
}

func TestLoadInvalidYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "phylobench.yaml")
	require.NoError(t, os.WriteFile(path, []byte("generator: [\n"), 0o600))

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PHYLOBENCH_MODEL", "custom-model")
	t.Setenv("PHYLOBENCH_LOG_LEVEL", "debug")
	t.Setenv("PHYLOBENCH_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "secret")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "custom-model", cfg.Model())
	assert.Equal(t, "debug", cfg.Logging.Level)

	settings, err := cfg.Settings()
	require.NoError(t, err)
	assert.Equal(t, "secret", settings.APIKey)
	assert.Equal(t, inference.BackendGemini, settings.Backend)
	assert.Equal(t, time.Minute, settings.Timeout)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("PHYLOBENCH_TEST_VALUE=from-file\n"), 0o600))

	t.Setenv("PHYLOBENCH_TEST_VALUE", "")
	require.NoError(t, os.Unsetenv("PHYLOBENCH_TEST_VALUE"))

	require.NoError(t, config.LoadEnv(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "from-file", os.Getenv("PHYLOBENCH_TEST_VALUE"))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*config.Config)
	}{
		{"bad topology", func(c *config.Config) { c.Generator.Topology = "star" }},
		{"zero taxa", func(c *config.Config) { c.Generator.Count = 0 }},
		{"bad approach", func(c *config.Config) { c.Inference.Approach = "guess" }},
		{"bad call timeout", func(c *config.Config) { c.Inference.CallTimeout = "soon" }},
		{"bad threshold", func(c *config.Config) { c.Compare.PairThreshold = 2 }},
		{"no workers", func(c *config.Config) { c.Batch.Workers = 0 }},
		{"bad level", func(c *config.Config) { c.Logging.Level = "loud" }},
		{"bad render format", func(c *config.Config) { c.Render.Format = "gif" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.DefaultConfig()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestCallerOptions(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Inference.Approach = "hierarchy"
	opts, err := cfg.CallerOptions()
	require.NoError(t, err)
	assert.Len(t, opts, 6)

	cmp := cfg.Options()
	assert.InDelta(t, 0.75, cmp.PairThreshold, 1e-12)
}
