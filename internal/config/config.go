// Package config loads the phylobench configuration from a YAML file, .env files and the
// environment.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/askiada/phylobench/internal/compare"
	"github.com/askiada/phylobench/internal/generator"
	"github.com/askiada/phylobench/internal/inference"
	"github.com/askiada/phylobench/internal/logging"
	"github.com/askiada/phylobench/internal/render"
	"github.com/askiada/phylobench/internal/taxonomy"
)

// DefaultPath is the configuration file read when none is given.
const DefaultPath = "phylobench.yaml"

var ErrInvalid = errors.New("invalid configuration")

// Config holds all phylobench configuration.
type Config struct {
	Generator GeneratorConfig `yaml:"generator"`
	Render    render.Options  `yaml:"render"`
	Inference InferenceConfig `yaml:"inference"`
	Taxonomy  TaxonomyConfig  `yaml:"taxonomy"`
	Compare   CompareConfig   `yaml:"compare"`
	Logging   LoggingConfig   `yaml:"logging"`
	Batch     BatchConfig     `yaml:"batch"`
}

// GeneratorConfig configures tree generation.
type GeneratorConfig struct {
	Count             int     `yaml:"count"`
	RandomizeCount    bool    `yaml:"randomize_count"`
	MinID             int     `yaml:"min_id"`
	MaxID             int     `yaml:"max_id"`
	MaxAttempts       int     `yaml:"max_attempts"`
	Topology          string  `yaml:"topology"` // random, binary, taxonomy
	ResolvePolytomies bool    `yaml:"resolve_polytomies"`
	MaxDistance       float64 `yaml:"max_distance"`
	NoDistances       bool    `yaml:"no_distances"`
	MaxNameLength     int     `yaml:"max_name_length"`
	SanitizeNames     bool    `yaml:"sanitize_names"`
	// Seed of the random source. Zero seeds from the clock.
	Seed int64 `yaml:"seed"`
}

// InferenceConfig configures the AI backend.
type InferenceConfig struct {
	Backend string `yaml:"backend"` // gemini, openai
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	// Timeout bounds a single HTTP request, CallTimeout a whole model call with retries.
	Timeout           string   `yaml:"timeout"`
	CallTimeout       string   `yaml:"call_timeout"`
	Temperature       *float32 `yaml:"temperature,omitempty"`
	Approach          string   `yaml:"approach"`
	Repair            bool     `yaml:"repair"`
	AllowInvalid      bool     `yaml:"allow_invalid"`
	UnderscoreToSpace bool     `yaml:"underscore_to_space"`
}

// TaxonomyConfig selects the taxonomy source.
type TaxonomyConfig struct {
	// Database is an SQLite taxonomy built by "taxonomy import". Empty uses synthetic taxa.
	Database     string `yaml:"database"`
	SyntheticMax int    `yaml:"synthetic_max"`
}

// CompareConfig configures the comparator.
type CompareConfig struct {
	PairThreshold       float64 `yaml:"pair_threshold"`
	Rooted              bool    `yaml:"rooted"`
	AllowFormatMismatch bool    `yaml:"allow_format_mismatch"`
	// TSV is the report file comparisons are appended to. Empty disables it.
	TSV string `yaml:"tsv"`
	// Params is an optional parameter TSV whose first entry is appended to every comparison.
	Params string `yaml:"params"`
	// ResultsDB is an optional SQLite database comparisons are stored in.
	ResultsDB string `yaml:"results_db"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, console
}

// BatchConfig configures batch runs.
type BatchConfig struct {
	Workers   int    `yaml:"workers"`
	OutputDir string `yaml:"output_dir"`
	// Graph is a DOT file the batch pipeline is drawn into. Empty disables it.
	Graph string `yaml:"graph"`
	// SkipExisting leaves bundles that already hold a prediction untouched.
	SkipExisting bool `yaml:"skip_existing"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	params := generator.DefaultParams()

	return &Config{
		Generator: GeneratorConfig{
			Count:         params.Count,
			MinID:         int(params.MinID),
			MaxID:         int(params.MaxID),
			Topology:      string(params.Topology),
			MaxNameLength: params.MaxNameLength,
			SanitizeNames: params.SanitizeNames,
		},
		Render: render.DefaultOptions(),
		Inference: InferenceConfig{
			Backend:           inference.BackendGemini,
			Timeout:           "60s",
			CallTimeout:       "5m",
			Approach:          string(inference.ApproachNewick),
			UnderscoreToSpace: true,
		},
		Taxonomy: TaxonomyConfig{
			SyntheticMax: int(params.MaxID),
		},
		Compare: CompareConfig{
			PairThreshold: compare.DefaultPairThreshold,
			TSV:           "comparison.tsv",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: logging.FormatConsole,
		},
		Batch: BatchConfig{
			Workers:      4,
			OutputDir:    "bundles",
			SkipExisting: true,
		},
	}
}

// LoadEnv loads the given .env files into the environment. Missing files are skipped and variables
// already set are kept.
func LoadEnv(files ...string) error {
	for _, file := range files {
		_, err := os.Stat(file)
		if os.IsNotExist(err) {
			continue
		}

		err = godotenv.Load(file)
		if err != nil {
			return errors.Wrapf(err, "failed to load %s", file)
		}
	}

	return nil
}

// Load reads the configuration at path. A missing file gives the defaults. Environment variables
// override the file in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "failed to read config")
	}

	if err == nil {
		err = yaml.Unmarshal(data, cfg)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse config %s", path)
		}
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)

	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	err = os.WriteFile(path, data, 0o644)
	if err != nil {
		return errors.Wrap(err, "failed to write config")
	}

	return nil
}

func (c *Config) applyEnvOverrides() {
	overrides := map[string]*string{
		"PHYLOBENCH_LOG_LEVEL":   &c.Logging.Level,
		"PHYLOBENCH_LOG_FORMAT":  &c.Logging.Format,
		"PHYLOBENCH_BACKEND":     &c.Inference.Backend,
		"PHYLOBENCH_MODEL":       &c.Inference.Model,
		"PHYLOBENCH_BASE_URL":    &c.Inference.BaseURL,
		"PHYLOBENCH_API_KEY":     &c.Inference.APIKey,
		"PHYLOBENCH_TAXONOMY_DB": &c.Taxonomy.Database,
		"PHYLOBENCH_RESULTS_DB":  &c.Compare.ResultsDB,
		"PHYLOBENCH_OUTPUT_DIR":  &c.Batch.OutputDir,
	}

	for name, field := range overrides {
		if value := os.Getenv(name); value != "" {
			*field = value
		}
	}
}

// Validate checks every section of the configuration.
func (c *Config) Validate() error {
	_, err := c.Params()
	if err != nil {
		return errors.Wrap(err, "generator")
	}

	err = c.Render.Validate()
	if err != nil {
		return errors.Wrap(err, "render")
	}

	_, err = c.CallerOptions()
	if err != nil {
		return errors.Wrap(err, "inference")
	}

	if c.Compare.PairThreshold < 0 || c.Compare.PairThreshold > 1 {
		return errors.Wrapf(ErrInvalid, "compare: pair threshold %g is not in [0, 1]", c.Compare.PairThreshold)
	}

	if c.Taxonomy.Database == "" && c.Taxonomy.SyntheticMax < 1 {
		return errors.Wrap(ErrInvalid, "taxonomy: synthetic_max must be positive")
	}

	if c.Batch.Workers < 1 {
		return errors.Wrap(ErrInvalid, "batch: workers must be positive")
	}

	_, err = logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return errors.Wrap(err, "logging")
	}

	return nil
}

// Params returns the generator parameters.
func (c *Config) Params() (generator.Params, error) {
	topology, err := generator.ParseTopology(c.Generator.Topology)
	if err != nil {
		return generator.Params{}, err
	}

	params := generator.Params{
		Count:             c.Generator.Count,
		RandomizeCount:    c.Generator.RandomizeCount,
		MinID:             taxonomy.ID(c.Generator.MinID),
		MaxID:             taxonomy.ID(c.Generator.MaxID),
		MaxAttempts:       c.Generator.MaxAttempts,
		Topology:          topology,
		ResolvePolytomies: c.Generator.ResolvePolytomies,
		MaxDistance:       c.Generator.MaxDistance,
		NoDistances:       c.Generator.NoDistances,
		MaxNameLength:     c.Generator.MaxNameLength,
		SanitizeNames:     c.Generator.SanitizeNames,
	}

	return params, params.Validate()
}

// apiKeyEnv names the variable holding the key of each backend.
var apiKeyEnv = map[string]string{
	inference.BackendGemini: "GEMINI_API_KEY",
	inference.BackendOpenAI: "OPENAI_API_KEY",
}

// Settings returns the backend settings. An empty api_key falls back to the key variable of the
// backend.
func (c *Config) Settings() (inference.Settings, error) {
	timeout, err := parseDuration(c.Inference.Timeout)
	if err != nil {
		return inference.Settings{}, errors.Wrap(err, "timeout")
	}

	backend := strings.ToLower(c.Inference.Backend)
	if backend == "" {
		backend = inference.BackendGemini
	}

	key := c.Inference.APIKey
	if key == "" {
		key = os.Getenv(apiKeyEnv[backend])
	}

	return inference.Settings{
		Backend:     backend,
		Model:       c.Inference.Model,
		APIKey:      key,
		BaseURL:     c.Inference.BaseURL,
		Timeout:     timeout,
		Temperature: c.Inference.Temperature,
	}, nil
}

// CallerOptions returns the options of the inference caller.
func (c *Config) CallerOptions() ([]inference.CallerOption, error) {
	approach, err := inference.ParseApproach(c.Inference.Approach)
	if err != nil {
		return nil, err
	}

	timeout, err := parseDuration(c.Inference.CallTimeout)
	if err != nil {
		return nil, errors.Wrap(err, "call_timeout")
	}

	if timeout == 0 {
		timeout = inference.DefaultCallTimeout
	}

	backend := strings.ToLower(c.Inference.Backend)
	if backend == "" {
		backend = inference.BackendGemini
	}

	return []inference.CallerOption{
		inference.WithApproach(approach),
		inference.WithCallTimeout(timeout),
		inference.WithAllowInvalid(c.Inference.AllowInvalid),
		inference.WithRepair(c.Inference.Repair),
		inference.WithCleanOptions(inference.CleanOptions{UnderscoreToSpace: c.Inference.UnderscoreToSpace}),
		inference.WithModelInfo(backend, c.Model()),
	}, nil
}

// Model returns the configured model or the default model of the backend.
func (c *Config) Model() string {
	if c.Inference.Model != "" {
		return c.Inference.Model
	}

	if strings.EqualFold(c.Inference.Backend, inference.BackendOpenAI) {
		return inference.DefaultOpenAIModel
	}

	return inference.DefaultGeminiModel
}

// Options returns the comparison options.
func (c *Config) Options() compare.Options {
	return compare.Options{
		PairThreshold:       c.Compare.PairThreshold,
		Rooted:              c.Compare.Rooted,
		AllowFormatMismatch: c.Compare.AllowFormatMismatch,
	}
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalid, "invalid duration %q", s)
	}

	if d < 0 {
		return 0, errors.Wrapf(ErrInvalid, "negative duration %q", s)
	}

	return d, nil
}
