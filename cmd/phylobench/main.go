package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/askiada/phylobench/internal/config"
	"github.com/askiada/phylobench/internal/logging"
	"github.com/askiada/phylobench/internal/taxonomy"
)

var (
	// Global flags
	configPath string
	logLevel   string
	verbose    bool

	cfg    *config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "phylobench",
	Short: "Benchmark multimodal models on phylogenetic tree images",
	Long: `phylobench generates random phylogenetic trees, renders them into image bundles,
asks a multimodal model to describe every image in Newick and compares the answer with
the ground truth.

Stages run independently: generate, infer, compare. The batch commands run a stage over
a whole directory of bundles.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		err := config.LoadEnv(".env")
		if err != nil {
			return err
		}

		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		level := cfg.Logging.Level
		if logLevel != "" {
			level = logLevel
		}

		if verbose {
			level = "debug"
		}

		cfg.Logging.Level = level

		logger, err = logging.New(level, cfg.Logging.Format)
		if err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}

		logger.Debug("configuration loaded", zap.String("path", configPath), zap.String("command", cmd.CommandPath()))

		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(inferCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(taxonomyCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if l, err := logging.New("", logging.FormatConsole); err == nil {
		logger = l
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		logger.Error("command failed", zap.Error(err))
		_ = logger.Sync()
		stop()
		os.Exit(1) //nolint:gocritic // stop is called above
	}
}

// openSource opens the configured taxonomy. The returned function releases it.
func openSource(ctx context.Context) (taxonomy.Source, func(), error) {
	if cfg.Taxonomy.Database == "" {
		return taxonomy.Synthetic{Max: taxonomy.ID(cfg.Taxonomy.SyntheticMax)}, func() {}, nil
	}

	db, err := taxonomy.OpenSQLite(ctx, cfg.Taxonomy.Database, logger)
	if err != nil {
		return nil, nil, err
	}

	count, err := db.Count(ctx)
	if err != nil {
		db.Close()

		return nil, nil, err
	}

	if count == 0 {
		db.Close()

		return nil, nil, errors.Errorf("taxonomy database %s is empty, run \"phylobench taxonomy import\" first", cfg.Taxonomy.Database)
	}

	return db, func() { db.Close() }, nil
}
