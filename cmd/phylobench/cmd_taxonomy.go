package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/askiada/phylobench/internal/taxonomy"
)

var (
	taxonomyNodes string
	taxonomyNames string
	taxonomyDB    string
)

var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Manage the taxonomy database",
}

var taxonomyImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import an NCBI taxdump into the taxonomy database",
	Long: `Imports nodes.dmp and names.dmp of an NCBI taxdump into an SQLite database. Only
scientific names are kept.

Example:
  phylobench taxonomy import --nodes nodes.dmp --names names.dmp --db taxonomy.db`,
	Args: cobra.NoArgs,
	RunE: runTaxonomyImport,
}

func init() {
	taxonomyImportCmd.Flags().StringVar(&taxonomyNodes, "nodes", "nodes.dmp", "nodes.dmp of the taxdump")
	taxonomyImportCmd.Flags().StringVar(&taxonomyNames, "names", "names.dmp", "names.dmp of the taxdump")
	taxonomyImportCmd.Flags().StringVar(&taxonomyDB, "db", "", "Database to create, the configured taxonomy database when empty")

	taxonomyCmd.AddCommand(taxonomyImportCmd)
}

func runTaxonomyImport(cmd *cobra.Command, _ []string) error {
	path := cfg.Taxonomy.Database
	override(cmd, "db", taxonomyDB, &path)

	if path == "" {
		return errors.New("a taxonomy database is required, set --db or taxonomy.database")
	}

	nodes, err := os.Open(taxonomyNodes)
	if err != nil {
		return errors.Wrap(err, "unable to open nodes")
	}
	defer nodes.Close()

	names, err := os.Open(taxonomyNames)
	if err != nil {
		return errors.Wrap(err, "unable to open names")
	}
	defer names.Close()

	db, err := taxonomy.OpenSQLite(cmd.Context(), path, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	count, err := db.Import(cmd.Context(), nodes, names)
	if err != nil {
		return err
	}

	logger.Info("taxonomy database ready", zap.String("path", path), zap.Int("taxa", count))

	return nil
}
