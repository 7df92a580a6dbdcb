// Package results keeps comparison reports in an SQLite database so that batches can be
// aggregated after the fact.
package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/phylobench/internal/compare"

	// registers the pure Go "sqlite" driver
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS comparisons (
	id                 TEXT PRIMARY KEY,
	bundle             TEXT NOT NULL,
	created_at         DATETIME NOT NULL,
	backend            TEXT NOT NULL DEFAULT '',
	model              TEXT NOT NULL DEFAULT '',
	approach           TEXT NOT NULL DEFAULT '',
	class              TEXT NOT NULL,
	divergence         REAL NOT NULL,
	rf_ratio           REAL,
	correct_taxa_ratio REAL,
	mean_length_diff   REAL,
	report_json        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_comparisons_bundle ON comparisons(bundle);
CREATE INDEX IF NOT EXISTS idx_comparisons_model ON comparisons(model);
`

// Record is a stored comparison.
type Record struct {
	ID        string
	Bundle    string
	CreatedAt time.Time
	Backend   string
	Model     string
	Approach  string
	Report    *compare.Report
}

// Filter selects records. Zero fields match everything.
type Filter struct {
	Bundle string
	Model  string
	Limit  int
}

// Summary aggregates the stored records.
type Summary struct {
	Count             int
	MeanDivergence    float64
	MeanRFRatio       float64
	MeanCorrectTaxa   float64
	ExactTrees        int
	MeanLengthDiff    float64
	WithLengthDiffs   int
	WithTaxaRatio     int
	WithTopologyRatio int
}

// Store is an SQLite store of comparison reports.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens or creates the results database at path.
func Open(ctx context.Context, path string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open results database %s", path)
	}

	db.SetMaxOpenConns(1)

	_, err = db.ExecContext(ctx, schema)
	if err != nil {
		db.Close()

		return nil, errors.Wrap(err, "unable to create results schema")
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores rec. An empty ID is replaced by a new one and a zero CreatedAt by the current time;
// both are written back into rec.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	if rec.Report == nil {
		return errors.New("record has no report")
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(rec.Report)
	if err != nil {
		return errors.Wrap(err, "unable to encode report")
	}

	var rfRatio, taxaRatio, lengthDiff sql.NullFloat64

	if rec.Report.Topology != nil {
		rfRatio = sql.NullFloat64{Float64: rec.Report.Topology.RFRatio, Valid: true}
	}

	if rec.Report.Taxa != nil {
		taxaRatio = sql.NullFloat64{Float64: rec.Report.Taxa.CorrectRatio, Valid: true}
	}

	if rec.Report.Distances != nil {
		lengthDiff = sql.NullFloat64{Float64: rec.Report.Distances.MeanAbsDiff, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO comparisons (id, bundle, created_at, backend, model, approach, class, divergence,
			rf_ratio, correct_taxa_ratio, mean_length_diff, report_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			bundle = excluded.bundle, created_at = excluded.created_at, backend = excluded.backend,
			model = excluded.model, approach = excluded.approach, class = excluded.class,
			divergence = excluded.divergence, rf_ratio = excluded.rf_ratio,
			correct_taxa_ratio = excluded.correct_taxa_ratio, mean_length_diff = excluded.mean_length_diff,
			report_json = excluded.report_json`,
		rec.ID, rec.Bundle, rec.CreatedAt.Format(time.RFC3339Nano), rec.Backend, rec.Model, rec.Approach,
		rec.Report.Class.String(), rec.Report.Divergence(), rfRatio, taxaRatio, lengthDiff, string(data),
	)
	if err != nil {
		return errors.Wrapf(err, "unable to save comparison of %s", rec.Bundle)
	}

	s.logger.Debug("comparison saved", zap.String("id", rec.ID), zap.String("bundle", rec.Bundle))

	return nil
}

// List returns the records matching f, most recent first.
func (s *Store) List(ctx context.Context, f Filter) ([]*Record, error) {
	query := "SELECT id, bundle, created_at, backend, model, approach, report_json FROM comparisons WHERE 1 = 1"
	args := []interface{}{}

	if f.Bundle != "" {
		query += " AND bundle = ?"
		args = append(args, f.Bundle)
	}

	if f.Model != "" {
		query += " AND model = ?"
		args = append(args, f.Model)
	}

	query += " ORDER BY created_at DESC, id"

	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to list comparisons")
	}
	defer rows.Close()

	var res []*Record

	for rows.Next() {
		var (
			rec       Record
			createdAt string
			data      string
		)

		err = rows.Scan(&rec.ID, &rec.Bundle, &createdAt, &rec.Backend, &rec.Model, &rec.Approach, &data)
		if err != nil {
			return nil, errors.Wrap(err, "unable to scan comparison")
		}

		rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid creation time of comparison %s", rec.ID)
		}

		rec.Report = &compare.Report{}

		err = json.Unmarshal([]byte(data), rec.Report)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to decode comparison %s", rec.ID)
		}

		res = append(res, &rec)
	}

	return res, errors.Wrap(rows.Err(), "unable to iterate comparisons")
}

// Summarize aggregates the records matching f. Limit is ignored.
func (s *Store) Summarize(ctx context.Context, f Filter) (*Summary, error) {
	query := `SELECT COUNT(*), COALESCE(AVG(divergence), 0), COALESCE(AVG(rf_ratio), 0), COUNT(rf_ratio),
		COALESCE(AVG(correct_taxa_ratio), 0), COUNT(correct_taxa_ratio),
		COALESCE(AVG(mean_length_diff), 0), COUNT(mean_length_diff),
		COALESCE(SUM(CASE WHEN divergence = 0 THEN 1 ELSE 0 END), 0)
		FROM comparisons WHERE 1 = 1`
	args := []interface{}{}

	if f.Bundle != "" {
		query += " AND bundle = ?"
		args = append(args, f.Bundle)
	}

	if f.Model != "" {
		query += " AND model = ?"
		args = append(args, f.Model)
	}

	sum := &Summary{}

	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&sum.Count, &sum.MeanDivergence, &sum.MeanRFRatio, &sum.WithTopologyRatio,
		&sum.MeanCorrectTaxa, &sum.WithTaxaRatio,
		&sum.MeanLengthDiff, &sum.WithLengthDiffs,
		&sum.ExactTrees,
	)
	if err != nil {
		return nil, errors.Wrap(err, "unable to summarize comparisons")
	}

	return sum, nil
}
