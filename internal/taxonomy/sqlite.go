package taxonomy

import (
	"bufio"
	"context"
	"database/sql"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	// registers the pure Go "sqlite" driver
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS taxa (
	id     INTEGER PRIMARY KEY,
	parent INTEGER NOT NULL,
	rank   TEXT NOT NULL DEFAULT '',
	name   TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS taxa_parent ON taxa(parent);
`

// SQLite is a taxonomy stored in an SQLite database, built from an NCBI taxdump.
type SQLite struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenSQLite opens or creates the taxonomy database at path.
func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open taxonomy database %s", path)
	}

	// a single connection avoids SQLITE_BUSY on concurrent writes
	db.SetMaxOpenConns(1)

	_, err = db.ExecContext(ctx, schema)
	if err != nil {
		db.Close()

		return nil, errors.Wrap(err, "unable to create taxonomy schema")
	}

	return &SQLite{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Name(ctx context.Context, id ID) (string, bool, error) {
	var name string

	err := s.db.QueryRowContext(ctx, "SELECT name FROM taxa WHERE id = ?", int(id)).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}

	if err != nil {
		return "", false, errors.Wrapf(err, "unable to query taxon %d", id)
	}

	return name, name != "", nil
}

func (s *SQLite) Parent(ctx context.Context, id ID) (ID, bool, error) {
	var parent int

	err := s.db.QueryRowContext(ctx, "SELECT parent FROM taxa WHERE id = ?", int(id)).Scan(&parent)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}

	if err != nil {
		return 0, false, errors.Wrapf(err, "unable to query parent of taxon %d", id)
	}

	if ID(parent) == id {
		return 0, false, nil
	}

	return ID(parent), true, nil
}

// Count returns the number of taxa in the database.
func (s *SQLite) Count(ctx context.Context) (int, error) {
	var count int

	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM taxa").Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, "unable to count taxa")
	}

	return count, nil
}

// Import loads an NCBI taxdump into the database: nodes provides the parent relation and ranks,
// names provides the scientific names. Both readers use the "|" separated dmp format.
// It returns the number of imported taxa.
func (s *SQLite) Import(ctx context.Context, nodes, names io.Reader) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "unable to begin import")
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	insertNode, err := tx.PrepareContext(ctx,
		"INSERT INTO taxa (id, parent, rank) VALUES (?, ?, ?) ON CONFLICT(id) DO UPDATE SET parent = excluded.parent, rank = excluded.rank")
	if err != nil {
		return 0, errors.Wrap(err, "unable to prepare node insert")
	}
	defer insertNode.Close()

	count := 0

	err = scanDump(nodes, 3, func(fields []string) error {
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			return errors.Wrapf(err, "invalid taxon id %q", fields[0])
		}

		parent, err := strconv.Atoi(fields[1])
		if err != nil {
			return errors.Wrapf(err, "invalid parent id %q", fields[1])
		}

		_, err = insertNode.ExecContext(ctx, id, parent, fields[2])
		if err != nil {
			return errors.Wrapf(err, "unable to insert taxon %d", id)
		}

		count++

		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "unable to import nodes")
	}

	updateName, err := tx.PrepareContext(ctx, "UPDATE taxa SET name = ? WHERE id = ?")
	if err != nil {
		return 0, errors.Wrap(err, "unable to prepare name update")
	}
	defer updateName.Close()

	err = scanDump(names, 4, func(fields []string) error {
		if fields[3] != "scientific name" {
			return nil
		}

		id, err := strconv.Atoi(fields[0])
		if err != nil {
			return errors.Wrapf(err, "invalid taxon id %q", fields[0])
		}

		_, err = updateName.ExecContext(ctx, fields[1], id)

		return errors.Wrapf(err, "unable to set name of taxon %d", id)
	})
	if err != nil {
		return 0, errors.Wrap(err, "unable to import names")
	}

	err = tx.Commit()
	if err != nil {
		return 0, errors.Wrap(err, "unable to commit import")
	}

	s.logger.Info("taxonomy imported", zap.Int("taxa", count))

	return count, nil
}

// scanDump calls fn with the first want fields of every line of a dmp file.
func scanDump(r io.Reader, want int, fn func(fields []string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0

	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		fields := strings.Split(text, "|")
		if len(fields) < want {
			return errors.Errorf("line %d: expected %d fields, got %d", line, want, len(fields))
		}

		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		err := fn(fields)
		if err != nil {
			return errors.Wrapf(err, "line %d", line)
		}
	}

	return errors.Wrap(scanner.Err(), "unable to read dump")
}

var _ Source = (*SQLite)(nil)
