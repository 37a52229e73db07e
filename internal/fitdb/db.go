// Package fitdb persists fit runs and their iteration history to
// SQLite. Fresh databases are created with the baseline schema; existing
// databases are upgraded through the migrations directory.
package fitdb

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite handle used by the fit stores.
type DB struct {
	*sql.DB
}

// OpenDB opens (or creates) the database at path without touching the
// schema. Use it when migrations manage the schema, e.g. from the
// migrate subcommand.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &DB{DB: db}, nil
}

// NewDB opens (or creates) the database at path and ensures the baseline
// schema exists. Use ":memory:" for an ephemeral database in tests.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS fit_runs (
			run_id            TEXT PRIMARY KEY,
			created_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			momentum          DOUBLE,
			charge            BIGINT,
			mass              DOUBLE,
			bnom              DOUBLE,
			nhits             BIGINT,
			gen_seed          BIGINT,
			status            TEXT,
			chisq             DOUBLE,
			ndof              BIGINT,
			iterations        BIGINT,
			par_radius        DOUBLE,
			par_lambda        DOUBLE,
			par_center_x      DOUBLE,
			par_center_y      DOUBLE,
			par_phi0          DOUBLE,
			par_time0         DOUBLE,
			err_radius        DOUBLE,
			err_lambda        DOUBLE,
			err_center_x      DOUBLE,
			err_center_y      DOUBLE,
			err_phi0          DOUBLE,
			err_time0         DOUBLE
		);
		CREATE TABLE IF NOT EXISTS fit_iterations (
			run_id            TEXT NOT NULL,
			iteration         BIGINT NOT NULL,
			chisq             DOUBLE,
			ndof              BIGINT,
			variance_scale    DOUBLE,
			PRIMARY KEY (run_id, iteration)
		);
		CREATE INDEX IF NOT EXISTS idx_fit_runs_created ON fit_runs (created_at);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create baseline schema: %w", err)
	}

	return &DB{DB: db}, nil
}
