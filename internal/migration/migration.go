package migration

import (
	"context"

	"gocalib/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in order; every step is idempotent
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	for _, step := range r.steps() {
		if _, err := db.ExecContext(ctx, step.sql); err != nil {
			return errors.DatabaseError("failed to "+step.name, err)
		}
	}
	return nil
}

type step struct {
	name string
	sql  string
}

func (r *MigrationRunner) steps() []step {
	return []step{
		{name: "create calibration_runs table", sql: createCalibrationRunsTable},
		{name: "create calibration_runs indexes", sql: createCalibrationRunsIndexes},
	}
}

const createCalibrationRunsTable = `
	CREATE TABLE IF NOT EXISTS calibration_runs (
		id UUID PRIMARY KEY,
		prior_label VARCHAR(64) NOT NULL,
		prior_alpha DOUBLE PRECISION NOT NULL CHECK (prior_alpha > 0),
		prior_beta DOUBLE PRECISION NOT NULL CHECK (prior_beta > 0),
		posterior_alpha DOUBLE PRECISION NOT NULL,
		posterior_beta DOUBLE PRECISION NOT NULL,
		confidence DOUBLE PRECISION NOT NULL CHECK (confidence >= 0 AND confidence <= 1),
		lower_bound DOUBLE PRECISION NOT NULL,
		upper_bound DOUBLE PRECISION NOT NULL,
		mean DOUBLE PRECISION NOT NULL,
		median DOUBLE PRECISION,
		sample_size INTEGER NOT NULL CHECK (sample_size > 0),
		successes INTEGER NOT NULL CHECK (successes >= 0 AND successes <= sample_size),
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		CHECK (lower_bound <= upper_bound)
	)
`

const createCalibrationRunsIndexes = `
	CREATE INDEX IF NOT EXISTS idx_calibration_runs_created_at ON calibration_runs (created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_calibration_runs_prior_label ON calibration_runs (prior_label)
`
