package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"

	"gocalib/domain/calibration"
	"gocalib/domain/core"
	"gocalib/internal/errors"
	"gocalib/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// DefaultListLimit caps List when no positive limit is given
const DefaultListLimit = 50

const runColumns = `id, prior_label, prior_alpha, prior_beta, posterior_alpha, posterior_beta,
	confidence, lower_bound, upper_bound, mean, median, sample_size, successes, created_at`

// CalibrationRunRepositoryImpl implements CalibrationRunRepository for PostgreSQL
type CalibrationRunRepositoryImpl struct {
	db *sqlx.DB
}

// NewCalibrationRunRepository creates a new PostgreSQL calibration run repository
func NewCalibrationRunRepository(db *sqlx.DB) ports.CalibrationRunRepository {
	return &CalibrationRunRepositoryImpl{db: db}
}

// Open connects to databaseURL with the lib/pq driver and verifies the connection
func Open(ctx context.Context, databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to PostgreSQL", err)
	}
	return db, nil
}

// Save inserts a run; saving the same ID twice is a constraint violation
func (r *CalibrationRunRepositoryImpl) Save(ctx context.Context, run *calibration.Run) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO calibration_runs (`+runColumns+`)
		VALUES (:id, :prior_label, :prior_alpha, :prior_beta, :posterior_alpha, :posterior_beta,
			:confidence, :lower_bound, :upper_bound, :mean, :median, :sample_size, :successes, :created_at)
	`, run)
	if err != nil {
		return errors.DatabaseError("failed to save calibration run", err)
	}
	return nil
}

// GetByID retrieves a run by ID
func (r *CalibrationRunRepositoryImpl) GetByID(ctx context.Context, id core.ID) (*calibration.Run, error) {
	var run calibration.Run
	err := r.db.GetContext(ctx, &run, `SELECT `+runColumns+` FROM calibration_runs WHERE id = $1`, id)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrRunNotFound
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to load calibration run", err)
	}
	return &run, nil
}

// List returns the most recent runs first
func (r *CalibrationRunRepositoryImpl) List(ctx context.Context, limit int) ([]*calibration.Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	runs := []*calibration.Run{}
	err := r.db.SelectContext(ctx, &runs, `
		SELECT `+runColumns+`
		FROM calibration_runs
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, errors.DatabaseError("failed to list calibration runs", err)
	}
	return runs, nil
}

// Close closes the underlying connection pool
func (r *CalibrationRunRepositoryImpl) Close() error {
	return r.db.Close()
}
