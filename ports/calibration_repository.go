package ports

import (
	"context"

	"gocalib/domain/calibration"
	"gocalib/domain/core"
)

// CalibrationRunRepository defines the interface for persisted calibration runs
type CalibrationRunRepository interface {
	// Save stores a run; the run's ID must already be set
	Save(ctx context.Context, run *calibration.Run) error

	// GetByID returns core.ErrRunNotFound when no run has the given ID
	GetByID(ctx context.Context, id core.ID) (*calibration.Run, error)

	// List returns the most recent runs first, at most limit of them
	List(ctx context.Context, limit int) ([]*calibration.Run, error)

	Close() error
}
