// Package bolt stores calibration runs in an embedded bbolt file for single-node deployments.
package bolt

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"gocalib/domain/calibration"
	"gocalib/domain/core"
	"gocalib/internal/errors"
	"gocalib/ports"

	bolt "go.etcd.io/bbolt"
)

// DefaultListLimit caps List when no positive limit is given
const DefaultListLimit = 50

var bucketRuns = []byte("calibration_runs")

// CalibrationRunRepository keeps runs as JSON values keyed by their time-ordered ID,
// so cursor order is creation order.
type CalibrationRunRepository struct {
	db *bolt.DB
}

// Open creates the file and bucket if needed
func Open(path string) (*CalibrationRunRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.DatabaseError("failed to create bolt directory", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.DatabaseError("failed to open bolt file", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, e := tx.CreateBucketIfNotExists(bucketRuns)
		return e
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.DatabaseError("failed to create calibration_runs bucket", err)
	}
	return &CalibrationRunRepository{db: db}, nil
}

var _ ports.CalibrationRunRepository = (*CalibrationRunRepository)(nil)

// Save stores a run; saving the same ID twice is a constraint violation
func (r *CalibrationRunRepository) Save(ctx context.Context, run *calibration.Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if run.ID.IsEmpty() {
		return core.NewValidationError("id", "run ID must be set before saving")
	}

	raw, err := json.Marshal(run)
	if err != nil {
		return errors.DatabaseError("failed to encode calibration run", err)
	}

	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRuns)
		key := []byte(run.ID.String())
		if b.Get(key) != nil {
			return core.NewValidationError("id", "run "+run.ID.String()+" already exists")
		}
		return b.Put(key, raw)
	})
}

// GetByID retrieves a run by ID
func (r *CalibrationRunRepository) GetByID(ctx context.Context, id core.ID) (*calibration.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var run calibration.Run
	err := r.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketRuns).Get([]byte(id.String()))
		if v == nil {
			return core.ErrRunNotFound
		}
		return json.Unmarshal(v, &run)
	})
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// List walks the bucket backwards so the newest runs come first
func (r *CalibrationRunRepository) List(ctx context.Context, limit int) ([]*calibration.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	runs := []*calibration.Run{}
	err := r.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketRuns).Cursor()
		for k, v := c.Last(); k != nil && len(runs) < limit; k, v = c.Prev() {
			var run calibration.Run
			if err := json.Unmarshal(v, &run); err != nil {
				return errors.DatabaseError("corrupt calibration run "+string(k), err)
			}
			runs = append(runs, &run)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// Close releases the file lock
func (r *CalibrationRunRepository) Close() error { return r.db.Close() }
