package container

import (
	"context"
	"fmt"

	"gocalib/adapters/bolt"
	"gocalib/adapters/postgres"
	"gocalib/app"
	"gocalib/internal"
	"gocalib/internal/calibrator"
	"gocalib/internal/config"
	"gocalib/internal/distributions"
	"gocalib/internal/experiment"
	"gocalib/internal/migration"
	"gocalib/ports"

	"github.com/jmoiron/sqlx"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure; DB stays nil when runs live in a bolt file
	DB      *sqlx.DB
	RunRepo ports.CalibrationRunRepository

	// Engine
	Calibrator *calibrator.Calibrator
	Runner     *experiment.Runner

	// Services
	CalibrationService *app.CalibrationService
	ExperimentService  *app.ExperimentService
}

// New creates a container with the calibration engine and services wired.
// Storage is attached separately by InitStorage.
func New(cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}

	c := &Container{
		Config:     cfg,
		Logger:     logger,
		Calibrator: calibrator.New(distributions.NewDistributions(), logger),
	}
	c.Runner = experiment.NewRunner(c.Calibrator, cfg.Experiment.Concurrency, logger)
	c.ExperimentService = app.NewExperimentService(c.Runner, logger)
	c.initCalibrationService()

	return c, nil
}

// InitStorage opens PostgreSQL when DATABASE_URL is set, otherwise the bolt file
func (c *Container) InitStorage(ctx context.Context) error {
	if c.Config.UsesPostgres() {
		db, err := postgres.Open(ctx, c.Config.Storage.DatabaseURL)
		if err != nil {
			return err
		}
		if err := migration.NewRunner().Run(ctx, db); err != nil {
			_ = db.Close()
			return err
		}
		c.DB = db
		c.RunRepo = postgres.NewCalibrationRunRepository(db)
		c.Logger.Info("calibration runs stored in PostgreSQL")
	} else {
		repo, err := bolt.Open(c.Config.Storage.BoltPath)
		if err != nil {
			return err
		}
		c.RunRepo = repo
		c.Logger.Info("calibration runs stored in %s", c.Config.Storage.BoltPath)
	}

	c.initCalibrationService()
	return nil
}

func (c *Container) initCalibrationService() {
	c.CalibrationService = app.NewCalibrationService(
		c.Calibrator,
		c.RunRepo,
		c.Config.Calibration.PriorLabel,
		c.Config.DefaultConfidence(),
		c.Logger,
	)
}

// HealthChecks returns the dependency checks served on /healthz
func (c *Container) HealthChecks() map[string]func(ctx context.Context) error {
	checks := map[string]func(ctx context.Context) error{}
	if c.DB != nil {
		checks["postgres"] = c.DB.PingContext
	} else if c.RunRepo != nil {
		checks["bolt"] = func(ctx context.Context) error {
			_, err := c.RunRepo.List(ctx, 1)
			return err
		}
	}
	return checks
}

// Shutdown releases storage and flushes the logger
func (c *Container) Shutdown(ctx context.Context) error {
	var err error
	if c.RunRepo != nil {
		err = c.RunRepo.Close()
	}
	_ = c.Logger.Sync()
	return err
}
