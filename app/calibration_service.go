package app

import (
	"context"
	"fmt"
	"time"

	"gocalib/domain/calibration"
	"gocalib/domain/core"
	"gocalib/internal"
	"gocalib/internal/errors"
	"gocalib/internal/metrics"
	"gocalib/ports"
)

// Calibrator is the calibration engine the service drives
type Calibrator interface {
	Calibrate(observations []bool, prior calibration.BetaParameters, confidence calibration.Probability) (*calibration.Result, error)
	CalibrateCounts(successes, trials int, prior calibration.BetaParameters, confidence calibration.Probability) (*calibration.Result, error)
}

// CalibrationService resolves priors, calibrates and optionally persists runs
type CalibrationService struct {
	calibrator        Calibrator
	repo              ports.CalibrationRunRepository
	defaultPrior      string
	defaultConfidence calibration.Probability
	logger            *internal.Logger
}

// CalibrationRequest carries either raw observations or aggregated counts.
// Nil fields fall back to the service defaults.
type CalibrationRequest struct {
	Observations []bool   `json:"observations,omitempty"`
	Successes    *int     `json:"successes,omitempty"`
	Trials       *int     `json:"trials,omitempty"`
	Prior        string   `json:"prior,omitempty"`
	Alpha        *float64 `json:"alpha,omitempty"`
	Beta         *float64 `json:"beta,omitempty"`
	Confidence   *float64 `json:"confidence,omitempty"`
	Save         bool     `json:"save,omitempty"`
}

// CalibrationResponse is the outcome of one calibration
type CalibrationResponse struct {
	RunID     core.ID                `json:"run_id,omitempty"`
	Prior     calibration.NamedPrior `json:"prior"`
	Result    *calibration.Result    `json:"result"`
	RuntimeMs int64                  `json:"runtime_ms"`
}

// NewCalibrationService creates a calibration service. repo may be nil when runs are never saved.
func NewCalibrationService(c Calibrator, repo ports.CalibrationRunRepository, defaultPrior string, defaultConfidence calibration.Probability, logger *internal.Logger) *CalibrationService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if defaultPrior == "" {
		defaultPrior = calibration.PriorJeffreys
	}
	return &CalibrationService{
		calibrator:        c,
		repo:              repo,
		defaultPrior:      defaultPrior,
		defaultConfidence: defaultConfidence,
		logger:            logger,
	}
}

// Calibrate runs one calibration and records its outcome in metrics
func (s *CalibrationService) Calibrate(ctx context.Context, req CalibrationRequest) (*CalibrationResponse, error) {
	start := time.Now()

	resp, err := s.calibrate(req)
	metrics.CalibrationDuration.Observe(time.Since(start).Seconds())
	metrics.Calibrations.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		s.logger.Debug("calibration rejected: %v", err)
		return nil, errors.FromDomain(err)
	}

	if req.Save {
		if err := s.persist(ctx, resp); err != nil {
			return nil, err
		}
	}

	resp.RuntimeMs = time.Since(start).Milliseconds()
	s.logger.Info("calibrated %d/%d with %s at %.3f: [%.4f, %.4f]",
		resp.Result.Successes(), resp.Result.SampleSize(), resp.Prior.Label,
		resp.Result.ConfidenceLevel().Float64(), resp.Result.LowerBound().Float64(), resp.Result.UpperBound().Float64())
	return resp, nil
}

func (s *CalibrationService) calibrate(req CalibrationRequest) (*CalibrationResponse, error) {
	label := req.Prior
	if label == "" && req.Alpha == nil && req.Beta == nil {
		label = s.defaultPrior
	}
	prior, err := calibration.ResolvePrior(label, req.Alpha, req.Beta)
	if core.IsNotFoundError(err) {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidInput, err)
	}
	if err != nil {
		return nil, err
	}

	confidence := s.defaultConfidence
	if req.Confidence != nil {
		if confidence, err = calibration.NewProbability(*req.Confidence); err != nil {
			return nil, err
		}
	}

	var result *calibration.Result
	switch {
	case req.Successes != nil || req.Trials != nil:
		if len(req.Observations) > 0 {
			return nil, core.NewValidationError("observations", "give either observations or successes/trials, not both")
		}
		if req.Successes == nil || req.Trials == nil {
			return nil, core.NewValidationError("trials", "successes and trials must be given together")
		}
		result, err = s.calibrator.CalibrateCounts(*req.Successes, *req.Trials, prior.Parameters, confidence)
	default:
		result, err = s.calibrator.Calibrate(req.Observations, prior.Parameters, confidence)
	}
	if err != nil {
		return nil, err
	}

	return &CalibrationResponse{Prior: prior, Result: result}, nil
}

func (s *CalibrationService) persist(ctx context.Context, resp *CalibrationResponse) error {
	if s.repo == nil {
		return errors.InvalidInput("run persistence is not configured")
	}
	run := calibration.NewRun(resp.Prior.Label, resp.Result)
	if err := s.repo.Save(ctx, run); err != nil {
		return errors.Wrap(err, "failed to persist calibration run")
	}
	metrics.PersistedRuns.Inc()
	resp.RunID = run.ID
	return nil
}

// GetRun loads a persisted run
func (s *CalibrationService) GetRun(ctx context.Context, id string) (*calibration.Run, error) {
	if s.repo == nil {
		return nil, errors.InvalidInput("run persistence is not configured")
	}
	runID, err := core.ParseID(id)
	if err != nil {
		return nil, errors.FromDomain(err)
	}
	run, err := s.repo.GetByID(ctx, runID)
	if err != nil {
		return nil, errors.FromDomain(err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first
func (s *CalibrationService) ListRuns(ctx context.Context, limit int) ([]*calibration.Run, error) {
	if s.repo == nil {
		return nil, errors.InvalidInput("run persistence is not configured")
	}
	if limit < 0 {
		return nil, errors.InvalidInput(fmt.Sprintf("limit must be >= 0, got %d", limit))
	}
	runs, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, errors.FromDomain(err)
	}
	return runs, nil
}

// Priors lists the built-in prior catalog
func (s *CalibrationService) Priors() []calibration.NamedPrior {
	return calibration.Priors()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case core.IsValidationError(err):
		return metrics.OutcomeInvalid
	case core.IsNumericalError(err):
		return metrics.OutcomeNumerical
	default:
		return metrics.OutcomeError
	}
}
