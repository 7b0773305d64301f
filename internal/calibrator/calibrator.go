// Package calibrator performs the conjugate Beta-Binomial update and extracts an
// equal-tailed credible interval from the posterior.
package calibrator

import (
	"fmt"

	"gocalib/domain/calibration"
	"gocalib/domain/core"
	"gocalib/internal"
	"gocalib/internal/distributions"
	"gocalib/ports"
)

// Calibrator turns binary observations and a Beta prior into a posterior and interval.
// It holds no mutable state and is safe for concurrent use.
type Calibrator struct {
	quantile ports.BetaQuantiler
	logger   *internal.Logger
}

// New creates a calibrator on top of the given quantile function.
// A nil logger falls back to internal.DefaultLogger.
func New(quantile ports.BetaQuantiler, logger *internal.Logger) *Calibrator {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Calibrator{quantile: quantile, logger: logger}
}

// NewDefault creates a calibrator backed by gonum's Beta distribution
func NewDefault() *Calibrator {
	return New(distributions.NewDistributions(), nil)
}

var defaultCalibrator = NewDefault()

// Calibrate runs the default calibrator. Pass calibration.DefaultConfidence for a 95% interval.
func Calibrate(observations []bool, prior calibration.BetaParameters, confidence calibration.Probability) (*calibration.Result, error) {
	return defaultCalibrator.Calibrate(observations, prior, confidence)
}

// Calibrate updates prior with the observations and returns the credible interval at confidence.
// Empty observations fail with core.ErrEmptyObservations; quantile errors propagate unchanged.
func (c *Calibrator) Calibrate(observations []bool, prior calibration.BetaParameters, confidence calibration.Probability) (*calibration.Result, error) {
	if len(observations) == 0 {
		return nil, core.ErrEmptyObservations
	}

	successes := 0
	for _, ok := range observations {
		if ok {
			successes++
		}
	}

	return c.CalibrateCounts(successes, len(observations), prior, confidence)
}

// CalibrateCounts is Calibrate for data already aggregated into successes out of trials
func (c *Calibrator) CalibrateCounts(successes, trials int, prior calibration.BetaParameters, confidence calibration.Probability) (*calibration.Result, error) {
	if trials <= 0 {
		return nil, core.ErrEmptyObservations
	}
	if successes < 0 || successes > trials {
		return nil, core.NewValidationError("successes", fmt.Sprintf("must lie in [0, %d], got %d", trials, successes))
	}

	posterior := calibration.BetaParameters{
		Alpha: prior.Alpha + float64(successes),
		Beta:  prior.Beta + float64(trials-successes),
	}

	tail := (1 - confidence.Float64()) / 2
	lower, err := c.quantile.BetaQuantile(tail, posterior.Alpha, posterior.Beta)
	if err != nil {
		return nil, err
	}
	upper, err := c.quantile.BetaQuantile(1-tail, posterior.Alpha, posterior.Beta)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("calibrated %d/%d with prior %s -> posterior %s, %.0f%% interval [%.6f, %.6f]",
		successes, trials, prior, posterior, confidence.Float64()*100, lower, upper)

	return calibration.NewResult(confidence, lower, upper, prior, posterior, trials, successes)
}
