// Package experiment drives the calibrator over synthetic Bernoulli data to show
// how the posterior tightens around the true rate as the sample grows.
package experiment

import (
	"context"
	"fmt"

	"gocalib/domain/calibration"
	"gocalib/domain/core"
	"gocalib/internal"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"
)

// DefaultTrialSizes are the sample sizes swept when none are given
var DefaultTrialSizes = []int{2, 3, 5, 10, 25, 50, 100}

// DefaultMaxSize bounds the convergence sweep when none is given
const DefaultMaxSize = 50

// Calibrator is the part of the calibrator the runner needs
type Calibrator interface {
	Calibrate(observations []bool, prior calibration.BetaParameters, confidence calibration.Probability) (*calibration.Result, error)
}

// TrialsConfig describes one multi-sample-size experiment
type TrialsConfig struct {
	TrueProbability float64
	Sizes           []int
	Prior           calibration.NamedPrior
	Confidence      calibration.Probability
	Seed            int64
}

// TrialRecord is one row of a trials experiment
type TrialRecord struct {
	Size            int                 `json:"size"`
	TrueProbability float64             `json:"true_probability"`
	EMV             float64             `json:"emv"`
	Calibrated      float64             `json:"calibrated"`
	LowerBound      float64             `json:"lower_bound"`
	UpperBound      float64             `json:"upper_bound"`
	Confidence      float64             `json:"confidence"`
	PriorLabel      string              `json:"prior"`
	CoversTruth     bool                `json:"covers_truth"`
	Result          *calibration.Result `json:"-"`
}

// ConvergenceConfig describes a sweep over sample sizes 1..MaxSize
type ConvergenceConfig struct {
	TrueProbability float64
	MaxSize         int
	Prior           calibration.NamedPrior
	Confidence      calibration.Probability
	Seed            int64
}

// ConvergencePoint is the gap between the empirical rate and the posterior mean at one size
type ConvergencePoint struct {
	Size       int     `json:"size"`
	EMV        float64 `json:"emv"`
	Calibrated float64 `json:"calibrated"`
	Gap        float64 `json:"gap"`
}

// ConvergenceSummary aggregates a convergence sweep
type ConvergenceSummary struct {
	MeanGap  float64 `json:"mean_gap"`
	MaxGap   float64 `json:"max_gap"`
	FinalGap float64 `json:"final_gap"`
}

// Runner executes experiments, calibrating sample sizes concurrently.
// Every sample size draws from its own seeded stream, so results only depend on the seed.
type Runner struct {
	calibrator  Calibrator
	concurrency int
	logger      *internal.Logger
}

// NewRunner creates a runner; concurrency below 1 is treated as 1
func NewRunner(c Calibrator, concurrency int, logger *internal.Logger) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Runner{calibrator: c, concurrency: concurrency, logger: logger}
}

// RunTrials calibrates one synthetic sample per configured size.
// Records come back in the order of cfg.Sizes.
func (r *Runner) RunTrials(ctx context.Context, cfg TrialsConfig) ([]TrialRecord, error) {
	if len(cfg.Sizes) == 0 {
		cfg.Sizes = DefaultTrialSizes
	}
	for _, size := range cfg.Sizes {
		if size <= 0 {
			return nil, core.NewValidationError("sizes", fmt.Sprintf("must all be > 0, got %d", size))
		}
	}

	records := make([]TrialRecord, len(cfg.Sizes))
	err := r.sweep(ctx, cfg.Sizes, cfg.Seed, cfg.TrueProbability, func(i, size int, data []bool) error {
		result, err := r.calibrator.Calibrate(data, cfg.Prior.Parameters, cfg.Confidence)
		if err != nil {
			return fmt.Errorf("size %d: %w", size, err)
		}
		emv, err := empiricalRate(data)
		if err != nil {
			return err
		}
		records[i] = TrialRecord{
			Size:            size,
			TrueProbability: cfg.TrueProbability,
			EMV:             emv,
			Calibrated:      result.MeanProbability().Float64(),
			LowerBound:      result.LowerBound().Float64(),
			UpperBound:      result.UpperBound().Float64(),
			Confidence:      result.ConfidenceLevel().Float64(),
			PriorLabel:      cfg.Prior.Label,
			CoversTruth:     result.Contains(cfg.TrueProbability),
			Result:          result,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("trials experiment finished: p=%.3f prior=%s sizes=%v", cfg.TrueProbability, cfg.Prior.Label, cfg.Sizes)
	return records, nil
}

// RunConvergence records |EMV - posterior mean| for every sample size from 1 to cfg.MaxSize
func (r *Runner) RunConvergence(ctx context.Context, cfg ConvergenceConfig) ([]ConvergencePoint, error) {
	if cfg.MaxSize == 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if cfg.MaxSize < 0 {
		return nil, core.NewValidationError("max_size", fmt.Sprintf("must be > 0, got %d", cfg.MaxSize))
	}

	sizes := make([]int, cfg.MaxSize)
	for i := range sizes {
		sizes[i] = i + 1
	}

	points := make([]ConvergencePoint, len(sizes))
	err := r.sweep(ctx, sizes, cfg.Seed, cfg.TrueProbability, func(i, size int, data []bool) error {
		result, err := r.calibrator.Calibrate(data, cfg.Prior.Parameters, cfg.Confidence)
		if err != nil {
			return fmt.Errorf("size %d: %w", size, err)
		}
		emv, err := empiricalRate(data)
		if err != nil {
			return err
		}
		mean := result.MeanProbability().Float64()
		gap := emv - mean
		if gap < 0 {
			gap = -gap
		}
		points[i] = ConvergencePoint{Size: size, EMV: emv, Calibrated: mean, Gap: gap}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("convergence experiment finished: p=%.3f prior=%s max_size=%d", cfg.TrueProbability, cfg.Prior.Label, cfg.MaxSize)
	return points, nil
}

func (r *Runner) sweep(ctx context.Context, sizes []int, seed int64, prob float64, fn func(i, size int, data []bool) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, size := range sizes {
		i, size := i, size
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := GenerateBinaryData(newStream(seed, i), prob, size)
			if err != nil {
				return err
			}
			r.logger.Trace("stream %d: %d/%d successes", i, CountSuccesses(data), size)
			return fn(i, size, data)
		})
	}

	return g.Wait()
}

// SummarizeConvergence reports mean, max and last gap of a sweep
func SummarizeConvergence(points []ConvergencePoint) (ConvergenceSummary, error) {
	if len(points) == 0 {
		return ConvergenceSummary{}, core.NewValidationError("points", "must not be empty")
	}

	gaps := make(stats.Float64Data, len(points))
	for i, p := range points {
		gaps[i] = p.Gap
	}

	mean, err := gaps.Mean()
	if err != nil {
		return ConvergenceSummary{}, err
	}
	maxGap, err := gaps.Max()
	if err != nil {
		return ConvergenceSummary{}, err
	}

	return ConvergenceSummary{MeanGap: mean, MaxGap: maxGap, FinalGap: gaps[len(gaps)-1]}, nil
}

func empiricalRate(data []bool) (float64, error) {
	values := make(stats.Float64Data, len(data))
	for i, ok := range data {
		if ok {
			values[i] = 1
		}
	}
	return stats.Mean(values)
}
