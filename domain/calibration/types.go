package calibration

import (
	"encoding/json"
	"fmt"
	"math"

	"gocalib/domain/core"
)

// BetaParameters holds the two shape parameters of a Beta distribution.
// A zero-value literal is allowed; NewBetaParameters is the validating constructor.
type BetaParameters struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
}

// NewBetaParameters returns parameters with both shapes strictly positive and finite
func NewBetaParameters(alpha, beta float64) (BetaParameters, error) {
	if !(alpha > 0) || math.IsInf(alpha, 0) {
		return BetaParameters{}, core.NewConstraintError("alpha", alpha, "must be a positive finite number")
	}
	if !(beta > 0) || math.IsInf(beta, 0) {
		return BetaParameters{}, core.NewConstraintError("beta", beta, "must be a positive finite number")
	}
	return BetaParameters{Alpha: alpha, Beta: beta}, nil
}

// Mean returns alpha / (alpha + beta)
func (p BetaParameters) Mean() float64 {
	return p.Alpha / (p.Alpha + p.Beta)
}

func (p BetaParameters) String() string {
	return fmt.Sprintf("Beta(%g, %g)", p.Alpha, p.Beta)
}

// Result is the immutable outcome of one calibration.
// INVARIANTS:
// - mean == posterior.Alpha / (posterior.Alpha + posterior.Beta)
// - 0 <= lower <= upper <= 1
// - prior and posterior are copies owned by the result
type Result struct {
	confidence Probability
	lower      Probability
	upper      Probability
	prior      BetaParameters
	posterior  BetaParameters
	sampleSize int
	successes  int
	mean       Probability

	// median uses the (a - 1/3) / (a + b - 2/3) approximation, which only holds
	// for a, b > 1; outside that domain medianOK is false.
	median   Probability
	medianOK bool
}

// NewResult assembles a Result and computes its derived fields.
// lower and upper are validated as probabilities and must be ordered.
func NewResult(
	confidence Probability,
	lower, upper float64,
	prior, posterior BetaParameters,
	sampleSize, successes int,
) (*Result, error) {
	lo, err := newNamedProbability("lower_bound", lower)
	if err != nil {
		return nil, err
	}
	hi, err := newNamedProbability("upper_bound", upper)
	if err != nil {
		return nil, err
	}
	if lo > hi {
		return nil, fmt.Errorf("%w: lower_bound %v exceeds upper_bound %v", core.ErrConstraintViolation, lower, upper)
	}
	if sampleSize < 0 || successes < 0 || successes > sampleSize {
		return nil, fmt.Errorf("%w: %d successes out of %d trials", core.ErrConstraintViolation, successes, sampleSize)
	}

	mean, err := newNamedProbability("mean_probability", posterior.Alpha/(posterior.Alpha+posterior.Beta))
	if err != nil {
		return nil, err
	}

	r := &Result{
		confidence: confidence,
		lower:      lo,
		upper:      hi,
		prior:      prior,
		posterior:  posterior,
		sampleSize: sampleSize,
		successes:  successes,
		mean:       mean,
	}

	if posterior.Alpha > 1 && posterior.Beta > 1 {
		median := (posterior.Alpha - 1.0/3.0) / (posterior.Alpha + posterior.Beta - 2.0/3.0)
		if m, err := newNamedProbability("median_probability", median); err == nil {
			r.median = m
			r.medianOK = true
		}
	}

	return r, nil
}

func (r *Result) ConfidenceLevel() Probability        { return r.confidence }
func (r *Result) LowerBound() Probability             { return r.lower }
func (r *Result) UpperBound() Probability             { return r.upper }
func (r *Result) PriorParameters() BetaParameters     { return r.prior }
func (r *Result) PosteriorParameters() BetaParameters { return r.posterior }
func (r *Result) SampleSize() int                     { return r.sampleSize }
func (r *Result) Successes() int                      { return r.successes }
func (r *Result) Failures() int                       { return r.sampleSize - r.successes }
func (r *Result) MeanProbability() Probability        { return r.mean }
func (r *Result) Width() float64                      { return float64(r.upper - r.lower) }

// MedianProbability returns the approximate posterior median. ok is false
// when either posterior shape is <= 1, where the approximation does not apply.
func (r *Result) MedianProbability() (median Probability, ok bool) {
	return r.median, r.medianOK
}

// EmpiricalRate returns successes / sample size (the maximum likelihood estimate)
func (r *Result) EmpiricalRate() float64 {
	if r.sampleSize == 0 {
		return 0
	}
	return float64(r.successes) / float64(r.sampleSize)
}

// Contains reports whether p lies inside the credible interval
func (r *Result) Contains(p float64) bool {
	return p >= float64(r.lower) && p <= float64(r.upper)
}

type resultJSON struct {
	ConfidenceLevel     float64        `json:"confidence_level"`
	LowerBound          float64        `json:"lower_bound"`
	UpperBound          float64        `json:"upper_bound"`
	PriorParameters     BetaParameters `json:"prior_parameters"`
	PosteriorParameters BetaParameters `json:"posterior_parameters"`
	SampleSize          int            `json:"sample_size"`
	Successes           int            `json:"successes"`
	MeanProbability     float64        `json:"mean_probability"`
	MedianProbability   *float64       `json:"median_probability"`
	IntervalWidth       float64        `json:"interval_width"`
}

// MarshalJSON renders the result as a flat document
func (r *Result) MarshalJSON() ([]byte, error) {
	doc := resultJSON{
		ConfidenceLevel:     r.confidence.Float64(),
		LowerBound:          r.lower.Float64(),
		UpperBound:          r.upper.Float64(),
		PriorParameters:     r.prior,
		PosteriorParameters: r.posterior,
		SampleSize:          r.sampleSize,
		Successes:           r.successes,
		MeanProbability:     r.mean.Float64(),
		IntervalWidth:       r.Width(),
	}
	if m, ok := r.MedianProbability(); ok {
		v := m.Float64()
		doc.MedianProbability = &v
	}
	return json.Marshal(doc)
}
