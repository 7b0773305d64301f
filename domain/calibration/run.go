package calibration

import (
	"database/sql"
	"encoding/json"
	"time"

	"gocalib/domain/core"
)

// Run is a persisted calibration: the flattened result plus bookkeeping.
type Run struct {
	ID             core.ID         `json:"id" db:"id"`
	PriorLabel     string          `json:"prior_label" db:"prior_label"`
	PriorAlpha     float64         `json:"prior_alpha" db:"prior_alpha"`
	PriorBeta      float64         `json:"prior_beta" db:"prior_beta"`
	PosteriorAlpha float64         `json:"posterior_alpha" db:"posterior_alpha"`
	PosteriorBeta  float64         `json:"posterior_beta" db:"posterior_beta"`
	Confidence     float64         `json:"confidence" db:"confidence"`
	LowerBound     float64         `json:"lower_bound" db:"lower_bound"`
	UpperBound     float64         `json:"upper_bound" db:"upper_bound"`
	Mean           float64         `json:"mean" db:"mean"`
	Median         sql.NullFloat64 `json:"-" db:"median"`
	SampleSize     int             `json:"sample_size" db:"sample_size"`
	Successes      int             `json:"successes" db:"successes"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// NewRun snapshots a result under a fresh time-ordered ID
func NewRun(priorLabel string, r *Result) *Run {
	run := &Run{
		ID:             core.NewID(),
		PriorLabel:     priorLabel,
		PriorAlpha:     r.PriorParameters().Alpha,
		PriorBeta:      r.PriorParameters().Beta,
		PosteriorAlpha: r.PosteriorParameters().Alpha,
		PosteriorBeta:  r.PosteriorParameters().Beta,
		Confidence:     r.ConfidenceLevel().Float64(),
		LowerBound:     r.LowerBound().Float64(),
		UpperBound:     r.UpperBound().Float64(),
		Mean:           r.MeanProbability().Float64(),
		SampleSize:     r.SampleSize(),
		Successes:      r.Successes(),
		CreatedAt:      time.Now().UTC(),
	}
	if m, ok := r.MedianProbability(); ok {
		run.Median = sql.NullFloat64{Float64: m.Float64(), Valid: true}
	}
	return run
}

// MedianValue returns the stored median, if any
func (r *Run) MedianValue() *float64 {
	if !r.Median.Valid {
		return nil
	}
	v := r.Median.Float64
	return &v
}

type runAlias Run

type runJSON struct {
	*runAlias
	Median *float64 `json:"median"`
}

// MarshalJSON encodes the nullable median as a JSON null or number
func (r *Run) MarshalJSON() ([]byte, error) {
	return json.Marshal(runJSON{runAlias: (*runAlias)(r), Median: r.MedianValue()})
}

// UnmarshalJSON is the inverse of MarshalJSON
func (r *Run) UnmarshalJSON(data []byte) error {
	doc := runJSON{runAlias: (*runAlias)(r)}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	r.Median = sql.NullFloat64{}
	if doc.Median != nil {
		r.Median = sql.NullFloat64{Float64: *doc.Median, Valid: true}
	}
	return nil
}
