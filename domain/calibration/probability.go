package calibration

import (
	"math"

	"gocalib/domain/core"
)

// Probability is a real number constrained to the closed interval [0, 1].
// Construct it with NewProbability; a bare conversion such as Probability(2)
// skips validation, and the calibrator then relies on the quantile function
// rejecting the resulting tail outside [0, 1].
type Probability float64

// DefaultConfidence is the confidence level used when the caller has no preference.
var DefaultConfidence = MustProbability(0.95)

// NewProbability validates v and returns it as a Probability
func NewProbability(v float64) (Probability, error) {
	return newNamedProbability("probability", v)
}

// MustProbability is NewProbability for constants; it panics on invalid input.
func MustProbability(v float64) Probability {
	p, err := NewProbability(v)
	if err != nil {
		panic(err)
	}
	return p
}

func newNamedProbability(field string, v float64) (Probability, error) {
	if math.IsNaN(v) {
		return 0, core.NewConstraintError(field, v, "is not a number")
	}
	if v < 0 || v > 1 {
		return 0, core.NewConstraintError(field, v, "must lie in [0, 1]")
	}
	return Probability(v), nil
}

// Float64 returns the underlying value
func (p Probability) Float64() float64 {
	return float64(p)
}
