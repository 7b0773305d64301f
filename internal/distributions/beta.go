package distributions

import (
	"fmt"
	"math"

	"gocalib/domain/core"

	"gonum.org/v1/gonum/stat/distuv"
)

// StatisticalDistributions provides validated access to the Beta distribution.
// gonum panics on out-of-domain arguments; every method here turns that into an error.
type StatisticalDistributions struct{}

// NewDistributions creates a new distributions utility
func NewDistributions() *StatisticalDistributions {
	return &StatisticalDistributions{}
}

// BetaQuantile computes the inverse CDF of Beta(alpha, beta) at p
func (sd *StatisticalDistributions) BetaQuantile(p, alpha, beta float64) (float64, error) {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, core.NewNumericalError("beta quantile", fmt.Sprintf("percentile %v outside [0, 1]", p))
	}
	if err := checkShapes("beta quantile", alpha, beta); err != nil {
		return 0, err
	}

	x := distuv.Beta{Alpha: alpha, Beta: beta}.Quantile(p)
	if math.IsNaN(x) || x < 0 || x > 1 {
		return 0, core.NewNumericalError("beta quantile", fmt.Sprintf("Beta(%g, %g) at p=%v returned %v", alpha, beta, p, x))
	}
	return x, nil
}

// BetaPDF computes the density of Beta(alpha, beta) at x; zero outside [0, 1]
func (sd *StatisticalDistributions) BetaPDF(x, alpha, beta float64) (float64, error) {
	if err := checkShapes("beta pdf", alpha, beta); err != nil {
		return 0, err
	}
	if x < 0 || x > 1 {
		return 0, nil
	}
	return distuv.Beta{Alpha: alpha, Beta: beta}.Prob(x), nil
}

func checkShapes(op string, alpha, beta float64) error {
	if !(alpha > 0) || math.IsInf(alpha, 0) || !(beta > 0) || math.IsInf(beta, 0) {
		return core.NewNumericalError(op, fmt.Sprintf("shape parameters must be positive and finite, got alpha=%v beta=%v", alpha, beta))
	}
	return nil
}
