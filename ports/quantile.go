package ports

// BetaQuantiler supplies the inverse CDF of a Beta distribution.
// Implementations must return x in [0, 1] with BetaCDF(x; alpha, beta) = p,
// monotonically increasing in p, and report domain or convergence failures as errors.
type BetaQuantiler interface {
	BetaQuantile(p, alpha, beta float64) (float64, error)
}
