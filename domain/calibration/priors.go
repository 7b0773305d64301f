package calibration

import (
	"fmt"
	"strings"

	"gocalib/domain/core"
)

// NamedPrior is a labeled Beta prior from the preset catalog
type NamedPrior struct {
	Label      string         `json:"label"`
	Parameters BetaParameters `json:"parameters"`
}

// Prior labels
const (
	PriorJeffreys               = "Jeffreys"
	PriorUniform                = "Uniform"
	PriorWeakGaussianLike       = "Weak_Gaussian_like"
	PriorModerateGaussianLike   = "Moderate_Gaussian_like"
	PriorStrongGaussianLike     = "Strong_Gaussian_like"
	PriorVeryStrongGaussianLike = "Very_strong_Gaussian_like"
	PriorLaplace                = "Laplace"
	PriorJeffreysLike           = "Jeffreys_like"
)

// CustomPriorLabel names priors supplied directly by the caller
const CustomPriorLabel = "Custom"

var priorCatalog = [...]NamedPrior{
	{Label: PriorJeffreys, Parameters: BetaParameters{Alpha: 0.5, Beta: 0.5}},
	{Label: PriorUniform, Parameters: BetaParameters{Alpha: 1, Beta: 1}},
	{Label: PriorWeakGaussianLike, Parameters: BetaParameters{Alpha: 2, Beta: 2}},
	{Label: PriorModerateGaussianLike, Parameters: BetaParameters{Alpha: 5, Beta: 5}},
	{Label: PriorStrongGaussianLike, Parameters: BetaParameters{Alpha: 10, Beta: 10}},
	{Label: PriorVeryStrongGaussianLike, Parameters: BetaParameters{Alpha: 20, Beta: 20}},
	{Label: PriorLaplace, Parameters: BetaParameters{Alpha: 50, Beta: 50}},
	{Label: PriorJeffreysLike, Parameters: BetaParameters{Alpha: 100, Beta: 100}},
}

// Priors returns the preset catalog in declaration order.
// The returned slice is a copy; mutating it does not affect the catalog.
func Priors() []NamedPrior {
	out := make([]NamedPrior, len(priorCatalog))
	copy(out, priorCatalog[:])
	return out
}

// PriorLabels returns the catalog labels in declaration order
func PriorLabels() []string {
	labels := make([]string, len(priorCatalog))
	for i, p := range priorCatalog {
		labels[i] = p.Label
	}
	return labels
}

// LookupPrior finds a catalog entry by label, ignoring case and surrounding space
func LookupPrior(label string) (NamedPrior, error) {
	want := strings.TrimSpace(label)
	for _, p := range priorCatalog {
		if strings.EqualFold(p.Label, want) {
			return p, nil
		}
	}
	return NamedPrior{}, fmt.Errorf("%w %q (known: %s)", core.ErrUnknownPrior, label, strings.Join(PriorLabels(), ", "))
}

// MustLookupPrior is LookupPrior for labels known at compile time
func MustLookupPrior(label string) NamedPrior {
	p, err := LookupPrior(label)
	if err != nil {
		panic(err)
	}
	return p
}

// ResolvePrior picks a prior from either a catalog label or explicit shape parameters.
// Explicit parameters win when both alpha and beta are given; giving only one is an error.
func ResolvePrior(label string, alpha, beta *float64) (NamedPrior, error) {
	switch {
	case alpha != nil && beta != nil:
		params, err := NewBetaParameters(*alpha, *beta)
		if err != nil {
			return NamedPrior{}, err
		}
		return NamedPrior{Label: CustomPriorLabel, Parameters: params}, nil
	case alpha != nil || beta != nil:
		return NamedPrior{}, core.NewValidationError("prior", "needs both alpha and beta")
	case strings.TrimSpace(label) == "":
		return MustLookupPrior(PriorJeffreys), nil
	default:
		return LookupPrior(label)
	}
}
