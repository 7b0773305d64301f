package experiment

import (
	"fmt"
	"os"
	"strings"

	"gocalib/domain/calibration"
	"gocalib/domain/core"

	"gopkg.in/yaml.v3"
)

// Kind selects which driver a definition runs
type Kind string

const (
	KindTrials      Kind = "trials"
	KindConvergence Kind = "convergence"
)

// Definition is a declarative experiment loaded from YAML
type Definition struct {
	Name            string   `yaml:"name"`
	Kind            Kind     `yaml:"kind"`
	TrueProbability float64  `yaml:"true_probability"`
	Prior           string   `yaml:"prior"`
	Alpha           *float64 `yaml:"alpha,omitempty"`
	Beta            *float64 `yaml:"beta,omitempty"`
	Confidence      float64  `yaml:"confidence"`
	Seed            int64    `yaml:"seed"`
	Sizes           []int    `yaml:"sizes,omitempty"`
	MaxSize         int      `yaml:"max_size,omitempty"`
	Output          Outputs  `yaml:"output"`
}

// Outputs lists the files a definition writes; empty paths are skipped
type Outputs struct {
	CSV    string `yaml:"csv,omitempty"`
	XLSX   string `yaml:"xlsx,omitempty"`
	Figure string `yaml:"figure,omitempty"`
	Report string `yaml:"report,omitempty"`
}

// LoadDefinition reads, defaults and validates a YAML experiment definition
func LoadDefinition(path string) (*Definition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read experiment definition: %w", err)
	}
	return ParseDefinition(raw)
}

// ParseDefinition decodes a definition from YAML bytes
func ParseDefinition(raw []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return nil, core.NewValidationError("definition", err.Error())
	}
	if err := def.Normalize(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Normalize fills defaults and validates; definitions built in code go through it too
func (d *Definition) Normalize() error {
	d.applyDefaults()
	return d.Validate()
}

func (d *Definition) applyDefaults() {
	d.Kind = Kind(strings.ToLower(strings.TrimSpace(string(d.Kind))))
	if d.Kind == "" {
		d.Kind = KindTrials
	}
	if d.Confidence == 0 {
		d.Confidence = calibration.DefaultConfidence.Float64()
	}
	if d.Prior == "" && d.Alpha == nil && d.Beta == nil {
		d.Prior = calibration.PriorJeffreys
	}
	if d.Kind == KindTrials && len(d.Sizes) == 0 {
		d.Sizes = append([]int(nil), DefaultTrialSizes...)
	}
	if d.Kind == KindConvergence && d.MaxSize == 0 {
		d.MaxSize = DefaultMaxSize
	}
	if d.Name == "" {
		d.Name = string(d.Kind)
	}
}

// Validate checks a definition without touching the filesystem
func (d *Definition) Validate() error {
	switch d.Kind {
	case KindTrials, KindConvergence:
	default:
		return core.NewValidationError("kind", fmt.Sprintf("must be %q or %q, got %q", KindTrials, KindConvergence, d.Kind))
	}
	if !(d.TrueProbability >= 0 && d.TrueProbability <= 1) {
		return core.NewConstraintError("true_probability", d.TrueProbability, "must lie in [0, 1]")
	}
	if _, err := calibration.NewProbability(d.Confidence); err != nil {
		return err
	}
	if _, err := d.NamedPrior(); err != nil {
		return err
	}
	for _, size := range d.Sizes {
		if size <= 0 {
			return core.NewValidationError("sizes", fmt.Sprintf("must all be > 0, got %d", size))
		}
	}
	if d.MaxSize < 0 {
		return core.NewValidationError("max_size", fmt.Sprintf("must be > 0, got %d", d.MaxSize))
	}
	return nil
}

// NamedPrior resolves the prior the definition asks for
func (d *Definition) NamedPrior() (calibration.NamedPrior, error) {
	return calibration.ResolvePrior(d.Prior, d.Alpha, d.Beta)
}

// TrialsConfig converts the definition into runner settings
func (d *Definition) TrialsConfig() (TrialsConfig, error) {
	prior, err := d.NamedPrior()
	if err != nil {
		return TrialsConfig{}, err
	}
	confidence, err := calibration.NewProbability(d.Confidence)
	if err != nil {
		return TrialsConfig{}, err
	}
	return TrialsConfig{
		TrueProbability: d.TrueProbability,
		Sizes:           d.Sizes,
		Prior:           prior,
		Confidence:      confidence,
		Seed:            d.Seed,
	}, nil
}

// ConvergenceConfig converts the definition into runner settings
func (d *Definition) ConvergenceConfig() (ConvergenceConfig, error) {
	prior, err := d.NamedPrior()
	if err != nil {
		return ConvergenceConfig{}, err
	}
	confidence, err := calibration.NewProbability(d.Confidence)
	if err != nil {
		return ConvergenceConfig{}, err
	}
	return ConvergenceConfig{
		TrueProbability: d.TrueProbability,
		MaxSize:         d.MaxSize,
		Prior:           prior,
		Confidence:      confidence,
		Seed:            d.Seed,
	}, nil
}
