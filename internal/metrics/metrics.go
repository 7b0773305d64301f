package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	Calibrations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gocalib_calibrations_total", Help: "Calibrations performed, by outcome",
	}, []string{"outcome"})
	CalibrationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gocalib_calibration_duration_seconds",
		Help:    "Time spent computing a posterior and its interval",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
	})
	ExperimentRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gocalib_experiment_runs_total", Help: "Experiment sweeps executed, by kind",
	}, []string{"kind"})
	PersistedRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gocalib_persisted_runs_total", Help: "Calibration runs written to storage",
	})
)

// Outcome labels for Calibrations
const (
	OutcomeOK        = "ok"
	OutcomeInvalid   = "invalid"
	OutcomeNumerical = "numerical"
	OutcomeError     = "error"
)

var registerOnce sync.Once

// MustRegister adds the collectors to the default registry; repeated calls are no-ops
func MustRegister() {
	registerOnce.Do(func() {
		prometheus.MustRegister(Calibrations, CalibrationDuration, ExperimentRuns, PersistedRuns)
	})
}
