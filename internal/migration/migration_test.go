package migration

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStepsAreIdempotentDDL(t *testing.T) {
	r := NewRunner()
	assert.Equal(t, "1.0.0", r.Version())

	steps := r.steps()
	assert.NotEmpty(t, steps)
	for _, s := range steps {
		assert.Contains(t, s.sql, "IF NOT EXISTS", s.name)
	}
}

func TestCalibrationRunsTableMatchesRunColumns(t *testing.T) {
	for _, column := range []string{
		"id", "prior_label", "prior_alpha", "prior_beta", "posterior_alpha", "posterior_beta",
		"confidence", "lower_bound", "upper_bound", "mean", "median", "sample_size", "successes", "created_at",
	} {
		assert.True(t, strings.Contains(createCalibrationRunsTable, "\t\t"+column+" "), column)
	}
}
