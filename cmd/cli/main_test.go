package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObservations(t *testing.T) {
	obs, err := parseObservations("1,0, yes\tno\ntrue")
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, true, false, true}, obs)

	obs, err = parseObservations("")
	require.NoError(t, err)
	assert.Empty(t, obs)

	_, err = parseObservations("1,maybe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "observation 2")
}

// execute runs the CLI against a throwaway bolt store
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("BOLT_PATH", filepath.Join(t.TempDir(), "runs.db"))
	t.Setenv("LOG_LEVEL", "")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPriorsCommand(t *testing.T) {
	out, err := execute(t, "priors")
	require.NoError(t, err)

	assert.Contains(t, out, "LABEL")
	assert.Contains(t, out, "Jeffreys")
	assert.Contains(t, out, "Very_strong_Gaussian_like")
	assert.Regexp(t, `Uniform\s+1\s+1\s+0\.5000`, out)
}

func TestCalibrateCommandJSON(t *testing.T) {
	out, err := execute(t, "calibrate", "--successes", "4", "--trials", "6", "--prior", "Uniform", "--json", "--save")
	require.NoError(t, err)

	var resp struct {
		RunID  string `json:"run_id"`
		Result struct {
			SampleSize          int `json:"sample_size"`
			Successes           int `json:"successes"`
			PosteriorParameters struct {
				Alpha float64 `json:"alpha"`
				Beta  float64 `json:"beta"`
			} `json:"posterior_parameters"`
			LowerBound      float64 `json:"lower_bound"`
			UpperBound      float64 `json:"upper_bound"`
			ConfidenceLevel float64 `json:"confidence_level"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)

	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, 6, resp.Result.SampleSize)
	assert.Equal(t, 4, resp.Result.Successes)
	assert.Equal(t, 5.0, resp.Result.PosteriorParameters.Alpha)
	assert.Equal(t, 3.0, resp.Result.PosteriorParameters.Beta)
	assert.Equal(t, 0.95, resp.Result.ConfidenceLevel)
	assert.Less(t, resp.Result.LowerBound, 0.625)
	assert.Greater(t, resp.Result.UpperBound, 0.625)
}

func TestCalibrateCommandRejectsEmptyData(t *testing.T) {
	_, err := execute(t, "calibrate", "--data", "")
	require.Error(t, err)
	assert.Equal(t, "invalid input: data must not be empty", err.Error())
}
