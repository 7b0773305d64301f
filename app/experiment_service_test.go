package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gocalib/internal"
	"gocalib/internal/calibrator"
	"gocalib/internal/errors"
	"gocalib/internal/experiment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExperimentService() *ExperimentService {
	runner := experiment.NewRunner(calibrator.NewDefault(), 4, internal.NewNopLogger())
	return NewExperimentService(runner, internal.NewNopLogger())
}

func TestRunTrialsAppliesDefaults(t *testing.T) {
	rep, err := newExperimentService().RunTrials(context.Background(), &experiment.Definition{TrueProbability: 0.4, Seed: 1})
	require.NoError(t, err)

	assert.Equal(t, "trials", rep.Name)
	assert.Len(t, rep.Records, len(experiment.DefaultTrialSizes))
}

func TestRunConvergenceSummarizes(t *testing.T) {
	rep, err := newExperimentService().RunConvergence(context.Background(), &experiment.Definition{
		TrueProbability: 0.6, MaxSize: 20, Seed: 9, Sizes: []int{1, 2},
	})
	require.NoError(t, err)

	assert.Len(t, rep.Points, 20)
	assert.Equal(t, rep.Points[19].Gap, rep.Summary.FinalGap)
}

func TestRunTrialsRejectsInvalidDefinition(t *testing.T) {
	_, err := newExperimentService().RunTrials(context.Background(), &experiment.Definition{TrueProbability: 2})
	require.Error(t, err)
	assert.Equal(t, errors.CodeConstraintViolation, errors.GetCode(err))
}

func TestExecuteWritesTrialOutputs(t *testing.T) {
	dir := t.TempDir()
	def := &experiment.Definition{
		Name:            "ctr",
		TrueProbability: 0.2,
		Sizes:           []int{5, 50},
		Seed:            3,
		Output: experiment.Outputs{
			CSV:    "out/trials.csv",
			XLSX:   "out/trials.xlsx",
			Figure: "out/trials.png",
			Report: "out/trials.html",
		},
	}

	exec, err := newExperimentService().Execute(context.Background(), def, dir)
	require.NoError(t, err)
	require.NotNil(t, exec.Trials)
	assert.Nil(t, exec.Convergence)
	require.Len(t, exec.Files, 4)

	for _, f := range exec.Files {
		info, err := os.Stat(f)
		require.NoError(t, err, f)
		assert.Greater(t, info.Size(), int64(0))
		assert.True(t, strings.HasPrefix(f, dir))
	}

	html, err := os.ReadFile(filepath.Join(dir, "out", "trials.html"))
	require.NoError(t, err)
	assert.Contains(t, string(html), "<table>")
}

func TestExecuteConvergenceMarkdownReport(t *testing.T) {
	dir := t.TempDir()
	def, err := experiment.ParseDefinition([]byte("kind: convergence\ntrue_probability: 0.5\nmax_size: 10\noutput:\n  report: conv.md\n  csv: conv.csv\n"))
	require.NoError(t, err)

	exec, err := newExperimentService().Execute(context.Background(), def, dir)
	require.NoError(t, err)
	require.NotNil(t, exec.Convergence)
	assert.Len(t, exec.Files, 2)

	md, err := os.ReadFile(filepath.Join(dir, "conv.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "# convergence")
}

func TestExecuteReportsExportFailure(t *testing.T) {
	def := &experiment.Definition{TrueProbability: 0.5, Sizes: []int{3}, Output: experiment.Outputs{Figure: "figure"}}

	_, err := newExperimentService().Execute(context.Background(), def, t.TempDir())
	require.Error(t, err)
	assert.Equal(t, errors.CodeExportFailed, errors.GetCode(err))
}
