package experiment

import (
	"context"
	"errors"
	"testing"

	"gocalib/domain/calibration"
	"gocalib/domain/core"
	"gocalib/internal"
	"gocalib/internal/calibrator"
	"gocalib/internal/distributions"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCalibrator struct {
	mock.Mock
}

func (m *MockCalibrator) Calibrate(observations []bool, prior calibration.BetaParameters, confidence calibration.Probability) (*calibration.Result, error) {
	args := m.Called(observations, prior, confidence)
	if r := args.Get(0); r != nil {
		return r.(*calibration.Result), args.Error(1)
	}
	return nil, args.Error(1)
}

func newTestRunner(concurrency int) *Runner {
	return NewRunner(calibrator.New(distributions.NewDistributions(), internal.NewNopLogger()), concurrency, internal.NewNopLogger())
}

func trialsConfig() TrialsConfig {
	return TrialsConfig{
		TrueProbability: 0.3,
		Prior:           calibration.MustLookupPrior(calibration.PriorJeffreys),
		Confidence:      calibration.DefaultConfidence,
		Seed:            42,
	}
}

func TestRunTrialsUsesDefaultSizesInOrder(t *testing.T) {
	records, err := newTestRunner(4).RunTrials(context.Background(), trialsConfig())
	require.NoError(t, err)
	require.Len(t, records, len(DefaultTrialSizes))

	for i, rec := range records {
		assert.Equal(t, DefaultTrialSizes[i], rec.Size)
		assert.Equal(t, 0.3, rec.TrueProbability)
		assert.Equal(t, calibration.PriorJeffreys, rec.PriorLabel)
		assert.LessOrEqual(t, rec.LowerBound, rec.Calibrated)
		assert.GreaterOrEqual(t, rec.UpperBound, rec.Calibrated)
		assert.Equal(t, 0.95, rec.Confidence)
		require.NotNil(t, rec.Result)
		assert.InDelta(t, rec.Result.EmpiricalRate(), rec.EMV, 1e-12)
		assert.Equal(t, rec.LowerBound <= 0.3 && 0.3 <= rec.UpperBound, rec.CoversTruth, "size %d", rec.Size)
	}
}

func TestRunTrialsDeterministicAcrossConcurrency(t *testing.T) {
	serial, err := newTestRunner(1).RunTrials(context.Background(), trialsConfig())
	require.NoError(t, err)
	parallel, err := newTestRunner(8).RunTrials(context.Background(), trialsConfig())
	require.NoError(t, err)

	for i := range serial {
		assert.Equal(t, serial[i].EMV, parallel[i].EMV)
		assert.Equal(t, serial[i].LowerBound, parallel[i].LowerBound)
		assert.Equal(t, serial[i].UpperBound, parallel[i].UpperBound)
	}
}

func TestRunTrialsIntervalsNarrowWithSize(t *testing.T) {
	cfg := trialsConfig()
	cfg.Sizes = []int{10, 10000}

	records, err := newTestRunner(2).RunTrials(context.Background(), cfg)
	require.NoError(t, err)

	small := records[0].UpperBound - records[0].LowerBound
	large := records[1].UpperBound - records[1].LowerBound
	assert.Less(t, large, small)
	assert.InDelta(t, 0.3, records[1].Calibrated, 0.03)
}

func TestRunTrialsRejectsNonPositiveSize(t *testing.T) {
	cfg := trialsConfig()
	cfg.Sizes = []int{5, 0}

	_, err := newTestRunner(2).RunTrials(context.Background(), cfg)
	assert.True(t, core.IsValidationError(err))
}

func TestRunTrialsPropagatesCalibratorError(t *testing.T) {
	m := new(MockCalibrator)
	m.On("Calibrate", mock.Anything, mock.Anything, mock.Anything).Return(nil, core.NewNumericalError("quantile", "boom"))

	cfg := trialsConfig()
	cfg.Sizes = []int{3}
	_, err := NewRunner(m, 1, internal.NewNopLogger()).RunTrials(context.Background(), cfg)

	require.Error(t, err)
	assert.True(t, core.IsNumericalError(err))
	assert.Contains(t, err.Error(), "size 3")
	m.AssertExpectations(t)
}

func TestRunTrialsHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestRunner(1).RunTrials(ctx, trialsConfig())
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRunConvergence(t *testing.T) {
	cfg := ConvergenceConfig{
		TrueProbability: 0.7,
		MaxSize:         30,
		Prior:           calibration.MustLookupPrior(calibration.PriorUniform),
		Confidence:      calibration.DefaultConfidence,
		Seed:            3,
	}

	points, err := newTestRunner(4).RunConvergence(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, points, 30)

	for i, p := range points {
		assert.Equal(t, i+1, p.Size)
		assert.GreaterOrEqual(t, p.Gap, 0.0)
		assert.InDelta(t, p.Gap, abs(p.EMV-p.Calibrated), 1e-12)
	}

	summary, err := SummarizeConvergence(points)
	require.NoError(t, err)
	assert.LessOrEqual(t, summary.MeanGap, summary.MaxGap)
	assert.Equal(t, points[29].Gap, summary.FinalGap)
}

func TestRunConvergenceDefaultsMaxSize(t *testing.T) {
	points, err := newTestRunner(4).RunConvergence(context.Background(), ConvergenceConfig{
		TrueProbability: 0.5,
		Prior:           calibration.MustLookupPrior(calibration.PriorJeffreys),
		Confidence:      calibration.DefaultConfidence,
	})
	require.NoError(t, err)
	assert.Len(t, points, DefaultMaxSize)
}

func TestSummarizeConvergenceRejectsEmpty(t *testing.T) {
	_, err := SummarizeConvergence(nil)
	assert.True(t, core.IsValidationError(err))
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
