package calibrator

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"gocalib/domain/calibration"
	"gocalib/domain/core"
	"gocalib/internal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// MockQuantiler lets tests observe and fail quantile calls
type MockQuantiler struct {
	mock.Mock
}

func (m *MockQuantiler) BetaQuantile(p, alpha, beta float64) (float64, error) {
	args := m.Called(p, alpha, beta)
	return args.Get(0).(float64), args.Error(1)
}

func smallData() []bool {
	return []bool{true, false, true, true, false, true} // 4 successes, 2 failures
}

func largeData() []bool {
	data := make([]bool, 0, 1000)
	for i := 0; i < 100; i++ {
		data = append(data, true)
	}
	for i := 0; i < 900; i++ {
		data = append(data, false)
	}
	return data
}

func TestCalibrateOnSmallDataForEveryPrior(t *testing.T) {
	for _, prior := range calibration.Priors() {
		t.Run(prior.Label, func(t *testing.T) {
			result, err := Calibrate(smallData(), prior.Parameters, calibration.DefaultConfidence)
			require.NoError(t, err)

			assert.Equal(t, calibration.DefaultConfidence, result.ConfidenceLevel())

			post := result.PosteriorParameters()
			assert.Equal(t, prior.Parameters.Alpha+4, post.Alpha)
			assert.Equal(t, prior.Parameters.Beta+2, post.Beta)
			assert.Equal(t, prior.Parameters, result.PriorParameters())

			expectedMean := post.Alpha / (post.Alpha + post.Beta)
			assert.Equal(t, expectedMean, result.MeanProbability().Float64())

			assert.Less(t, result.LowerBound().Float64(), result.UpperBound().Float64())
			assert.LessOrEqual(t, result.LowerBound().Float64(), expectedMean)
			assert.GreaterOrEqual(t, result.UpperBound().Float64(), expectedMean)
			assert.Equal(t, 6, result.SampleSize())
		})
	}
}

func TestCalibrateJeffreysScenario(t *testing.T) {
	prior := calibration.MustLookupPrior(calibration.PriorJeffreys).Parameters

	result, err := Calibrate(smallData(), prior, calibration.DefaultConfidence)
	require.NoError(t, err)

	assert.Equal(t, calibration.BetaParameters{Alpha: 4.5, Beta: 2.5}, result.PosteriorParameters())
	assert.InDelta(t, 0.6429, result.MeanProbability().Float64(), 1e-4)
	assert.Less(t, result.LowerBound().Float64(), 0.6429)
	assert.Greater(t, result.UpperBound().Float64(), 0.6429)
	assert.GreaterOrEqual(t, result.LowerBound().Float64(), 0.0)
	assert.LessOrEqual(t, result.UpperBound().Float64(), 1.0)

	median, ok := result.MedianProbability()
	require.True(t, ok)
	assert.InDelta(t, (4.5-1.0/3.0)/(7-2.0/3.0), median.Float64(), 1e-12)
}

// With a uniform prior and n successes the posterior is Beta(n+1, 1), whose
// quantile has the closed form p^(1/(n+1)).
func TestCalibrateAllSuccessesClosedForm(t *testing.T) {
	prior := calibration.MustLookupPrior(calibration.PriorUniform).Parameters
	data := []bool{true, true, true, true, true, true, true, true, true}
	n := float64(len(data))

	result, err := Calibrate(data, prior, calibration.DefaultConfidence)
	require.NoError(t, err)

	assert.InDelta(t, math.Pow(0.025, 1/(n+1)), result.LowerBound().Float64(), 1e-8)
	assert.InDelta(t, math.Pow(0.975, 1/(n+1)), result.UpperBound().Float64(), 1e-8)
	assert.Equal(t, 1.0, result.EmpiricalRate())
	_, ok := result.MedianProbability()
	assert.False(t, ok, "posterior beta of 1 is outside the median approximation's domain")
}

func TestCalibrateOnLargeData(t *testing.T) {
	for _, prior := range calibration.Priors() {
		t.Run(prior.Label, func(t *testing.T) {
			small, err := Calibrate(smallData(), prior.Parameters, calibration.DefaultConfidence)
			require.NoError(t, err)
			large, err := Calibrate(largeData(), prior.Parameters, calibration.DefaultConfidence)
			require.NoError(t, err)

			assert.GreaterOrEqual(t, large.LowerBound().Float64(), 0.0)
			assert.LessOrEqual(t, large.UpperBound().Float64(), 1.0)
			assert.Equal(t, 1000, large.SampleSize())

			post := large.PosteriorParameters()
			assert.Equal(t, post.Alpha/(post.Alpha+post.Beta), large.MeanProbability().Float64())
			assert.True(t, large.Contains(large.MeanProbability().Float64()))
			assert.Less(t, large.Width(), small.Width(), "more data must narrow the interval")
		})
	}
}

func TestCalibrateLargeDataBracketsEmpiricalRate(t *testing.T) {
	result, err := Calibrate(largeData(), calibration.MustLookupPrior(calibration.PriorJeffreys).Parameters, calibration.DefaultConfidence)
	require.NoError(t, err)

	assert.True(t, result.Contains(0.1))
	assert.Less(t, result.Width(), 0.05)
}

func TestCalibrateOnEmptyDataFailsForEveryPrior(t *testing.T) {
	for _, prior := range calibration.Priors() {
		t.Run(prior.Label, func(t *testing.T) {
			result, err := Calibrate([]bool{}, prior.Parameters, calibration.DefaultConfidence)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, core.ErrInvalidInput)
			assert.Contains(t, err.Error(), "data must not be empty")

			_, err = Calibrate(nil, prior.Parameters, calibration.DefaultConfidence)
			assert.ErrorIs(t, err, core.ErrEmptyObservations)
		})
	}
}

func TestCalibrateIntervalWidensWithConfidence(t *testing.T) {
	prior := calibration.MustLookupPrior(calibration.PriorJeffreys).Parameters
	levels := []float64{0.1, 0.5, 0.8, 0.9, 0.95, 0.99, 0.999}

	prevLower, prevUpper := math.Inf(1), math.Inf(-1)
	for _, level := range levels {
		result, err := Calibrate(smallData(), prior, calibration.MustProbability(level))
		require.NoError(t, err)

		assert.Less(t, result.LowerBound().Float64(), prevLower, "confidence %v", level)
		assert.Greater(t, result.UpperBound().Float64(), prevUpper, "confidence %v", level)
		prevLower, prevUpper = result.LowerBound().Float64(), result.UpperBound().Float64()
	}
}

func TestCalibrateDegenerateConfidenceLevels(t *testing.T) {
	prior := calibration.MustLookupPrior(calibration.PriorUniform).Parameters

	full, err := Calibrate(smallData(), prior, calibration.MustProbability(1))
	require.NoError(t, err)
	assert.InDelta(t, 0, full.LowerBound().Float64(), 1e-12)
	assert.InDelta(t, 1, full.UpperBound().Float64(), 1e-12)

	point, err := Calibrate(smallData(), prior, calibration.MustProbability(0))
	require.NoError(t, err)
	assert.InDelta(t, point.LowerBound().Float64(), point.UpperBound().Float64(), 1e-12)
}

func TestCalibrateIsDeterministic(t *testing.T) {
	prior := calibration.MustLookupPrior(calibration.PriorModerateGaussianLike).Parameters

	first, err := Calibrate(smallData(), prior, calibration.DefaultConfidence)
	require.NoError(t, err)
	second, err := Calibrate(smallData(), prior, calibration.DefaultConfidence)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCalibrateIsSafeForConcurrentUse(t *testing.T) {
	c := NewDefault()
	prior := calibration.MustLookupPrior(calibration.PriorJeffreys).Parameters
	expected, err := c.Calibrate(largeData(), prior, calibration.DefaultConfidence)
	require.NoError(t, err)

	var g errgroup.Group
	results := make([]*calibration.Result, 32)
	for i := range results {
		i := i
		g.Go(func() error {
			r, err := c.Calibrate(largeData(), prior, calibration.DefaultConfidence)
			results[i] = r
			return err
		})
	}
	require.NoError(t, g.Wait())

	for _, r := range results {
		assert.Equal(t, expected, r)
	}
}

// Randomized check of the posterior update and interval ordering
func TestCalibratePosteriorUpdateProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	c := NewDefault()

	for i := 0; i < 200; i++ {
		n := 1 + rng.Intn(300)
		data := make([]bool, n)
		successes := 0
		for j := range data {
			data[j] = rng.Float64() < rng.Float64()
			if data[j] {
				successes++
			}
		}
		prior := calibration.BetaParameters{Alpha: 0.5 + rng.Float64()*50, Beta: 0.5 + rng.Float64()*50}

		result, err := c.Calibrate(data, prior, calibration.DefaultConfidence)
		require.NoError(t, err)

		assert.Equal(t, prior.Alpha+float64(successes), result.PosteriorParameters().Alpha)
		assert.Equal(t, prior.Beta+float64(n-successes), result.PosteriorParameters().Beta)
		assert.LessOrEqual(t, 0.0, result.LowerBound().Float64())
		assert.LessOrEqual(t, result.LowerBound().Float64(), result.UpperBound().Float64())
		assert.LessOrEqual(t, result.UpperBound().Float64(), 1.0)
		assert.True(t, result.Contains(result.MeanProbability().Float64()))
	}
}

func TestCalibrateCounts(t *testing.T) {
	c := NewDefault()
	prior := calibration.MustLookupPrior(calibration.PriorJeffreys).Parameters

	fromCounts, err := c.CalibrateCounts(4, 6, prior, calibration.DefaultConfidence)
	require.NoError(t, err)
	fromData, err := c.Calibrate(smallData(), prior, calibration.DefaultConfidence)
	require.NoError(t, err)
	assert.Equal(t, fromData, fromCounts)

	_, err = c.CalibrateCounts(0, 0, prior, calibration.DefaultConfidence)
	assert.ErrorIs(t, err, core.ErrEmptyObservations)

	_, err = c.CalibrateCounts(7, 6, prior, calibration.DefaultConfidence)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = c.CalibrateCounts(-1, 6, prior, calibration.DefaultConfidence)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestCalibrateQueriesQuantileAtBothTails(t *testing.T) {
	q := new(MockQuantiler)
	q.On("BetaQuantile", mock.AnythingOfType("float64"), 4.5, 2.5).Return(0.25, nil).Once()
	q.On("BetaQuantile", mock.AnythingOfType("float64"), 4.5, 2.5).Return(0.85, nil).Once()

	c := New(q, internal.NewNopLogger())
	result, err := c.Calibrate(smallData(), calibration.BetaParameters{Alpha: 0.5, Beta: 0.5}, calibration.MustProbability(0.9))
	require.NoError(t, err)

	assert.Equal(t, 0.25, result.LowerBound().Float64())
	assert.Equal(t, 0.85, result.UpperBound().Float64())
	q.AssertExpectations(t)

	calls := q.Calls
	require.Len(t, calls, 2)
	assert.InDelta(t, 0.05, calls[0].Arguments.Get(0).(float64), 1e-12)
	assert.InDelta(t, 0.95, calls[1].Arguments.Get(0).(float64), 1e-12)
}

func TestCalibratePropagatesQuantileErrors(t *testing.T) {
	failure := core.NewNumericalError("beta quantile", "did not converge")
	q := new(MockQuantiler)
	q.On("BetaQuantile", mock.Anything, mock.Anything, mock.Anything).Return(0.0, failure)

	c := New(q, internal.NewNopLogger())
	_, err := c.Calibrate(smallData(), calibration.BetaParameters{Alpha: 1, Beta: 1}, calibration.DefaultConfidence)
	assert.True(t, errors.Is(err, failure))
	q.AssertNumberOfCalls(t, "BetaQuantile", 1)
}

// Non-positive priors are not validated up front; the quantile primitive rejects them.
func TestCalibrateWithNonPositivePriorSurfacesNumericalError(t *testing.T) {
	_, err := Calibrate([]bool{false}, calibration.BetaParameters{Alpha: -2, Beta: 1}, calibration.DefaultConfidence)
	assert.ErrorIs(t, err, core.ErrNumerical)
}

func TestCalibrateWithUnvalidatedConfidenceSurfacesNumericalError(t *testing.T) {
	// A bare conversion bypasses NewProbability; the negative tail is caught by the quantile
	_, err := Calibrate([]bool{true, false}, calibration.BetaParameters{Alpha: 1, Beta: 1}, calibration.Probability(2))
	assert.ErrorIs(t, err, core.ErrNumerical)
}
