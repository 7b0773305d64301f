package distributions

import (
	"math"
	"testing"

	"gocalib/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"
)

// Beta(a, 1) has CDF x^a, so its quantile is p^(1/a)
func TestBetaQuantileClosedForm(t *testing.T) {
	sd := NewDistributions()

	for _, a := range []float64{0.5, 1, 2, 7.5, 101} {
		for _, p := range []float64{0.001, 0.025, 0.5, 0.975, 0.999} {
			got, err := sd.BetaQuantile(p, a, 1)
			require.NoError(t, err)
			assert.InDelta(t, math.Pow(p, 1/a), got, 1e-8, "a=%v p=%v", a, p)
		}
	}
}

func TestBetaQuantileUniformIsIdentity(t *testing.T) {
	sd := NewDistributions()
	for _, p := range []float64{0, 0.1, 0.5, 0.9, 1} {
		got, err := sd.BetaQuantile(p, 1, 1)
		require.NoError(t, err)
		assert.InDelta(t, p, got, 1e-12)
	}
}

func TestBetaQuantileInvertsCDF(t *testing.T) {
	sd := NewDistributions()
	shapes := [][2]float64{{0.5, 0.5}, {4.5, 2.5}, {100.5, 900.5}, {200, 200}, {0.5, 1000.5}}

	for _, s := range shapes {
		prev := -1.0
		for _, p := range []float64{0.005, 0.025, 0.25, 0.5, 0.75, 0.975, 0.995} {
			x, err := sd.BetaQuantile(p, s[0], s[1])
			require.NoError(t, err)
			assert.GreaterOrEqual(t, x, 0.0)
			assert.LessOrEqual(t, x, 1.0)
			assert.Greater(t, x, prev, "quantile must increase with p for Beta(%v, %v)", s[0], s[1])
			prev = x

			cdf := distuv.Beta{Alpha: s[0], Beta: s[1]}.CDF(x)
			assert.InDelta(t, p, cdf, 1e-6, "Beta(%v, %v) p=%v", s[0], s[1], p)
		}
	}
}

func TestBetaQuantileRejectsBadArguments(t *testing.T) {
	sd := NewDistributions()

	tests := []struct {
		name    string
		p, a, b float64
	}{
		{"negative percentile", -0.1, 1, 1},
		{"percentile above one", 1.1, 1, 1},
		{"nan percentile", math.NaN(), 1, 1},
		{"zero alpha", 0.5, 0, 1},
		{"negative beta", 0.5, 1, -2},
		{"infinite alpha", 0.5, math.Inf(1), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				_, err := sd.BetaQuantile(tt.p, tt.a, tt.b)
				assert.ErrorIs(t, err, core.ErrNumerical)
			})
		})
	}
}

func TestBetaPDF(t *testing.T) {
	sd := NewDistributions()

	pdf, err := sd.BetaPDF(1.5, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 0.0, pdf)

	// Beta(2, 2) density is 6x(1-x)
	pdf, err = sd.BetaPDF(0.25, 2, 2)
	require.NoError(t, err)
	assert.InDelta(t, 6*0.25*0.75, pdf, 1e-12)

	_, err = sd.BetaPDF(0.5, 0, 2)
	assert.ErrorIs(t, err, core.ErrNumerical)
}
