package experiment

import (
	"fmt"
	"math/rand"

	"gocalib/domain/core"
)

// GenerateBinaryData draws size Bernoulli(prob) outcomes from rng
func GenerateBinaryData(rng *rand.Rand, prob float64, size int) ([]bool, error) {
	if !(prob >= 0 && prob <= 1) {
		return nil, core.NewValidationError("true_probability", fmt.Sprintf("must lie in [0, 1], got %v", prob))
	}
	if size <= 0 {
		return nil, core.NewValidationError("size", fmt.Sprintf("must be > 0, got %d", size))
	}

	data := make([]bool, size)
	for i := range data {
		data[i] = rng.Float64() < prob
	}
	return data, nil
}

// streamSeed derives an independent, reproducible seed for the i-th stream of a run
func streamSeed(base int64, i int) int64 {
	return base*1_000_003 + int64(i)
}

// newStream returns the RNG for stream i of a run seeded with base
func newStream(base int64, i int) *rand.Rand {
	return rand.New(rand.NewSource(streamSeed(base, i)))
}

// CountSuccesses returns the number of true outcomes
func CountSuccesses(data []bool) int {
	n := 0
	for _, ok := range data {
		if ok {
			n++
		}
	}
	return n
}
