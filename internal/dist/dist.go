// Package dist provides the sampling primitives used by the cohort generator.
// Every function takes an explicit *rand.Rand so a run is fully determined by
// its seed; nothing here touches the global random source.
package dist

import (
	"math/rand/v2"
)

// maxRejections bounds the rejection loop in TruncNormal. With sane bounds the
// loop almost never runs more than a handful of times; the fallback clamp only
// matters when a correction shift pushes the mean far outside [lo, hi].
const maxRejections = 100

// TruncNormal draws from a normal distribution with the given mean and
// standard deviation, shifted by shift, truncated to [lo, hi] via rejection
// sampling. If no draw lands inside the bounds the shifted mean is clamped
// into range. When the bounds are tight relative to std the truncation itself
// biases the realized mean; callers treat that as an accepted approximation.
func TruncNormal(rng *rand.Rand, mean, std, lo, hi, shift float64) float64 {
	m := mean + shift
	for i := 0; i < maxRejections; i++ {
		v := rng.NormFloat64()*std + m
		if v >= lo && v <= hi {
			return v
		}
	}
	if m < lo {
		return lo
	}
	if m > hi {
		return hi
	}
	return m
}

// Bernoulli draws a boolean with probability p scaled by multiplier. The
// effective probability is clamped to [0, 1] after scaling.
func Bernoulli(rng *rand.Rand, p, multiplier float64) bool {
	eff := p * multiplier
	if eff < 0 {
		eff = 0
	}
	if eff > 1 {
		eff = 1
	}
	return rng.Float64() < eff
}

// Coin draws a boolean with probability pHeads of being true.
func Coin(rng *rand.Rand, pHeads float64) bool {
	return Bernoulli(rng, pHeads, 1.0)
}

// Categorical draws an index from weights, with the weight at biasIndex
// multiplied by biasFactor before normalization. A biasIndex of -1 or a
// biasFactor of 1 leaves the weights untouched. Weights need not sum to 1;
// they are normalized internally. Panics if all effective weights are zero.
func Categorical(rng *rand.Rand, weights []float64, biasIndex int, biasFactor float64) int {
	total := 0.0
	for i, w := range weights {
		if i == biasIndex {
			w *= biasFactor
		}
		total += w
	}
	if total <= 0 {
		panic("dist: categorical weights sum to zero")
	}

	r := rng.Float64() * total
	acc := 0.0
	for i, w := range weights {
		if i == biasIndex {
			w *= biasFactor
		}
		acc += w
		if r < acc {
			return i
		}
	}
	return len(weights) - 1
}

// Uniform draws a value uniformly from [lo, hi).
func Uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// NonNegNormal draws from a shifted normal distribution floored at zero.
// Used for count-like metrics such as nightly awakenings.
func NonNegNormal(rng *rand.Rand, mean, std, shift float64) float64 {
	v := rng.NormFloat64()*std + mean + shift
	if v < 0 {
		return 0
	}
	return v
}

// New returns a PCG-backed source seeded deterministically from seed. The
// second stream word is a fixed odd constant so distinct seeds give unrelated
// streams.
func New(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 0x9e3779b97f4a7c15))
}
