package backoff

import (
	"math/rand"
	"time"
)

// JitDuration returns a random duration from (1-coefficient)*duration to
// (1+coefficient)*duration, inclusive, exclusive.
func JitDuration(duration time.Duration, coefficient float64) time.Duration {
	validateCoefficient(coefficient)

	return time.Duration(JitInt64(duration.Nanoseconds(), coefficient))
}

// JitInt64 returns a random number from (1-coefficient)*input to
// (1+coefficient)*input, inclusive, exclusive.
func JitInt64(input int64, coefficient float64) int64 {
	validateCoefficient(coefficient)

	base := int64(float64(input) * (1 - coefficient))
	addon := rand.Int63n(2 * (input - base))
	return base + addon
}

// AddJitDuration returns duration plus a uniformly random addition in
// [0, duration), i.e. a value in [duration, 2*duration). Used to
// desynchronize many nodes that would otherwise retry in lockstep.
func AddJitDuration(duration time.Duration) time.Duration {
	if duration <= 0 {
		return duration
	}
	// full-coefficient jitter spans [0, 2*duration); halving it leaves the
	// additive component in [0, duration)
	return duration + JitDuration(duration, 1)/2
}

func validateCoefficient(coefficient float64) {
	if coefficient < 0 || coefficient > 1 {
		panic("coefficient cannot be < 0 or > 1")
	}
}
