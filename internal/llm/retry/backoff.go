package retry

import (
	"math"
	"math/rand/v2"
	"time"
)

// jitterFloor is the lower bound of the multiplicative jitter factor.
// Jitter only reduces a computed delay, by at most 25%, so the backoff
// ceiling is never exceeded.
const jitterFloor = 0.75

// backoff computes the delay after a failed attempt (1-based):
// min(MaxDelay, BaseDelay * ExponentialBase^(attempt-1)), optionally
// scaled by a uniform random factor in [jitterFloor, 1.0].
func (p Policy) backoff(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}

	delay := float64(p.BaseDelay) * math.Pow(p.ExponentialBase, float64(attempt-1))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}

	if p.Jitter {
		// math/rand/v2 is thread-safe without seeding.
		factor := jitterFloor + (1-jitterFloor)*rand.Float64()
		delay *= factor
	}

	return time.Duration(delay)
}
