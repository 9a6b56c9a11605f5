// Package backoff computes inter-attempt wait durations for the retry
// controller. The minimum wait is the floor of the growth curve, never the
// sole delay; Retry-After handling lives with the caller.
package backoff

import (
	"math/rand"
	"time"
)

// Strategy is a backoff calculation algorithm.
type Strategy interface {
	// Delay returns the wait before attempt n+1 given the 0-based number of
	// the attempt that just failed. minWait is the floor, maxWait the cap.
	Delay(attempt int, minWait, maxWait time.Duration, multiplier, jitter float64) time.Duration
}

// ExponentialJitter grows the wait geometrically from minWait and adds
// uniform jitter. This is the default strategy.
type ExponentialJitter struct{}

// Delay implements Strategy.
func (ExponentialJitter) Delay(attempt int, minWait, maxWait time.Duration, multiplier, jitter float64) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// Limit the exponent so the float math cannot overflow.
	if attempt > 30 {
		attempt = 30
	}

	wait := time.Duration(float64(minWait) * pow(multiplier, attempt))
	if wait < minWait || wait > maxWait {
		wait = maxWait
	}

	jitter = clampJitter(jitter)
	if jitter > 0 {
		amount := time.Duration(float64(wait) * jitter * rand.Float64())
		if wait+amount > maxWait {
			wait = maxWait
		} else {
			wait += amount
		}
	}
	if wait < minWait {
		wait = minWait
	}
	return wait
}

// DecorrelatedJitter implements AWS-style decorrelated jitter:
// random_between(base, min(cap, base * 3^attempt)). It smooths tail
// latencies compared to exponential jitter; the jitter and multiplier
// parameters are ignored.
type DecorrelatedJitter struct{}

// Delay implements Strategy.
func (DecorrelatedJitter) Delay(attempt int, minWait, maxWait time.Duration, _, _ float64) time.Duration {
	if attempt <= 0 {
		return minWait
	}
	if attempt > 10 {
		attempt = 10
	}

	base := float64(minWait)
	upper := base * pow(3.0, attempt)

	capf := float64(maxWait)
	if upper > capf || upper < 0 {
		upper = capf
	}
	if upper < base {
		upper = base
	}

	wait := time.Duration(base + rand.Float64()*(upper-base))
	if wait < 0 || wait > maxWait {
		wait = maxWait
	}
	if wait < minWait {
		wait = minWait
	}
	return wait
}

func clampJitter(jitter float64) float64 {
	if jitter < 0 {
		return 0
	}
	if jitter > 1 {
		return 1
	}
	return jitter
}

func pow(base float64, exponent int) float64 {
	result := 1.0
	for i := 0; i < exponent; i++ {
		result *= base
	}
	return result
}
