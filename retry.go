package fetchx

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/martinj/fetchx/internal/backoff"
)

// BackoffStrategy selects the inter-attempt wait growth algorithm.
type BackoffStrategy int

const (
	// ExponentialJitter grows the wait geometrically with uniform jitter.
	ExponentialJitter BackoffStrategy = iota
	// DecorrelatedJitter applies AWS-style decorrelated jitter.
	DecorrelatedJitter
)

// RetryConfig is the policy governing one logical call. A call's effective
// policy is the client's defaults with any per-call option applied on top,
// field by field.
type RetryConfig struct {
	// Limit is the retry ceiling: a call makes at most Limit+1 attempts.
	Limit int
	// MinWait is the floor for the inter-attempt wait. The backoff strategy
	// grows the actual wait from this floor.
	MinWait time.Duration
	// MaxWait caps the inter-attempt wait produced by the strategy.
	MaxWait time.Duration
	// Multiplier is the backoff growth factor.
	Multiplier float64
	// Jitter is the uniform jitter fraction in [0, 1].
	Jitter float64
	// Strategy selects the wait growth algorithm.
	Strategy BackoffStrategy
	// MaxRetryAfter is the largest server-specified Retry-After the
	// controller will honor. A larger value vetoes the retry entirely.
	MaxRetryAfter time.Duration
	// StatusCodes is the set of response status codes considered retryable.
	StatusCodes []int
	// NetworkErrors enables retrying transport/connectivity failures.
	NetworkErrors bool
	// ShouldRetry, when set, decides failures the built-in rules did not
	// already accept: hook failures, opaque errors, and network errors
	// when NetworkErrors is off.
	ShouldRetry RetryPredicate
	// OnFailedAttempt is notified of every failed attempt.
	OnFailedAttempt AttemptObserver
}

// defaultRetryStatusCodes mirrors the conventional set of transient
// response codes.
var defaultRetryStatusCodes = []int{
	http.StatusRequestTimeout,
	http.StatusRequestEntityTooLarge,
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

func defaultRetryConfig() RetryConfig {
	return RetryConfig{
		Limit:         2,
		MinWait:       100 * time.Millisecond,
		MaxWait:       10 * time.Second,
		Multiplier:    2.0,
		Jitter:        0.1,
		Strategy:      ExponentialJitter,
		MaxRetryAfter: 30 * time.Second,
		StatusCodes:   defaultRetryStatusCodes,
		NetworkErrors: true,
	}
}

func (rc RetryConfig) clone() RetryConfig {
	rc.StatusCodes = append([]int(nil), rc.StatusCodes...)
	return rc
}

func (rc RetryConfig) retryableStatus(code int) bool {
	for _, c := range rc.StatusCodes {
		if c == code {
			return true
		}
	}
	return false
}

func (rc RetryConfig) strategy() backoff.Strategy {
	switch rc.Strategy {
	case DecorrelatedJitter:
		return backoff.DecorrelatedJitter{}
	default:
		return backoff.ExponentialJitter{}
	}
}

// backoffDelay computes the scheduler wait after the given 0-based failed
// attempt, with MinWait as the floor.
func (rc RetryConfig) backoffDelay(attempt int) time.Duration {
	return rc.strategy().Delay(attempt, rc.MinWait, rc.MaxWait, rc.Multiplier, rc.Jitter)
}

// decide classifies a failed attempt. It returns the wait before the next
// attempt and whether one should be made; attempt is 0-based.
func (rc RetryConfig) decide(err error, attempt int) (time.Duration, bool) {
	if attempt >= rc.Limit {
		return 0, false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if !httpErr.ForceRetry && !rc.retryableStatus(httpErr.StatusCode) {
			return 0, false
		}
		if httpErr.Response != nil {
			if wait, ok := retryAfterDelay(httpErr.Response.Header); ok {
				if rc.MaxRetryAfter > 0 && wait > rc.MaxRetryAfter {
					return 0, false
				}
				return wait, true
			}
		}
		return rc.backoffDelay(attempt), true
	}

	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		return 0, false
	}

	var fromHook *hookError
	if !errors.As(err, &fromHook) && rc.NetworkErrors && IsNetworkError(err) {
		return rc.backoffDelay(attempt), true
	}

	// Everything else, including network errors when automatic network
	// retry is off and failures raised inside hooks, is up to the predicate.
	if rc.ShouldRetry != nil {
		att := AttemptContext{Attempt: attempt + 1, RetriesLeft: rc.Limit - attempt, Err: err}
		if rc.ShouldRetry(att) {
			return rc.backoffDelay(attempt), true
		}
	}

	return 0, false
}

// retryAfterDelay derives a wait duration from a Retry-After header. It
// supports both delta-seconds and HTTP-date forms. A date already in the
// past clamps to exactly one millisecond: a present value always means a
// strictly positive wait, and zero would be ambiguous with "no header".
func retryAfterDelay(h http.Header) (time.Duration, bool) {
	value := strings.TrimSpace(h.Get("Retry-After"))
	if value == "" {
		return 0, false
	}

	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		if seconds < 0 {
			return 0, false
		}
		// Saturate before converting; a huge value must stay huge so the
		// MaxRetryAfter ceiling can veto it instead of wrapping negative.
		if seconds >= float64(math.MaxInt64/int64(time.Second)) {
			return time.Duration(math.MaxInt64), true
		}
		return time.Duration(seconds * float64(time.Second)), true
	}

	t, err := http.ParseTime(value)
	if err != nil {
		return 0, false
	}
	wait := time.Until(t)
	if wait <= 0 {
		wait = time.Millisecond
	}
	return wait, true
}
