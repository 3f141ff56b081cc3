package fetch

import (
	"math"
	"math/rand"
	"time"
)

// retryPolicy decides whether a failed attempt should be retried and how
// long to wait before the next one, the same exponential-backoff-plus-jitter
// shape as the teacher's RetryHandler.
type retryPolicy struct {
	maxRetries   int
	baseDelay    time.Duration
	maxDelay     time.Duration
	enableJitter bool
}

func newRetryPolicy(cfg Config) retryPolicy {
	return retryPolicy{
		maxRetries:   cfg.MaxRetries,
		baseDelay:    cfg.BaseDelay,
		maxDelay:     cfg.MaxDelay,
		enableJitter: cfg.EnableJitter,
	}
}

// shouldRetry reports whether attempt (0-indexed) may be retried for the
// given response status code. Only server-side and rate-limit statuses are
// retried; client errors other than 429 are treated as permanent.
func (p retryPolicy) shouldRetry(statusCode int, attempt int) bool {
	if attempt >= p.maxRetries {
		return false
	}
	if statusCode == 429 {
		return true
	}
	return statusCode >= 500 && statusCode <= 599
}

func (p retryPolicy) delay(attempt int) time.Duration {
	if attempt <= 0 {
		return p.baseDelay
	}
	d := float64(p.baseDelay) * math.Pow(2, float64(attempt))
	if d > float64(p.maxDelay) {
		d = float64(p.maxDelay)
	}
	if p.enableJitter {
		d = d * (0.5 + rand.Float64()*0.5)
	}
	return time.Duration(d)
}
