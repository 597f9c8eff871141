package clients

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/ajitpratap0/nebula-fdw/pkg/config"
	"github.com/ajitpratap0/nebula-fdw/pkg/errors"
)

// RetryPolicy defines transport retry behavior with exponential backoff.
type RetryPolicy struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	Multiplier      float64
	RandomizeFactor float64
}

// DefaultRetryPolicy returns a sensible default retry policy
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:     3,
		InitialDelay:    1 * time.Second,
		MaxDelay:        30 * time.Second,
		Multiplier:      2.0,
		RandomizeFactor: 0.25,
	}
}

// NoRetryPolicy returns a policy that makes a single attempt
func NoRetryPolicy() *RetryPolicy {
	return &RetryPolicy{MaxAttempts: 1}
}

// RetryPolicyFromConfig builds a policy from the reliability section.
// RetryAttempts counts retries, so the policy makes one more attempt.
func RetryPolicyFromConfig(cfg config.ReliabilityConfig) *RetryPolicy {
	rp := DefaultRetryPolicy()
	rp.MaxAttempts = cfg.RetryAttempts + 1
	if cfg.RetryDelay > 0 {
		rp.InitialDelay = cfg.RetryDelay
	}
	if cfg.MaxRetryDelay > 0 {
		rp.MaxDelay = cfg.MaxRetryDelay
	}
	if cfg.RetryMultiplier >= 1 {
		rp.Multiplier = cfg.RetryMultiplier
	}
	return rp
}

// Execute runs fn until it succeeds, attempts run out, or shouldRetry
// rejects the error. A nil shouldRetry uses errors.IsRetryable.
// The last error is returned as is so callers can classify it.
func (rp *RetryPolicy) Execute(ctx context.Context, fn func() error, shouldRetry func(error) bool) error {
	if shouldRetry == nil {
		shouldRetry = errors.IsRetryable
	}
	attempts := rp.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !shouldRetry(err) || attempt == attempts-1 {
			break
		}

		timer := time.NewTimer(rp.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Wrap(ctx.Err(), errors.ErrorTypeTimeout, "retry cancelled").
				WithDetail("last_error", lastErr.Error())
		case <-timer.C:
		}
	}
	return lastErr
}

// Delay returns the backoff before the retry following attempt.
func (rp *RetryPolicy) Delay(attempt int) time.Duration {
	multiplier := rp.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	delay := float64(rp.InitialDelay) * math.Pow(multiplier, float64(attempt))

	if rp.MaxDelay > 0 && delay > float64(rp.MaxDelay) {
		delay = float64(rp.MaxDelay)
	}

	// jitter
	if rp.RandomizeFactor > 0 {
		delta := delay * rp.RandomizeFactor
		delay = delay - delta + rand.Float64()*(2*delta)
	}
	return time.Duration(delay)
}
