package retry_helper

import (
	"context"
	"math"
	"time"

	"fyersbot/go_src/trade_exceptions"

	"github.com/sirupsen/logrus"
)

// Policy retries an operation with exponential backoff.
type Policy struct {
	maxAttempts   int
	initialDelay  time.Duration
	backoffFactor float64

	// Retryable decides whether an error gets another attempt. Defaults to trade_exceptions.IsRetryable.
	Retryable func(error) bool
}

// sleepFunc waits for d or until ctx is done. Tests replace it to avoid real delays.
var sleepFunc = sleepContext

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NewPolicy validates the parameters before any call is attempted.
// maxAttempts is the number of retries after the first call.
func NewPolicy(maxAttempts int, initialDelay time.Duration, backoffFactor float64) (*Policy, error) {
	if backoffFactor <= 1 {
		return nil, &trade_exceptions.ConfigurationError{Message: "backoff factor must be greater than 1", Key: "backoff_factor"}
	}
	if maxAttempts < 0 {
		return nil, &trade_exceptions.ConfigurationError{Message: "max attempts must be 0 or greater", Key: "max_attempts"}
	}
	if initialDelay <= 0 {
		return nil, &trade_exceptions.ConfigurationError{Message: "initial delay must be greater than 0", Key: "initial_delay"}
	}
	return &Policy{
		maxAttempts:   maxAttempts,
		initialDelay:  initialDelay,
		backoffFactor: backoffFactor,
		Retryable:     trade_exceptions.IsRetryable,
	}, nil
}

func mustPolicy(maxAttempts int, initialDelay time.Duration, backoffFactor float64) *Policy {
	p, err := NewPolicy(maxAttempts, initialDelay, backoffFactor)
	if err != nil {
		panic(err)
	}
	return p
}

// LoginPolicy re-drives the whole login sequence: 3 retries, 3s, x2.
func LoginPolicy() *Policy { return mustPolicy(3, 3*time.Second, 2) }

// FetchPolicy covers one idempotent history range fetch: 5 retries, 2s, x2.
func FetchPolicy() *Policy { return mustPolicy(5, 2*time.Second, 2) }

// ScrapePolicy is used for public CSV downloads: 5 retries, 2s, x3.
func ScrapePolicy() *Policy { return mustPolicy(5, 2*time.Second, 3) }

// MaxAttempts returns the number of retries allowed after the first call.
func (p *Policy) MaxAttempts() int { return p.maxAttempts }

// Delay returns the wait before the given retry (1-based).
func (p *Policy) Delay(retry int) time.Duration {
	if retry < 1 {
		return 0
	}
	return time.Duration(float64(p.initialDelay) * math.Pow(p.backoffFactor, float64(retry-1)))
}

// Do runs fn until it succeeds, returns a non-retryable error, or the retries run out.
// The returned error is always fn's own last error, never wrapped.
func (p *Policy) Do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= p.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := p.Delay(attempt)
			logrus.WithFields(logrus.Fields{
				"operation":    name,
				"attempt":      attempt + 1,
				"max_attempts": p.maxAttempts + 1,
				"delay":        delay,
			}).Warnf("Error occurred while executing %s: %v. Retrying ...", name, lastErr)
			if err := sleepFunc(ctx, delay); err != nil {
				logrus.Warnf("Retry of %s abandoned: %v", name, err)
				return lastErr
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			logrus.Debugf("%s failed with a non-retryable error: %v", name, lastErr)
			return lastErr
		}
	}
	logrus.Errorf("Failed to execute %s after %d attempts: %v", name, p.maxAttempts+1, lastErr)
	return lastErr
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, p *Policy, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := p.Do(ctx, name, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}
