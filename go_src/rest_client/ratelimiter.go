package rest_client

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	HeaderRetryAfter = "Retry-After"

	// Fyers documents 10 requests per second and 200 per minute per app.
	DefaultPerSecondLimit = 10
	DefaultPerMinuteLimit = 200
)

// RateLimiter keeps the request rate under per-second and per-minute ceilings
// using a sliding window of dispatch times.
type RateLimiter struct {
	perSecond  int
	perMinute  int
	sent       []time.Time
	blockUntil time.Time
	mutex      sync.Mutex
	now        func() time.Time
}

func NewRateLimiter(perSecond, perMinute int) *RateLimiter {
	if perSecond <= 0 {
		perSecond = DefaultPerSecondLimit
	}
	if perMinute <= 0 {
		perMinute = DefaultPerMinuteLimit
	}
	return &RateLimiter{
		perSecond: perSecond,
		perMinute: perMinute,
		now:       time.Now,
	}
}

// UpdateLimits reads Retry-After from a throttled response and blocks new requests until then.
func (rl *RateLimiter) UpdateLimits(headers http.Header) {
	retryAfter := headers.Get(HeaderRetryAfter)
	if retryAfter == "" {
		return
	}
	seconds, err := strconv.ParseFloat(retryAfter, 64)
	if err != nil {
		logrus.Warnf("RateLimiter: Failed to parse '%s' header '%s': %v", HeaderRetryAfter, retryAfter, err)
		return
	}

	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	until := rl.now().Add(time.Duration(seconds * float64(time.Second)))
	if until.After(rl.blockUntil) {
		rl.blockUntil = until
	}
}

// reserve records a dispatch at now if the windows allow it, otherwise returns how long to wait.
func (rl *RateLimiter) reserve() time.Duration {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	if now.Before(rl.blockUntil) {
		return rl.blockUntil.Sub(now)
	}

	// drop entries older than the minute window
	cutoff := now.Add(-time.Minute)
	i := 0
	for i < len(rl.sent) && !rl.sent[i].After(cutoff) {
		i++
	}
	rl.sent = rl.sent[i:]

	if len(rl.sent) >= rl.perMinute {
		return rl.sent[0].Add(time.Minute).Sub(now)
	}

	secondCutoff := now.Add(-time.Second)
	inLastSecond := 0
	var oldestInSecond time.Time
	for j := len(rl.sent) - 1; j >= 0 && rl.sent[j].After(secondCutoff); j-- {
		inLastSecond++
		oldestInSecond = rl.sent[j]
	}
	if inLastSecond >= rl.perSecond {
		return oldestInSecond.Add(time.Second).Sub(now)
	}

	rl.sent = append(rl.sent, now)
	return 0
}

// Wait blocks until a request may be sent or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		wait := rl.reserve()
		if wait <= 0 {
			return nil
		}
		logrus.Debugf("RateLimiter: limit reached, waiting %v", wait)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
