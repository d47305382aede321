package categorization

import (
	"context"
	"errors"
	"time"

	"github.com/granaflow/grana-api/internal/domain/common"
	"github.com/granaflow/grana-api/pkg/metrics"
)

// Policy is the retry schedule around a single classification call.
//
// Rate-limited attempts back off exponentially from BaseBackoff, doubling up
// to MaxBackoff. Other retryable failures back off linearly (attempt ×
// LinearStep). Non-retryable errors abort immediately. Sleep is injectable
// so tests run without real delays.
type Policy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	LinearStep  time.Duration
	Sleep       func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy matches the classifier's published limits: 3 attempts,
// exponential 2s→10s for 429s, linear 1s steps otherwise.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseBackoff: 2 * time.Second,
		MaxBackoff:  10 * time.Second,
		LinearStep:  time.Second,
		Sleep:       sleepCtx,
	}
}

// Do runs fn until it succeeds, fails non-retryably, or exhausts the
// attempt budget. The last error is returned on exhaustion.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) (common.Category, error)) (common.Category, error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		cat, err := fn(ctx)
		if err == nil {
			return cat, nil
		}
		lastErr = err

		var cerr *ClassificationError
		if !errors.As(err, &cerr) || !cerr.Retryable {
			return "", err
		}
		if attempt == p.MaxAttempts {
			break
		}

		var delay time.Duration
		if cerr.RateLimited {
			delay = p.rateLimitBackoff(attempt)
			metrics.ClassifierRetries.WithLabelValues("rate_limited").Inc()
		} else {
			delay = time.Duration(attempt) * p.LinearStep
			metrics.ClassifierRetries.WithLabelValues("transient").Inc()
		}

		if err := sleep(ctx, delay); err != nil {
			return "", err
		}
	}

	return "", lastErr
}

// rateLimitBackoff doubles from the base per prior attempt, capped.
func (p Policy) rateLimitBackoff(attempt int) time.Duration {
	delay := p.BaseBackoff
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if delay > p.MaxBackoff {
		return p.MaxBackoff
	}
	return delay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
