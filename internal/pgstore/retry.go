package pgstore

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
)

// RetryPolicy defines exponential backoff for the startup connection check.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryPolicy covers a database container that comes up a few seconds after the app.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:    5,
	InitialDelay:  500 * time.Millisecond,
	MaxDelay:      8 * time.Second,
	BackoffFactor: 2,
}

// NextDelay returns delay for a given attempt (1-based) with clamping.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = time.Second
	}
	if r.BackoffFactor <= 0 {
		r.BackoffFactor = 2
	}

	delay := float64(r.InitialDelay) * math.Pow(r.BackoffFactor, float64(attempt-1))
	d := time.Duration(delay)
	if r.MaxDelay > 0 && d > r.MaxDelay {
		d = r.MaxDelay
	}
	if d <= 0 {
		d = time.Second
	}
	return d
}

// pingWithRetry calls ping until it succeeds, MaxRetries extra attempts are spent or ctx ends.
func pingWithRetry(ctx context.Context, ping func(context.Context) error, policy RetryPolicy, logger *zerolog.Logger) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = ping(ctx); err == nil {
			return nil
		}
		if attempt >= policy.MaxRetries {
			return fmt.Errorf("after %d attempts: %w", attempt+1, err)
		}

		delay := policy.NextDelay(attempt + 1)
		logger.Warn().Err(err).Int("attempt", attempt+1).Dur("retry_in", delay).Msg("postgres not ready")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
