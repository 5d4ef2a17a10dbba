package repository

import (
	"context"
	"sync/atomic"
	"time"

	"testdrive/internal/domain"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverRateLimiter uses primary until it errors, then fallback, probing primary again every minute.
type FailoverRateLimiter struct {
	primary   domain.RateLimiter
	fallback  domain.RateLimiter
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
	now       func() time.Time
}

func NewFailoverRateLimiter(primary, fallback domain.RateLimiter, logger *zerolog.Logger) *FailoverRateLimiter {
	return &FailoverRateLimiter{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

func (r *FailoverRateLimiter) markDown() {
	r.isDown.Store(true)
	r.lastCheck.Store(r.now().UnixNano())
}

func (r *FailoverRateLimiter) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			return allowed, nil
		}
		r.logger.Error().Err(err).Msg("Primary rate limiter failed, falling back to memory")
		r.markDown()
	} else if r.now().Sub(time.Unix(0, r.lastCheck.Load())) > recoveryInterval {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			r.logger.Info().Msg("Primary rate limiter recovered")
			r.isDown.Store(false)
			return allowed, nil
		}
		r.lastCheck.Store(r.now().UnixNano())
	}

	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}
