package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockLimiter struct {
	mock.Mock
}

func (m *mockLimiter) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func TestFailoverRateLimiter(t *testing.T) {
	primary := new(mockLimiter)
	fallback := new(mockLimiter)
	logger := zerolog.New(io.Discard)
	limiter := NewFailoverRateLimiter(primary, fallback, &logger)
	ctx := context.Background()

	t.Run("PrimarySuccess", func(t *testing.T) {
		primary.On("CheckRateLimit", ctx, "client-a", 10, time.Minute).Return(true, nil).Once()

		allowed, err := limiter.CheckRateLimit(ctx, "client-a", 10, time.Minute)
		assert.NoError(t, err)
		assert.True(t, allowed)
		primary.AssertExpectations(t)
	})

	t.Run("PrimaryFailFallbackSuccess", func(t *testing.T) {
		primary.On("CheckRateLimit", ctx, "client-b", 10, time.Minute).Return(false, errors.New("fail")).Once()
		fallback.On("CheckRateLimit", ctx, "client-b", 10, time.Minute).Return(true, nil).Once()

		allowed, err := limiter.CheckRateLimit(ctx, "client-b", 10, time.Minute)
		assert.NoError(t, err)
		assert.True(t, allowed)
		assert.True(t, limiter.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("AlreadyDown", func(t *testing.T) {
		limiter.markDown()
		fallback.On("CheckRateLimit", ctx, "client-c", 10, time.Minute).Return(false, nil).Once()

		allowed, err := limiter.CheckRateLimit(ctx, "client-c", 10, time.Minute)
		assert.NoError(t, err)
		assert.False(t, allowed)
		fallback.AssertExpectations(t)
	})

	t.Run("RecoveryAttempt", func(t *testing.T) {
		limiter.isDown.Store(true)
		limiter.lastCheck.Store(time.Now().Add(-2 * time.Minute).UnixNano())
		primary.On("CheckRateLimit", ctx, "client-d", 10, time.Minute).Return(true, nil).Once()

		allowed, err := limiter.CheckRateLimit(ctx, "client-d", 10, time.Minute)
		assert.NoError(t, err)
		assert.True(t, allowed)
		assert.False(t, limiter.isDown.Load())
		primary.AssertExpectations(t)
	})

	t.Run("RecoveryAttemptFail", func(t *testing.T) {
		limiter.isDown.Store(true)
		limiter.lastCheck.Store(time.Now().Add(-2 * time.Minute).UnixNano())
		primary.On("CheckRateLimit", ctx, "client-e", 10, time.Minute).Return(false, errors.New("still fail")).Once()
		fallback.On("CheckRateLimit", ctx, "client-e", 10, time.Minute).Return(true, nil).Once()

		allowed, err := limiter.CheckRateLimit(ctx, "client-e", 10, time.Minute)
		assert.NoError(t, err)
		assert.True(t, allowed)
		assert.True(t, limiter.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})
}
