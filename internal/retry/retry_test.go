package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justchokingaround/streamdig/internal/fetch"
	"github.com/justchokingaround/streamdig/internal/ratelimit"
)

// fastHandler swaps real sleeping for delay capture.
func fastHandler(cfg Config, limiter *ratelimit.Limiter) (*Handler, *[]time.Duration) {
	h := NewHandler(cfg, limiter, nil)
	delays := &[]time.Duration{}
	h.sleep = func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
	return h, delays
}

func TestDo(t *testing.T) {
	t.Run("succeeds on first attempt without delay", func(t *testing.T) {
		h, delays := fastHandler(Config{MaxAttempts: 3, InitialDelay: time.Second, MaxDelay: time.Second, Multiplier: 2}, nil)

		attempts := 0
		err := h.Do(context.Background(), Options{Operation: "op"}, func(ctx context.Context) error {
			attempts++
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 1, attempts)
		assert.Empty(t, *delays)
	})

	t.Run("retryable failure is attempted exactly MaxAttempts times", func(t *testing.T) {
		h, _ := fastHandler(Config{MaxAttempts: 4, InitialDelay: time.Millisecond, MaxDelay: time.Second, Multiplier: 2}, nil)

		attempts := 0
		err := h.Do(context.Background(), Options{Operation: "op"}, func(ctx context.Context) error {
			attempts++
			return errors.New("connection refused")
		})

		require.Error(t, err)
		assert.Equal(t, 4, attempts)
		assert.Contains(t, err.Error(), "after 4 attempts")
	})

	t.Run("5xx is retried", func(t *testing.T) {
		h, _ := fastHandler(Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Second, Multiplier: 2}, nil)

		attempts := 0
		err := h.Do(context.Background(), Options{Operation: "op"}, func(ctx context.Context) error {
			attempts++
			return &fetch.StatusError{Code: 503, URL: "http://x"}
		})

		require.Error(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("non-429 4xx fails after a single attempt", func(t *testing.T) {
		h, delays := fastHandler(Config{MaxAttempts: 5, InitialDelay: time.Millisecond, MaxDelay: time.Second, Multiplier: 2}, nil)

		attempts := 0
		err := h.Do(context.Background(), Options{Operation: "op"}, func(ctx context.Context) error {
			attempts++
			return &fetch.StatusError{Code: 404, URL: "http://x"}
		})

		var statusErr *fetch.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, 404, statusErr.Code)
		assert.Equal(t, 1, attempts)
		assert.Empty(t, *delays)
	})

	t.Run("429 records the provider rate limit", func(t *testing.T) {
		limiter := ratelimit.New(time.Minute, nil)
		h, _ := fastHandler(Config{MaxAttempts: 1, InitialDelay: time.Millisecond, MaxDelay: time.Second, Multiplier: 2}, limiter)

		err := h.Do(context.Background(), Options{Provider: "gogocdn", Operation: "op"}, func(ctx context.Context) error {
			return &fetch.StatusError{Code: 429, URL: "http://x", RetryAfter: 30 * time.Second}
		})

		require.Error(t, err)
		assert.True(t, limiter.IsRateLimited("gogocdn"))
		remaining := limiter.TimeUntilReset("gogocdn")
		assert.Greater(t, remaining, 25*time.Second)
		assert.LessOrEqual(t, remaining, 30*time.Second)
	})

	t.Run("ShouldRetry overrides default classification", func(t *testing.T) {
		h, _ := fastHandler(Config{MaxAttempts: 5, InitialDelay: time.Millisecond, MaxDelay: time.Second, Multiplier: 2}, nil)

		attempts := 0
		err := h.Do(context.Background(), Options{
			Operation:   "op",
			ShouldRetry: func(error) bool { return false },
		}, func(ctx context.Context) error {
			attempts++
			return errors.New("would normally retry")
		})

		require.Error(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("delays are non-decreasing and capped at MaxDelay", func(t *testing.T) {
		h, delays := fastHandler(Config{
			MaxAttempts:  6,
			InitialDelay: 100 * time.Millisecond,
			MaxDelay:     400 * time.Millisecond,
			Multiplier:   2,
		}, nil)

		_ = h.Do(context.Background(), Options{Operation: "op"}, func(ctx context.Context) error {
			return errors.New("fail")
		})

		require.Len(t, *delays, 5)
		assert.Equal(t, 100*time.Millisecond, (*delays)[0])
		assert.Equal(t, 200*time.Millisecond, (*delays)[1])
		assert.Equal(t, 400*time.Millisecond, (*delays)[2])
		for i := 1; i < len(*delays); i++ {
			assert.GreaterOrEqual(t, (*delays)[i], (*delays)[i-1])
			assert.LessOrEqual(t, (*delays)[i], 400*time.Millisecond)
		}
	})

	t.Run("jittered delays stay within the cap", func(t *testing.T) {
		h, delays := fastHandler(Config{
			MaxAttempts:  5,
			InitialDelay: 100 * time.Millisecond,
			MaxDelay:     300 * time.Millisecond,
			Multiplier:   2,
			Jitter:       true,
		}, nil)

		_ = h.Do(context.Background(), Options{Operation: "op"}, func(ctx context.Context) error {
			return errors.New("fail")
		})

		require.Len(t, *delays, 4)
		for _, d := range *delays {
			assert.Greater(t, d, time.Duration(0))
			assert.LessOrEqual(t, d, 300*time.Millisecond)
		}
	})

	t.Run("waits out a provider's rate-limit window before attempting", func(t *testing.T) {
		limiter := ratelimit.New(time.Minute, nil)
		limiter.RecordRateLimit("gogocdn", 60*time.Millisecond)
		h := NewHandler(Config{MaxAttempts: 1, InitialDelay: time.Millisecond, MaxDelay: time.Second, Multiplier: 2}, limiter, nil)

		start := time.Now()
		err := h.Do(context.Background(), Options{Provider: "gogocdn", Operation: "op"}, func(ctx context.Context) error {
			return nil
		})

		require.NoError(t, err)
		assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
	})

	t.Run("context cancellation stops retrying", func(t *testing.T) {
		h := NewHandler(Config{MaxAttempts: 10, InitialDelay: 50 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}, nil, nil)

		ctx, cancel := context.WithCancel(context.Background())
		attempts := 0
		err := h.Do(ctx, Options{Operation: "op"}, func(ctx context.Context) error {
			attempts++
			cancel()
			return errors.New("fail")
		})

		require.Error(t, err)
		assert.Equal(t, 1, attempts)
	})
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network error", errors.New("dial tcp: connection refused"), true},
		{"500", &fetch.StatusError{Code: 500}, true},
		{"503", &fetch.StatusError{Code: 503}, true},
		{"429", &fetch.StatusError{Code: 429}, true},
		{"404", &fetch.StatusError{Code: 404}, false},
		{"403", &fetch.StatusError{Code: 403}, false},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Retryable(tt.err))
		})
	}
}
