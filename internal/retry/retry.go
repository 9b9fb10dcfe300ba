// Package retry wraps arbitrary operations with bounded retries and
// exponential backoff. Classification follows the transport policy used
// throughout the extractors: network and timeout errors, 5xx and 429 are
// retryable; any other 4xx fails fast. A 429 additionally records a
// rate-limit window for the owning provider.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/justchokingaround/streamdig/internal/fetch"
	"github.com/justchokingaround/streamdig/internal/ratelimit"
)

// Config tunes the backoff schedule.
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool
}

// DefaultConfig returns the schedule used when the config file does not
// override it.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2,
		Jitter:       true,
	}
}

func (c Config) normalized() Config {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 500 * time.Millisecond
	}
	if c.MaxDelay < c.InitialDelay {
		c.MaxDelay = c.InitialDelay
	}
	if c.Multiplier < 1 {
		c.Multiplier = 1
	}
	return c
}

// Options describe one wrapped operation.
type Options struct {
	// Provider, when set, queues each attempt through the rate limiter and
	// attributes any 429 windows to that provider.
	Provider string
	// Operation names the call for log lines.
	Operation string
	// ShouldRetry overrides default error classification when non-nil.
	ShouldRetry func(error) bool
}

// Handler executes operations with retry, backoff and rate-limit
// coordination.
type Handler struct {
	cfg     Config
	limiter *ratelimit.Limiter
	logger  *slog.Logger

	// sleep is swappable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewHandler creates a Handler. limiter may be nil when no rate-limit
// coordination is wanted.
func NewHandler(cfg Config, limiter *ratelimit.Limiter, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		cfg:     cfg.normalized(),
		limiter: limiter,
		logger:  logger,
		sleep:   sleepCtx,
	}
}

// Do runs fn until it succeeds, a non-retryable error occurs, attempts are
// exhausted, or ctx is done. The last error is returned after exhaustion.
func (h *Handler) Do(ctx context.Context, opts Options, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= h.cfg.MaxAttempts; attempt++ {
		if opts.Provider != "" && h.limiter != nil {
			if err := h.limiter.Wait(ctx, opts.Provider); err != nil {
				return err
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}

		h.recordRateLimit(opts.Provider, lastErr)

		if !h.shouldRetry(opts, lastErr) {
			return lastErr
		}
		if attempt == h.cfg.MaxAttempts {
			break
		}

		delay := h.delay(attempt)
		h.logger.Debug("retrying after error",
			"operation", opts.Operation,
			"attempt", attempt,
			"delay", delay,
			"error", lastErr,
		)
		if err := h.sleep(ctx, delay); err != nil {
			return lastErr
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", opts.Operation, h.cfg.MaxAttempts, lastErr)
}

func (h *Handler) shouldRetry(opts Options, err error) bool {
	if opts.ShouldRetry != nil {
		return opts.ShouldRetry(err)
	}
	return Retryable(err)
}

// Retryable implements the default classification. Context cancellation is
// never retried; HTTP statuses follow StatusError.Temporary; everything else
// is treated as a network-level failure and retried.
func Retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *fetch.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	return true
}

func (h *Handler) recordRateLimit(provider string, err error) {
	if provider == "" || h.limiter == nil {
		return
	}
	var statusErr *fetch.StatusError
	if errors.As(err, &statusErr) && statusErr.Code == 429 {
		h.limiter.RecordRateLimit(provider, statusErr.RetryAfter)
	}
}

// delay computes the backoff before the attempt+1'th try. The schedule is
// non-decreasing and capped at MaxDelay; jitter perturbs it by up to ±50%.
func (h *Handler) delay(attempt int) time.Duration {
	backoff := float64(h.cfg.InitialDelay) * math.Pow(h.cfg.Multiplier, float64(attempt-1))
	if backoff > float64(h.cfg.MaxDelay) {
		backoff = float64(h.cfg.MaxDelay)
	}
	if h.cfg.Jitter {
		backoff *= 0.5 + rand.Float64()
		if backoff > float64(h.cfg.MaxDelay) {
			backoff = float64(h.cfg.MaxDelay)
		}
	}
	return time.Duration(backoff)
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
