// Package ratelimit tracks, per provider, whether requests are currently
// suppressed after a 429-style response and for how long. Callers queue
// through Wait until the provider's window expires; different providers never
// block each other.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultWindow is used when a 429 response carries no Retry-After header.
const DefaultWindow = 60 * time.Second

// Limiter coordinates per-provider cooldown windows.
type Limiter struct {
	mu            sync.Mutex
	providers     map[string]*providerState
	defaultWindow time.Duration
	logger        *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

type providerState struct {
	// queueMu is held while a caller waits out the window, which keeps
	// dispatch order FIFO for a single provider.
	queueMu      sync.Mutex
	mu           sync.Mutex
	blockedUntil time.Time
	// wake is closed when the window is dropped early, so parked waiters
	// re-check instead of sleeping out a window that no longer exists.
	wake chan struct{}
}

// New creates a Limiter. A zero defaultWindow falls back to DefaultWindow.
func New(defaultWindow time.Duration, logger *slog.Logger) *Limiter {
	if defaultWindow <= 0 {
		defaultWindow = DefaultWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{
		providers:     make(map[string]*providerState),
		defaultWindow: defaultWindow,
		logger:        logger,
		now:           time.Now,
	}
}

func (l *Limiter) provider(id string) *providerState {
	l.mu.Lock()
	defer l.mu.Unlock()
	state, ok := l.providers[id]
	if !ok {
		state = &providerState{wake: make(chan struct{})}
		l.providers[id] = state
	}
	return state
}

// RecordRateLimit marks a provider as rate-limited. retryAfter <= 0 uses the
// default window.
func (l *Limiter) RecordRateLimit(id string, retryAfter time.Duration) {
	if retryAfter <= 0 {
		retryAfter = l.defaultWindow
	}
	state := l.provider(id)
	until := l.now().Add(retryAfter)

	state.mu.Lock()
	if until.After(state.blockedUntil) {
		state.blockedUntil = until
	}
	state.mu.Unlock()

	l.logger.Warn("provider rate limited", "provider", id, "window", retryAfter)
}

// IsRateLimited reports whether requests for the provider are currently
// suppressed.
func (l *Limiter) IsRateLimited(id string) bool {
	state := l.provider(id)
	state.mu.Lock()
	defer state.mu.Unlock()
	return l.now().Before(state.blockedUntil)
}

// TimeUntilReset returns how long until the provider's window expires, or
// zero when it is not limited.
func (l *Limiter) TimeUntilReset(id string) time.Duration {
	state := l.provider(id)
	state.mu.Lock()
	defer state.mu.Unlock()
	if remaining := state.blockedUntil.Sub(l.now()); remaining > 0 {
		return remaining
	}
	return 0
}

// Wait blocks until the provider is no longer rate-limited or ctx is done.
// When the provider is already clear it returns immediately. Waiters for the
// same provider are released in FIFO order.
func (l *Limiter) Wait(ctx context.Context, id string) error {
	state := l.provider(id)

	state.queueMu.Lock()
	defer state.queueMu.Unlock()

	for {
		state.mu.Lock()
		remaining := state.blockedUntil.Sub(l.now())
		wake := state.wake
		state.mu.Unlock()

		if remaining <= 0 {
			return nil
		}

		l.logger.Debug("waiting for rate limit window", "provider", id, "remaining", remaining)

		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			// Re-check; the window may have been extended meanwhile.
		case <-wake:
			timer.Stop()
		}
	}
}

// ClearAll drops all recorded windows and releases any parked waiters.
func (l *Limiter) ClearAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, state := range l.providers {
		state.mu.Lock()
		state.blockedUntil = time.Time{}
		close(state.wake)
		state.wake = make(chan struct{})
		state.mu.Unlock()
	}
}
