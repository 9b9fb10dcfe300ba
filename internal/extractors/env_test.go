package extractors

import (
	"io"
	"log/slog"
	"time"

	"github.com/justchokingaround/streamdig/internal/fetch"
	"github.com/justchokingaround/streamdig/internal/ratelimit"
	"github.com/justchokingaround/streamdig/internal/retry"
	"github.com/justchokingaround/streamdig/pkg/stream"
)

func streamRequest(url string) stream.Request {
	return stream.Request{URL: url}
}

// newTestEnv wires a real client and retry handler with fast settings and a
// discarded logger.
func newTestEnv() Env {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	limiter := ratelimit.New(time.Minute, logger)
	handler := retry.NewHandler(retry.Config{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}, limiter, logger)

	return Env{
		Client: fetch.NewClient(fetch.ClientConfig{Timeout: 5 * time.Second, Logger: logger}),
		Retry:  handler,
		Logger: logger,
	}
}
