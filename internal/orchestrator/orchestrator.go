// Package orchestrator ties the extraction pipeline together: registry
// lookup, extractor invocation and aggregation of the resulting streams.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/justchokingaround/streamdig/internal/extractors"
	"github.com/justchokingaround/streamdig/internal/fetch"
	"github.com/justchokingaround/streamdig/internal/ratelimit"
	"github.com/justchokingaround/streamdig/internal/retry"
	"github.com/justchokingaround/streamdig/pkg/stream"
)

// Orchestrator resolves extraction requests against the registry. An empty
// result means no extractor matched or every matching extractor came up
// empty; callers must treat that as a fallback condition, not an error.
type Orchestrator struct {
	registry *extractors.Registry
	logger   *slog.Logger
}

// Config assembles the pipeline's tunables.
type Config struct {
	HTTP      fetch.ClientConfig
	Retry     retry.Config
	RateLimit time.Duration
	Logger    *slog.Logger
}

// New builds the full pipeline: fetch client, rate limiter, retry handler
// and the extractor registry wired through them.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg.HTTP.Logger = logger

	limiter := ratelimit.New(cfg.RateLimit, logger)
	handler := retry.NewHandler(cfg.Retry, limiter, logger)
	env := extractors.Env{
		Client: fetch.NewClient(cfg.HTTP),
		Retry:  handler,
		Logger: logger,
	}

	return &Orchestrator{
		registry: extractors.NewRegistry(env),
		logger:   logger,
	}
}

// Resolve looks up the matching extractors for the request and aggregates
// their streams. Extractors run sequentially in registration order; each one
// already degrades its own failures to an empty result, so a broken site
// never aborts the remaining candidates.
func (o *Orchestrator) Resolve(ctx context.Context, req stream.Request) []stream.Stream {
	matched := o.registry.Resolve(req.URL)
	if len(matched) == 0 {
		o.logger.Debug("no extractor matches URL", "url", req.URL)
		return nil
	}

	var all []stream.Stream
	for _, ext := range matched {
		if ctx.Err() != nil {
			break
		}
		found := ext.Extract(ctx, req)
		o.logger.Info("extractor finished",
			"extractor", ext.Info().ID,
			"url", req.URL,
			"streams", len(found),
		)
		all = append(all, found...)
	}
	return all
}

// Extractors exposes registry metadata for callers listing capabilities.
func (o *Orchestrator) Extractors() []extractors.Info {
	return o.registry.Infos()
}
