// Package extractors turns site-specific embed URLs into playable stream
// URLs. Each hosting-site family gets one extractor owning that site's
// deobfuscation scheme; the registry dispatches URLs to them by ordered
// pattern tests.
//
// Extractors never fail past their own boundary: any missing pattern, parse
// error or decryption failure is logged and degrades to an empty result, so
// one broken site cannot abort a caller iterating multiple candidates.
package extractors

import (
	"context"
	"log/slog"

	"github.com/justchokingaround/streamdig/internal/fetch"
	"github.com/justchokingaround/streamdig/internal/retry"
	"github.com/justchokingaround/streamdig/pkg/stream"
)

// desktopUserAgent is the browser identity presented to sites that gate
// their embed pages on one.
const desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122 Safari/537.36"

// Category classifies what an extractor produces.
type Category string

// CategoryVideo marks extractors producing video streams.
const CategoryVideo Category = "video"

// Info is the static descriptor registered once per extractor.
type Info struct {
	// ID is the stable extractor identifier, also used as the rate-limit
	// provider key.
	ID string `json:"id"`
	// Category of the produced streams.
	Category Category `json:"category"`
	// Patterns are substring tests against a URL's host+path, checked in
	// order.
	Patterns []string `json:"patterns"`
}

// Extractor resolves one request into zero or more playable streams.
// Implementations must not return transport or parse errors to the caller;
// they log and return nil instead.
type Extractor interface {
	Info() Info
	Extract(ctx context.Context, req stream.Request) []stream.Stream
}

// Env bundles the shared plumbing handed to every extractor: the HTTP client,
// the retry handler (which owns rate-limit queueing) and the logger.
type Env struct {
	Client *fetch.Client
	Retry  *retry.Handler
	Logger *slog.Logger
}

// get fetches a URL through the retry handler, attributing attempts to the
// given provider id.
func (e Env) get(ctx context.Context, provider, url string, headers map[string]string) (string, error) {
	var body string
	err := e.Retry.Do(ctx, retry.Options{
		Provider:  provider,
		Operation: "GET " + url,
	}, func(ctx context.Context) error {
		var err error
		body, err = e.Client.Get(ctx, url, headers)
		return err
	})
	return body, err
}

// postForm posts form data through the retry handler.
func (e Env) postForm(ctx context.Context, provider, url string, form, headers map[string]string) (string, error) {
	var body string
	err := e.Retry.Do(ctx, retry.Options{
		Provider:  provider,
		Operation: "POST " + url,
	}, func(ctx context.Context) error {
		var err error
		body, err = e.Client.PostForm(ctx, url, form, headers)
		return err
	})
	return body, err
}

func (e Env) extractorLogger(id string) *slog.Logger {
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("extractor", id)
}
