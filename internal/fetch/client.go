// Package fetch is the thin HTTP layer under every extractor. It wraps resty
// with context support and per-request header maps, and turns HTTP error
// statuses into typed errors so the retry layer can classify them. Retrying
// itself is deliberately not done here; see internal/retry.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122 Safari/537.36"

// Client wraps resty.Client with timeout handling and debug logging.
type Client struct {
	resty   *resty.Client
	timeout time.Duration
	logger  *slog.Logger
}

// ClientConfig holds configuration for the HTTP client.
type ClientConfig struct {
	Timeout   time.Duration
	UserAgent string
	Debug     bool
	Logger    *slog.Logger
}

// DefaultClientConfig returns sensible defaults for the HTTP client.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:   30 * time.Second,
		UserAgent: defaultUserAgent,
	}
}

// NewClient creates a new HTTP client with the given configuration.
func NewClient(config ClientConfig) *Client {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = defaultUserAgent
	}

	restyClient := resty.New().
		SetTimeout(config.Timeout).
		// Retries are owned by the retry handler so that rate-limit windows
		// are honored between attempts.
		SetRetryCount(0).
		SetHeader("User-Agent", config.UserAgent).
		SetHeader("Accept-Language", "en-US,en;q=0.9")

	client := &Client{
		resty:   restyClient,
		timeout: config.Timeout,
		logger:  config.Logger,
	}

	if config.Debug && config.Logger != nil {
		restyClient.OnAfterResponse(func(c *resty.Client, r *resty.Response) error {
			client.logResponse(r)
			return nil
		})
	}

	return client
}

// Get performs a GET request and returns the response body as a string.
// Responses with status >= 400 yield a *StatusError.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (string, error) {
	req := c.resty.R().SetContext(ctx)
	for key, value := range headers {
		req.SetHeader(key, value)
	}

	resp, err := req.Get(url)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", url, err)
	}
	if err := statusError(resp); err != nil {
		return "", err
	}

	return resp.String(), nil
}

// PostForm performs a form-encoded POST request and returns the response body.
func (c *Client) PostForm(ctx context.Context, url string, form map[string]string, headers map[string]string) (string, error) {
	req := c.resty.R().
		SetContext(ctx).
		SetFormData(form)
	for key, value := range headers {
		req.SetHeader(key, value)
	}

	resp, err := req.Post(url)
	if err != nil {
		return "", fmt.Errorf("POST %s: %w", url, err)
	}
	if err := statusError(resp); err != nil {
		return "", err
	}

	return resp.String(), nil
}

// Timeout returns the configured timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// RestyClient returns the underlying resty client for integrations that need
// the raw client.
func (c *Client) RestyClient() *resty.Client {
	return c.resty
}

func (c *Client) logResponse(r *resty.Response) {
	body := r.String()
	if len(body) > 1000 {
		body = body[:1000] + "... (truncated)"
	}
	c.logger.Debug("HTTP response",
		"status", r.StatusCode(),
		"url", r.Request.URL,
		"time", r.Time(),
		"body", body,
	)
}

// StatusError is returned for HTTP responses with status >= 400. RetryAfter
// carries the server's Retry-After header (integer seconds) when present on a
// 429 response.
type StatusError struct {
	Code       int
	URL        string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error %d for %s", e.Code, e.URL)
}

// Temporary reports whether the status indicates a transient server condition.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 || e.Code == 429
}

func statusError(resp *resty.Response) error {
	if resp.StatusCode() < 400 {
		return nil
	}
	statusErr := &StatusError{
		Code: resp.StatusCode(),
		URL:  resp.Request.URL,
	}
	if resp.StatusCode() == 429 {
		if secs, err := strconv.Atoi(resp.Header().Get("Retry-After")); err == nil && secs > 0 {
			statusErr.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return statusErr
}
