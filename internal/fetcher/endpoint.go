package fetcher

import (
	"context"
	"log/slog"
	"time"

	"resty.dev/v3"
)

// EndpointFetcher fetches the quote document from a single configured URL
type EndpointFetcher struct {
	endpoint string
	client   *resty.Client
	logger   *slog.Logger
}

// Option configures an EndpointFetcher
type Option func(*EndpointFetcher)

// WithClient replaces the default resty client
func WithClient(client *resty.Client) Option {
	return func(f *EndpointFetcher) {
		f.client = client
	}
}

// WithLogger sets the logger used for request diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(f *EndpointFetcher) {
		f.logger = logger
	}
}

// NewEndpointFetcher creates a fetcher for the given endpoint
func NewEndpointFetcher(endpoint string, opts ...Option) *EndpointFetcher {
	f := &EndpointFetcher{
		endpoint: endpoint,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = NewHTTPClient(DefaultTimeout, "")
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// Endpoint returns the URL this fetcher reads from
func (f *EndpointFetcher) Endpoint() string {
	return f.endpoint
}

// Fetch performs one GET against the endpoint and returns the raw body
func (f *EndpointFetcher) Fetch(ctx context.Context) ([]byte, error) {
	started := time.Now()

	resp, err := f.client.R().
		SetContext(ctx).
		Get(f.endpoint)
	if err != nil {
		fe := NewNetworkError(err)
		f.logger.Debug("fetch failed",
			"endpoint", f.endpoint,
			"timeout", fe.Timeout,
			"elapsed", time.Since(started),
			"error", err.Error())
		return nil, fe
	}

	if !resp.IsSuccess() {
		f.logger.Debug("fetch returned bad status",
			"endpoint", f.endpoint,
			"status_code", resp.StatusCode(),
			"elapsed", time.Since(started))
		return nil, NewBadStatusError(resp.StatusCode())
	}

	body := resp.Bytes()
	f.logger.Debug("fetch completed",
		"endpoint", f.endpoint,
		"bytes", len(body),
		"elapsed", time.Since(started))

	return body, nil
}

// Close releases the underlying HTTP client resources
func (f *EndpointFetcher) Close() error {
	return f.client.Close()
}
