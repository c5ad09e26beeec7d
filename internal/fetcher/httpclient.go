package fetcher

import (
	"time"

	"resty.dev/v3"
)

const (
	// DefaultTimeout bounds a single fetch when no timeout is configured
	DefaultTimeout = 15 * time.Second

	defaultUserAgent = "coinfeed/1.0"
)

// NewHTTPClient creates a resty client for a single-attempt fetch. Retries
// stay disabled; the timeout is the only bound on how long a call may wait.
func NewHTTPClient(timeout time.Duration, userAgent string) *resty.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent)
}
