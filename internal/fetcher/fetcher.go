package fetcher

import "context"

// Fetcher retrieves the raw quote payload from a remote endpoint.
//
//go:generate mockgen -package=refresh_test -destination=../refresh/mock_fetcher_test.go -source=fetcher.go Fetcher
type Fetcher interface {
	// Fetch performs a single blocking retrieval and returns the response
	// body. On failure it returns a *FetchError and no payload.
	Fetch(ctx context.Context) ([]byte, error)
}
