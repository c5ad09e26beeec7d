package testutil

import (
	"context"
	"sync"
	"sync/atomic"

	"coinfeed/internal/fetcher"
)

// MockFetcher is a mock implementation of the Fetcher interface for testing
type MockFetcher struct {
	FetchFunc func(ctx context.Context) ([]byte, error)

	calls atomic.Int64
}

// Fetch implements the Fetcher interface
func (m *MockFetcher) Fetch(ctx context.Context) ([]byte, error) {
	m.calls.Add(1)
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx)
	}
	return []byte(`[]`), nil
}

// Calls returns how many times Fetch has been invoked
func (m *MockFetcher) Calls() int {
	return int(m.calls.Load())
}

// NewMockFetcher creates a mock fetcher that always returns body and err
func NewMockFetcher(body string, err error) *MockFetcher {
	return &MockFetcher{
		FetchFunc: func(ctx context.Context) ([]byte, error) {
			if err != nil {
				return nil, err
			}
			return []byte(body), nil
		},
	}
}

// GatedFetcher blocks every Fetch until Release is called, so tests can hold
// a refresh in the Loading state.
type GatedFetcher struct {
	MockFetcher

	Started chan struct{}
	gate    chan struct{}
	once    sync.Once
}

// NewGatedFetcher creates a fetcher that returns body once released
func NewGatedFetcher(body string, err error) *GatedFetcher {
	g := &GatedFetcher{
		Started: make(chan struct{}, 16),
		gate:    make(chan struct{}),
	}
	g.FetchFunc = func(ctx context.Context) ([]byte, error) {
		g.Started <- struct{}{}
		<-g.gate
		if err != nil {
			return nil, err
		}
		return []byte(body), nil
	}
	return g
}

// Release unblocks all current and future Fetch calls
func (g *GatedFetcher) Release() {
	g.once.Do(func() { close(g.gate) })
}

var _ fetcher.Fetcher = (*MockFetcher)(nil)
