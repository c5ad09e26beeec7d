package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coinfeed/internal/config"
	"coinfeed/internal/fetcher"
	"coinfeed/internal/quote"
	"coinfeed/internal/refresh"
	"coinfeed/internal/snapshot"
)

func testConfig(endpoint string) *config.Config {
	return &config.Config{
		Endpoint:     endpoint,
		NameField:    "long",
		PriceField:   "price",
		FetchTimeout: 2 * time.Second,
		UserAgent:    "coinfeed-test",
		LogLevel:     "error",
		LogFormat:    "text",
	}
}

func newTestApp(t *testing.T, cfg *config.Config) (*app, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := newApp(context.Background(), cfg, logger, &out, prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(func() { a.fetcher.Close() })
	return a, &out
}

func quoteServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

// TestIntegration_SkipsIncompleteRecords runs the full fetch-parse-publish
// flow against a document with one good and one incomplete element.
func TestIntegration_SkipsIncompleteRecords(t *testing.T) {
	ts := quoteServer(t, `[{"long":"Bitcoin","price":4123.45},{"long":"BadCoin"}]`)
	a, out := newTestApp(t, testConfig(ts.URL))

	require.True(t, a.trigger.InitialRefresh(context.Background()))
	a.trigger.Wait()

	assert.Equal(t, refresh.Idle, a.trigger.State())
	assert.NoError(t, a.trigger.LastError())

	snap := a.trigger.Current()
	require.Equal(t, 1, snap.Len())
	assert.Equal(t, snapshot.PriceRecord{Name: "Bitcoin", PriceRaw: "4123.45"}, snap.At(0))

	assert.Contains(t, out.String(), "Loading prices...")
	assert.Contains(t, out.String(), "Bitcoin: 4123.45")
	assert.NotContains(t, out.String(), "BadCoin")
	assert.True(t, a.printer.Loaded())

	assert.Equal(t, float64(1), promtest.ToFloat64(a.metrics.SkippedRecordsTotal))
	assert.Equal(t, float64(1), promtest.ToFloat64(a.metrics.Records))
}

func TestIntegration_EmptyDocument(t *testing.T) {
	ts := quoteServer(t, `[]`)
	a, _ := newTestApp(t, testConfig(ts.URL))

	a.trigger.InitialRefresh(context.Background())
	a.trigger.Wait()

	assert.Equal(t, refresh.Idle, a.trigger.State())
	assert.True(t, a.trigger.Current().IsEmpty())
	assert.False(t, a.trigger.Current().TakenAt().IsZero(), "an empty document is still a published snapshot")
}

func TestIntegration_UnreachableEndpoint(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	a, out := newTestApp(t, testConfig(url))

	a.trigger.InitialRefresh(context.Background())
	a.trigger.Wait()

	assert.Equal(t, refresh.Failed, a.trigger.State())
	assert.True(t, fetcher.IsNetwork(a.trigger.LastError()))
	assert.True(t, a.trigger.Current().IsEmpty())
	assert.Contains(t, out.String(), "ERROR - ")
	assert.False(t, a.printer.Loaded())
}

func TestIntegration_FailureKeepsPreviousSnapshot(t *testing.T) {
	var calls atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.Write([]byte(`[{"long":"Bitcoin","price":"4123.45"},{"long":"Ethereum","price":"210.10"}]`))
		case 2:
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.Write([]byte(`<html>maintenance</html>`))
		}
	}))
	defer ts.Close()

	a, _ := newTestApp(t, testConfig(ts.URL))
	ctx := context.Background()

	a.trigger.InitialRefresh(ctx)
	a.trigger.Wait()
	first := a.trigger.Current()
	require.Equal(t, 2, first.Len())

	require.True(t, a.trigger.RequestRefresh(ctx))
	a.trigger.Wait()
	assert.Equal(t, refresh.Failed, a.trigger.State())
	assert.True(t, fetcher.IsBadStatus(a.trigger.LastError()))
	assert.Equal(t, first.Records(), a.trigger.Current().Records())

	require.True(t, a.trigger.RequestRefresh(ctx))
	a.trigger.Wait()
	assert.Equal(t, refresh.Failed, a.trigger.State())
	assert.True(t, quote.IsMalformed(a.trigger.LastError()))
	assert.Equal(t, first.TakenAt(), a.trigger.Current().TakenAt())
}

func TestIntegration_HTTPSurface(t *testing.T) {
	ts := quoteServer(t, `[{"long":"Bitcoin","price":"4123.45"}]`)
	cfg := testConfig(ts.URL)
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.ManualRefreshPerMinute = 60

	a, _ := newTestApp(t, cfg)
	require.NotNil(t, a.server)
	api := httptest.NewServer(a.server.Handler())
	defer api.Close()

	resp, err := http.Post(api.URL+"/api/refresh", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	a.trigger.Wait()

	resp, err = http.Get(api.URL + "/api/prices")
	require.NoError(t, err)
	defer resp.Body.Close()

	var got struct {
		State  string `json:"state"`
		Count  int    `json:"count"`
		Prices []struct {
			Name  string `json:"name"`
			Price string `json:"price"`
		} `json:"prices"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "idle", got.State)
	assert.Equal(t, 1, got.Count)
	require.Len(t, got.Prices, 1)
	assert.Equal(t, "Bitcoin", got.Prices[0].Name)
	assert.Equal(t, "4123.45", got.Prices[0].Price)

	metricsResp, err := http.Get(api.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(metricsResp.Body)
	metricsResp.Body.Close()
	assert.Contains(t, string(body), `coinfeed_refreshes_total{outcome="success"} 1`)
}

func TestIntegration_InvalidSchedule(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1/front")
	cfg.RefreshSchedule = "sometimes"

	_, err := newApp(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), io.Discard, prometheus.NewRegistry())
	assert.Error(t, err)
}

// TestIntegration_RunShutdown checks that run returns once the context is
// canceled and leaves no refresh in flight.
func TestIntegration_RunShutdown(t *testing.T) {
	ts := quoteServer(t, `[{"long":"Bitcoin","price":"4123.45"}]`)
	cfg := testConfig(ts.URL)
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.RefreshSchedule = "@every 1h"

	a, _ := newTestApp(t, cfg)
	require.NotNil(t, a.scheduler)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.run(ctx) }()

	require.Eventually(t, func() bool {
		return a.trigger.State() == refresh.Idle && a.trigger.Current().Len() == 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
	assert.NotEqual(t, refresh.Loading, a.trigger.State())
}
