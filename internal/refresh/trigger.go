// Package refresh serializes quote refreshes and tracks their load state.
//
// A Trigger runs at most one fetch-parse-publish cycle at a time. Requests
// that arrive while a cycle is in flight are dropped rather than queued, so
// two fetches can never race to publish out of order.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"coinfeed/internal/fetcher"
	"coinfeed/internal/quote"
	"coinfeed/internal/snapshot"
)

// Decoder turns a fetched payload into a snapshot
type Decoder interface {
	ParseResult(data []byte) (quote.Result, error)
}

// Event describes one state transition
type Event struct {
	State    LoadState
	Snapshot snapshot.Snapshot
	// Err is set when State is Failed
	Err error
	// Duration and Skipped are set on the transition out of Loading
	Duration time.Duration
	Skipped  int
}

// Listener receives transitions in the order they happen. It runs on the
// refresh goroutine and must not call Wait.
type Listener func(Event)

// Trigger owns the load state and the publish path
type Trigger struct {
	fetcher   fetcher.Fetcher
	decoder   Decoder
	publisher *snapshot.Publisher
	logger    *slog.Logger

	mu        sync.Mutex
	state     LoadState
	lastErr   error
	listeners []Listener

	// notifyMu keeps one cycle's completion event ahead of the next
	// cycle's Loading event.
	notifyMu sync.Mutex
	inflight sync.WaitGroup
}

// Option configures a Trigger
type Option func(*Trigger)

// WithLogger sets the trigger's logger
func WithLogger(logger *slog.Logger) Option {
	return func(t *Trigger) {
		t.logger = logger
	}
}

// WithPublisher makes the trigger publish into an existing slot
func WithPublisher(p *snapshot.Publisher) Option {
	return func(t *Trigger) {
		t.publisher = p
	}
}

// New creates an idle Trigger
func New(f fetcher.Fetcher, d Decoder, opts ...Option) *Trigger {
	t := &Trigger{
		fetcher: f,
		decoder: d,
		state:   Idle,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.publisher == nil {
		t.publisher = snapshot.NewPublisher()
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	return t
}

// Subscribe registers a listener for subsequent transitions
func (t *Trigger) Subscribe(l Listener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, l)
}

// State returns the current load state
func (t *Trigger) State() LoadState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// LastError returns the error of the most recent failed refresh, cleared on
// the next success.
func (t *Trigger) LastError() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

// Current returns the latest published snapshot without waiting on a refresh
func (t *Trigger) Current() snapshot.Snapshot {
	return t.publisher.Current()
}

// InitialRefresh starts the first load. It behaves exactly like RequestRefresh.
func (t *Trigger) InitialRefresh(ctx context.Context) bool {
	return t.RequestRefresh(ctx)
}

// RequestRefresh starts a background refresh and reports whether it did.
// While a refresh is in flight the request is coalesced and false is
// returned. The refresh keeps ctx's values but not its cancellation: once
// started it runs to completion.
func (t *Trigger) RequestRefresh(ctx context.Context) bool {
	t.mu.Lock()
	if t.state == Loading {
		t.mu.Unlock()
		t.logger.Debug("refresh coalesced")
		return false
	}
	t.state = Loading
	t.inflight.Add(1)
	t.mu.Unlock()

	go t.run(context.WithoutCancel(ctx))
	return true
}

// Wait blocks until no refresh is in flight
func (t *Trigger) Wait() {
	t.inflight.Wait()
}

func (t *Trigger) run(ctx context.Context) {
	defer t.inflight.Done()

	t.notifyMu.Lock()
	t.notify(Event{State: Loading, Snapshot: t.publisher.Current()})
	t.notifyMu.Unlock()

	started := time.Now()
	res, err := t.cycle(ctx)
	elapsed := time.Since(started)

	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()

	if err != nil {
		t.mu.Lock()
		t.state = Failed
		t.lastErr = err
		t.mu.Unlock()

		t.logger.Warn("refresh failed",
			"error", err.Error(),
			"duration", elapsed)
		t.notify(Event{
			State:    Failed,
			Snapshot: t.publisher.Current(),
			Err:      err,
			Duration: elapsed,
		})
		return
	}

	t.publisher.Publish(res.Snapshot)
	t.mu.Lock()
	t.state = Idle
	t.lastErr = nil
	t.mu.Unlock()

	t.logger.Info("refresh completed",
		"records", res.Snapshot.Len(),
		"skipped", res.Skipped,
		"duration", elapsed)
	t.notify(Event{
		State:    Idle,
		Snapshot: res.Snapshot,
		Duration: elapsed,
		Skipped:  res.Skipped,
	})
}

// cycle fetches and decodes one payload. A panic in either step is turned
// into an error so the trigger stays usable.
func (t *Trigger) cycle(ctx context.Context) (res quote.Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("refresh panicked: %v", rec)
		}
	}()

	body, err := t.fetcher.Fetch(ctx)
	if err != nil {
		return quote.Result{}, fmt.Errorf("fetch: %w", err)
	}
	res, err = t.decoder.ParseResult(body)
	if err != nil {
		return quote.Result{}, fmt.Errorf("parse: %w", err)
	}
	return res, nil
}

func (t *Trigger) notify(ev Event) {
	t.mu.Lock()
	listeners := make([]Listener, len(t.listeners))
	copy(listeners, t.listeners)
	t.mu.Unlock()

	for _, l := range listeners {
		l(ev)
	}
}
