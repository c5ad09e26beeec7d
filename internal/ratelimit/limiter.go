package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Source identifies who asked for a refresh
type Source string

const (
	// SourceManual is a user-triggered refresh (pull-to-refresh, POST /api/refresh)
	SourceManual Source = "manual"
	// SourceSchedule is a timer-driven refresh
	SourceSchedule Source = "schedule"
)

// Limiter manages rate limits per refresh source. Sources without a
// configured limit are never throttled.
type Limiter struct {
	limiters map[Source]*rate.Limiter
	mu       sync.RWMutex
}

// New creates an empty Limiter
func New() *Limiter {
	return &Limiter{
		limiters: make(map[Source]*rate.Limiter),
	}
}

// NewManual returns a limiter allowing perMinute manual refreshes with a
// burst of the same size. Zero or negative disables the limit.
func NewManual(perMinute int) *Limiter {
	l := New()
	if perMinute > 0 {
		l.Set(SourceManual, rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	}
	return l
}

// Set installs or replaces the limit for a source
func (l *Limiter) Set(source Source, limit rate.Limit, burst int) {
	if burst < 1 {
		burst = 1
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiters[source] = rate.NewLimiter(limit, burst)
}

// Wait blocks until the rate limiter permits an event for the given source
// It returns an error if the context is canceled before the event can proceed
func (l *Limiter) Wait(ctx context.Context, source Source) error {
	l.mu.RLock()
	limiter, exists := l.limiters[source]
	l.mu.RUnlock()

	if !exists {
		return nil
	}

	return limiter.Wait(ctx)
}

// Allow reports whether an event for the given source may happen now
func (l *Limiter) Allow(source Source) bool {
	l.mu.RLock()
	limiter, exists := l.limiters[source]
	l.mu.RUnlock()

	if !exists {
		return true
	}

	return limiter.Allow()
}
