package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Refresher is the part of the trigger the scheduler drives
type Refresher interface {
	RequestRefresh(ctx context.Context) bool
}

// Scheduler fires periodic refresh requests on a cron schedule
type Scheduler struct {
	Cron      *cron.Cron
	Refresher Refresher
	Ctx       context.Context

	logger    *slog.Logger
	onTick    func(started bool)
	entryID   cron.EntryID
	scheduled bool
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithLogger sets the scheduler's logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithTickHook registers a callback run after every tick with whether the
// tick started a refresh or was coalesced.
func WithTickHook(fn func(started bool)) Option {
	return func(s *Scheduler) {
		s.onTick = fn
	}
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, r Refresher, opts ...Option) *Scheduler {
	s := &Scheduler{
		Cron:      cron.New(),
		Refresher: r,
		Ctx:       ctx,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// ParseSpec accepts a standard 5-field cron spec, a descriptor such as
// "@every 30s" or "@hourly", or a bare number of seconds.
func ParseSpec(spec string) (cron.Schedule, error) {
	spec = normalize(spec)
	if spec == "" {
		return nil, fmt.Errorf("empty schedule")
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return sched, nil
}

func normalize(spec string) string {
	spec = strings.TrimSpace(spec)
	if n, err := strconv.Atoi(spec); err == nil && n > 0 {
		return fmt.Sprintf("@every %ds", n)
	}
	return spec
}

// Register schedules periodic refreshes. It may be called once.
func (s *Scheduler) Register(spec string) error {
	if s.scheduled {
		return fmt.Errorf("refresh already scheduled")
	}
	sched, err := ParseSpec(spec)
	if err != nil {
		return fmt.Errorf("register refresh: %w", err)
	}
	s.entryID = s.Cron.Schedule(sched, cron.FuncJob(s.Tick))
	s.scheduled = true
	s.logger.Info("refresh scheduled", "schedule", normalize(spec))
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running tick to return.
// Ticks only request a refresh, so this never waits on a fetch.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// NextRun returns when the next scheduled refresh fires, or the zero time if
// nothing is scheduled or the scheduler is not running.
func (s *Scheduler) NextRun() time.Time {
	if !s.scheduled {
		return time.Time{}
	}
	return s.Cron.Entry(s.entryID).Next
}

// Tick requests one refresh; it is what each cron firing runs.
func (s *Scheduler) Tick() {
	started := s.Refresher.RequestRefresh(s.Ctx)
	if started {
		s.logger.Debug("scheduled refresh started")
	} else {
		s.logger.Debug("scheduled refresh coalesced with one in flight")
	}
	if s.onTick != nil {
		s.onTick(started)
	}
}
