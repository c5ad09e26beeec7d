package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"coinfeed/internal/config"
	"coinfeed/internal/console"
	"coinfeed/internal/fetcher"
	"coinfeed/internal/logging"
	"coinfeed/internal/metrics"
	"coinfeed/internal/quote"
	"coinfeed/internal/ratelimit"
	"coinfeed/internal/refresh"
	"coinfeed/internal/scheduler"
	"coinfeed/internal/server"
)

const shutdownTimeout = 10 * time.Second

// app is the wired pipeline. Scheduler and server are nil when disabled.
type app struct {
	fetcher   *fetcher.EndpointFetcher
	trigger   *refresh.Trigger
	metrics   *metrics.Metrics
	printer   *console.Printer
	scheduler *scheduler.Scheduler
	server    *server.Server
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer, reg *prometheus.Registry) (*app, error) {
	client := fetcher.NewHTTPClient(cfg.FetchTimeout, cfg.UserAgent)
	f := fetcher.NewEndpointFetcher(cfg.Endpoint,
		fetcher.WithClient(client),
		fetcher.WithLogger(logger),
	)

	parser := quote.NewParser(cfg.NameField, cfg.PriceField)
	trig := refresh.New(f, parser, refresh.WithLogger(logger))

	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg != nil {
		registerer, gatherer = reg, reg
	}
	m := metrics.New(registerer)
	printer := console.New(out)
	trig.Subscribe(m.Observe)
	trig.Subscribe(printer.Observe)

	a := &app{
		fetcher: f,
		trigger: trig,
		metrics: m,
		printer: printer,
	}

	if cfg.RefreshSchedule != "" {
		a.scheduler = scheduler.NewScheduler(ctx, trig,
			scheduler.WithLogger(logger),
			scheduler.WithTickHook(func(started bool) {
				if !started {
					m.Coalesced(string(ratelimit.SourceSchedule))
				}
			}),
		)
		if err := a.scheduler.Register(cfg.RefreshSchedule); err != nil {
			return nil, err
		}
	}

	if cfg.ListenAddr != "" {
		a.server = server.NewServer(server.Config{
			Addr:        cfg.ListenAddr,
			Limiter:     ratelimit.NewManual(cfg.ManualRefreshPerMinute),
			Gatherer:    gatherer,
			OnCoalesced: m.Coalesced,
		}, trig, logger)
	}

	return a, nil
}

// run starts the pipeline and blocks until ctx is canceled or the server
// fails, then waits for any in-flight refresh.
func (a *app) run(ctx context.Context) error {
	a.trigger.InitialRefresh(ctx)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if a.scheduler != nil {
		a.scheduler.Start()
		g.Go(func() error {
			<-gctx.Done()
			a.scheduler.Stop()
			return nil
		})
	}

	if a.server != nil {
		g.Go(a.server.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return a.server.Shutdown(shutdownCtx)
		})
	}

	err := g.Wait()
	a.trigger.Wait()
	return err
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	// Cancel on interrupt for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, os.Stdout, nil)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	logger.Info("coinfeed starting",
		"endpoint", cfg.Endpoint,
		"schedule", cfg.RefreshSchedule,
		"listen_addr", cfg.ListenAddr,
	)

	err = a.run(ctx)
	a.fetcher.Close()
	if err != nil {
		logger.Error("coinfeed stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("coinfeed stopped")
}
