package watcher

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/canopy-network/gravityx/pkg/logging"
	"github.com/canopy-network/gravityx/pkg/reconcile"
	"github.com/canopy-network/gravityx/pkg/rpc"
	"github.com/canopy-network/gravityx/pkg/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// App keeps one reconciliation engine per watched poll and restarts engines that failed to
// load their baseline, every Cron tick.
type App struct {
	// Polls is the desired set of polls to watch.
	Polls PollSource

	// Engines holds one engine per poll, keyed by viewerKey.
	Engines *reconcile.Manager

	// Cron is the scheduler that triggers reconciliation passes at specified intervals, according to CronSpec.
	Cron     *cron.Cron
	CronSpec string

	Registry *prometheus.Registry
	metrics  *metrics

	// Logger is used to log messages, errors, and events during the application's lifecycle and operations.
	Logger *zap.Logger

	// Server is the HTTP server that serves the reconciled views.
	Server *http.Server
}

// Initialize initializes the App.
func Initialize(ctx context.Context) (*App, error) {
	logger, err := logging.New("watcher")
	if err != nil {
		// nothing else to do here, we'll just log to stderr'
		panic(err)
	}

	endpoints := utils.EnvList("GRAVITY_API", []string{"http://localhost:3001"})
	client := rpc.NewHTTPWithOpts(rpc.Opts{
		Endpoints:       endpoints,
		Timeout:         utils.EnvDuration("GRAVITY_API_TIMEOUT", 15*time.Second),
		RPS:             utils.EnvInt("GRAVITY_API_RPS", 20),
		Burst:           utils.EnvInt("GRAVITY_API_BURST", 40),
		BreakerFailures: utils.EnvInt("GRAVITY_API_BREAKER_FAILURES", 3),
		BreakerCooldown: utils.EnvDuration("GRAVITY_API_BREAKER_COOLDOWN", 5*time.Second),
	})

	polls, err := NewStaticPolls(utils.EnvList("WATCH_POLLS", nil))
	if err != nil {
		return nil, fmt.Errorf("WATCH_POLLS: %w", err)
	}

	return New(ctx, logger, client, polls, Config{
		Interval: utils.EnvDuration("REVEAL_POLL_INTERVAL", reconcile.DefaultInterval),
		CronSpec: utils.Env("WATCH_CRON", "*/15 * * * * *"),
	})
}

// Config tunes New.
type Config struct {
	Interval time.Duration
	CronSpec string
}

// New builds an App watching the polls of source through client.
func New(ctx context.Context, logger *zap.Logger, client reconcile.Client, source PollSource, cfg Config) (*App, error) {
	registry := prometheus.NewRegistry()

	app := &App{
		Polls:    source,
		CronSpec: cfg.CronSpec,
		Registry: registry,
		metrics:  newMetrics(registry),
		Logger:   logger,
	}
	app.Engines = reconcile.NewManager(ctx, client, reconcile.Config{
		Interval: cfg.Interval,
		Logger:   logger,
		OnView:   app.onView,
	})

	if err := app.SetupScheduler(ctx, cfg.CronSpec); err != nil {
		return nil, err
	}

	return app, nil
}

// onView logs every view the engines publish.
func (a *App) onView(v reconcile.View) {
	a.metrics.views.Inc()
	a.Logger.Info("View updated",
		zap.Uint64("pollId", v.PollID),
		zap.String("status", string(v.LiveStatus)),
		zap.Uint64("revealed", v.RevealedVoteCount),
		zap.Uint64("remaining", v.RemainingVotesCount),
		zap.Uint64("total", v.TotalVoteCount))
}

// Start starts the application.
func (a *App) Start(ctx context.Context) {
	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Error("Server stopped unexpectedly", zap.Error(err))
		}
	}()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = a.Server.Shutdown(shutdownCtx)

	a.Logger.Info("[watcher] shutting down…")
	a.StopCron()
	a.Engines.CloseAll()
	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("さようなら!")
}
