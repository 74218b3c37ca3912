package watcher

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/canopy-network/gravityx/pkg/gravity"
	"github.com/canopy-network/gravityx/pkg/reconcile"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const viewerPrefix = "poll:"

// PollSource yields the polls that should be watched.
type PollSource interface {
	Desired(ctx context.Context) ([]uint64, error)
}

// StaticPolls is a fixed PollSource.
type StaticPolls []uint64

// NewStaticPolls parses decimal poll ids.
func NewStaticPolls(raw []string) (StaticPolls, error) {
	out := make(StaticPolls, 0, len(raw))
	for _, r := range raw {
		id, err := gravity.ParsePollID(r)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func (s StaticPolls) Desired(context.Context) ([]uint64, error) {
	return s, nil
}

func viewerKey(pollID uint64) string {
	return viewerPrefix + strconv.FormatUint(pollID, 10)
}

// SetupScheduler sets up the cron scheduler.
func (a *App) SetupScheduler(ctx context.Context, cronSpec string) error {
	// Seconds field, optional
	a.Cron = cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cron.DefaultLogger)))

	_, err := a.Cron.AddFunc(cronSpec, func() {
		// keep each run bounded
		rctx, cancel := context.WithTimeout(ctx, 25*time.Second)
		defer cancel()
		if err := a.Reconcile(rctx); err != nil {
			a.Logger.Warn("[watcher] reconcile error", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("cron spec %q: %w", cronSpec, err)
	}

	return nil
}

// StartCron starts the cron scheduler.
func (a *App) StartCron() {
	a.Cron.Start()
	a.Logger.Info("[watcher] Cron started", zap.String("cronSpec", a.CronSpec))
}

// StopCron stops the cron scheduler.
func (a *App) StopCron() {
	if a.Cron != nil {
		<-a.Cron.Stop().Done()
	}
}

// Reconcile makes the running engines match the desired polls: missing polls are opened,
// engines stuck in StateError are restarted, and polls no longer desired are closed.
// Finalized engines are kept so their last view stays available.
func (a *App) Reconcile(ctx context.Context) error {
	desired, err := a.Polls.Desired(ctx)
	if err != nil {
		return err
	}

	desiredSet := make(map[string]uint64, len(desired))
	for _, id := range desired {
		key := viewerKey(id)
		desiredSet[key] = id

		e, ok := a.Engines.Get(key)
		if !ok {
			a.Engines.Open(key, id)
			a.Logger.Info("[watcher] watching poll", zap.Uint64("pollId", id))
			continue
		}
		if state, stateErr := e.State(); state == reconcile.StateError {
			a.Engines.Open(key, id)
			a.metrics.restarts.Inc()
			a.Logger.Warn("[watcher] restarting failed engine", zap.Uint64("pollId", id), zap.Error(stateErr))
		}
	}

	// If any previously watched poll disappeared from desired, stop it.
	a.Engines.Range(func(key string, _ *reconcile.Engine) bool {
		if _, ok := desiredSet[key]; !ok {
			a.Engines.Close(key)
		}
		return true
	})

	a.observe()
	return nil
}

// ReconcileOnce is a convenience wrapper for Reconcile.
func (a *App) ReconcileOnce(ctx context.Context) {
	if err := a.Reconcile(ctx); err != nil {
		a.Logger.Warn("[watcher] reconcile error", zap.Error(err))
	}
}

// observe refreshes the engine gauge.
func (a *App) observe() {
	counts := map[reconcile.State]float64{
		reconcile.StateIdle:      0,
		reconcile.StateVoting:    0,
		reconcile.StateLive:      0,
		reconcile.StateFinalized: 0,
		reconcile.StateError:     0,
	}
	a.Engines.Range(func(_ string, e *reconcile.Engine) bool {
		s, _ := e.State()
		counts[s]++
		return true
	})
	for s, n := range counts {
		a.metrics.engines.WithLabelValues(string(s)).Set(n)
	}
}
