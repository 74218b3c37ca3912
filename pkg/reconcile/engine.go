package reconcile

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/canopy-network/gravityx/pkg/gravity"
	"github.com/canopy-network/gravityx/pkg/retry"
	"go.uber.org/zap"
)

const DefaultInterval = 10 * time.Second

// State is the lifecycle phase of an Engine.
type State string

const (
	StateIdle      State = "idle"
	StateVoting    State = "voting"
	StateLive      State = "live"
	StateFinalized State = "finalized"
	StateError     State = "error"
)

// Client fetches the baseline snapshot and reveal pages of a poll.
type Client interface {
	Snapshot(ctx context.Context, pollID uint64) (gravity.Snapshot, error)
	Reveals(ctx context.Context, pollID uint64, cursor string) (gravity.RevealPage, error)
}

// Config tunes an Engine. Zero values fall back to defaults.
type Config struct {
	Interval time.Duration
	Retry    retry.Config
	OnView   func(View)
	Logger   *zap.Logger
	Now      func() time.Time
}

// Engine reconciles one poll for one viewer. It fetches the baseline once, then polls the
// reveal feed on a fixed interval until every vote is revealed or it is stopped. At most
// one page fetch is in flight; ticks that find one running are skipped.
type Engine struct {
	pollID uint64
	client Client
	cfg    Config
	logger *zap.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	fetches sync.WaitGroup

	inFlight atomic.Bool

	mu       sync.RWMutex
	state    State
	err      error
	baseline gravity.Snapshot
	reveals  map[string]uint32
	cursor   string
	view     View
	hasView  bool

	publishMu sync.Mutex
}

// Start launches an engine for pollID. The engine ends when parent is cancelled, Stop is
// called, or the poll is finalized.
func Start(parent context.Context, pollID uint64, client Client, cfg Config) *Engine {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Retry.MaxRetries <= 0 {
		cfg.Retry = retry.ClientConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	ctx, cancel := context.WithCancel(parent)
	e := &Engine{
		pollID:  pollID,
		client:  client,
		cfg:     cfg,
		logger:  cfg.Logger.With(zap.Uint64("pollId", pollID)),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		state:   StateIdle,
		reveals: map[string]uint32{},
	}
	go e.run()
	return e
}

// PollID returns the poll this engine reconciles.
func (e *Engine) PollID() uint64 {
	return e.pollID
}

// Stop cancels the engine and waits for it to exit.
func (e *Engine) Stop() {
	e.cancel()
	<-e.done
}

// Done is closed once the engine has exited.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// State returns the current phase and, in StateError, the baseline failure.
func (e *Engine) State() (State, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state, e.err
}

// View returns the latest derived view; false before the baseline arrived.
func (e *Engine) View() (View, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.view, e.hasView
}

func (e *Engine) run() {
	defer close(e.done)
	defer e.fetches.Wait()
	defer e.cancel()

	var baseline gravity.Snapshot
	err := retry.WithBackoff(e.ctx, e.cfg.Retry, e.logger, "baseline_snapshot", func() error {
		s, err := e.client.Snapshot(e.ctx, e.pollID)
		if err != nil {
			return err
		}
		baseline = s
		return nil
	})
	if err != nil {
		if e.ctx.Err() != nil {
			return
		}
		e.mu.Lock()
		e.state = StateError
		e.err = fmt.Errorf("baseline snapshot of poll %d: %w", e.pollID, err)
		e.mu.Unlock()
		e.logger.Error("Baseline snapshot unavailable", zap.Error(err))
		return
	}

	e.mu.Lock()
	e.baseline = baseline
	e.cursor = baseline.RevealCursor
	e.mu.Unlock()

	if e.publish(e.reveals) == StateFinalized {
		return
	}

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.tick()
		}
	}
}

// tick re-derives status while voting and starts a page fetch once live.
func (e *Engine) tick() {
	e.mu.RLock()
	state, reveals := e.state, e.reveals
	e.mu.RUnlock()

	switch state {
	case StateVoting:
		if e.publish(reveals) != StateLive {
			return
		}
	case StateLive:
	default:
		return
	}

	if !e.inFlight.CompareAndSwap(false, true) {
		e.logger.Debug("Reveal fetch still in flight, skipping tick")
		return
	}

	e.mu.RLock()
	cursor := e.cursor
	e.mu.RUnlock()

	e.fetches.Add(1)
	go e.fetch(cursor)
}

func (e *Engine) fetch(cursor string) {
	defer e.fetches.Done()
	defer e.inFlight.Store(false)

	page, err := e.client.Reveals(e.ctx, e.pollID, cursor)
	if err != nil {
		// The next tick retries.
		e.logger.Debug("Reveal page fetch failed", zap.String("cursor", cursor), zap.Error(err))
		return
	}
	if e.ctx.Err() != nil {
		return
	}

	e.mu.Lock()
	merged := make(map[string]uint32, len(e.reveals)+len(page.Votes))
	for id, c := range e.reveals {
		merged[id] = c
	}
	for _, r := range page.Votes {
		merged[r.ID] = r.CandidateID
	}
	e.reveals = merged
	if page.NextCursor != "" {
		e.cursor = page.NextCursor
	}
	e.mu.Unlock()

	if e.publish(merged) == StateFinalized {
		e.cancel()
	}
}

// publish derives a view from the baseline and reveals, records it and hands it to OnView.
func (e *Engine) publish(reveals map[string]uint32) State {
	e.publishMu.Lock()
	defer e.publishMu.Unlock()

	e.mu.Lock()
	view := Derive(e.baseline, reveals, e.cfg.Now())
	state := stateOf(view.LiveStatus)
	prev := e.state
	e.view, e.hasView, e.state = view, true, state
	e.mu.Unlock()

	if prev != state {
		e.logger.Info("Reconciliation state changed",
			zap.String("from", string(prev)),
			zap.String("to", string(state)),
			zap.Uint64("revealed", view.RevealedVoteCount),
			zap.Uint64("remaining", view.RemainingVotesCount))
	}
	if e.cfg.OnView != nil {
		e.cfg.OnView(view)
	}
	return state
}

func stateOf(s gravity.Status) State {
	switch s {
	case gravity.StatusVoting:
		return StateVoting
	case gravity.StatusLive:
		return StateLive
	default:
		return StateFinalized
	}
}
