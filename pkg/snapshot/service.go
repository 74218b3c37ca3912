// Package snapshot builds the aggregated snapshot of a poll from the vote ledger.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/canopy-network/gravityx/pkg/aggregate"
	"github.com/canopy-network/gravityx/pkg/gravity"
	"github.com/canopy-network/gravityx/pkg/identity"
	"go.uber.org/zap"
)

const (
	CacheFinal = "public, max-age=2592000"
	CacheLive  = "public, max-age=600"
)

var (
	ErrInvalidInput = gravity.ErrInvalidInput
	ErrNotFound     = gravity.ErrNotFound
)

// VoteLedger returns the full vote list of a poll.
type VoteLedger interface {
	ListVotes(ctx context.Context, pollID uint64) ([]gravity.Vote, error)
}

// PollMetadataStore returns the voting window of a poll, gravity.ErrNotFound when unknown.
type PollMetadataStore interface {
	GetPollWindow(ctx context.Context, pollID uint64) (gravity.PollWindow, error)
}

// RevealHead reports the current position of the reveal feed.
type RevealHead interface {
	Head(ctx context.Context, pollID uint64) (string, error)
}

// Result is a computed snapshot with the Cache-Control directive it may be served with.
type Result struct {
	Snapshot     gravity.Snapshot
	CacheControl string
}

// Deps wires a Service. Identity and Reveals are optional.
type Deps struct {
	Votes    VoteLedger
	Polls    PollMetadataStore
	Identity identity.Directory
	Reveals  RevealHead
	Pool     pond.Pool
	Metrics  *Metrics
	Logger   *zap.Logger
	Now      func() time.Time
}

// Service recomputes a poll snapshot from scratch on every call. Nothing is stored.
type Service struct {
	votes    VoteLedger
	polls    PollMetadataStore
	identity identity.Directory
	reveals  RevealHead
	pool     pond.Pool
	metrics  *Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func New(d Deps) *Service {
	s := &Service{
		votes:    d.Votes,
		polls:    d.Polls,
		identity: d.Identity,
		reveals:  d.Reveals,
		pool:     d.Pool,
		metrics:  d.Metrics,
		logger:   d.Logger,
		now:      d.Now,
	}
	if s.pool == nil {
		s.pool = pond.NewPool(16)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// GetAggregatedSnapshot validates rawPollID and computes the poll's snapshot.
// Errors wrap ErrInvalidInput or ErrNotFound; anything else is an upstream failure.
func (s *Service) GetAggregatedSnapshot(ctx context.Context, rawPollID string) (Result, error) {
	start := time.Now()
	defer func() { s.metrics.duration.Observe(time.Since(start).Seconds()) }()

	res, err := s.compute(ctx, rawPollID)
	s.metrics.results.WithLabelValues(outcome(err)).Inc()
	return res, err
}

func (s *Service) compute(ctx context.Context, rawPollID string) (Result, error) {
	pollID, err := gravity.ParsePollID(rawPollID)
	if err != nil {
		return Result{}, err
	}
	logger := s.logger.With(zap.Uint64("pollId", pollID))

	// The feed position is read before the ledger so that every reveal up to it is in the
	// vote scan below.
	var cursor string
	if s.reveals != nil {
		if cursor, err = s.reveals.Head(ctx, pollID); err != nil {
			return Result{}, fmt.Errorf("reveal head of poll %d: %w", pollID, err)
		}
	}

	var (
		window gravity.PollWindow
		votes  []gravity.Vote
	)
	group := s.pool.NewGroupContext(ctx)
	groupCtx := group.Context()
	group.SubmitErr(func() error {
		w, err := s.polls.GetPollWindow(groupCtx, pollID)
		if err != nil {
			return err
		}
		if err := w.Validate(); err != nil {
			return fmt.Errorf("poll %d: %w: %w", pollID, ErrNotFound, err)
		}
		window = w
		return nil
	})
	group.SubmitErr(func() error {
		v, err := s.votes.ListVotes(groupCtx, pollID)
		if err != nil {
			return err
		}
		votes = v
		return nil
	})
	if err := group.Wait(); err != nil {
		return Result{}, err
	}

	snap, stats := aggregate.Aggregate(votes, window)
	snap.RevealCursor = cursor
	s.metrics.votes.Add(float64(stats.Votes))
	s.metrics.uncharted.Add(float64(stats.Uncharted))

	s.enrich(ctx, logger, &snap)

	now := s.now()
	snap.GeneratedAt = now.UTC()

	logger.Debug("Snapshot computed",
		zap.Int("votes", stats.Votes),
		zap.Int("voters", stats.Voters),
		zap.Int("revealed", stats.RevealedVotes),
		zap.Int("uncharted", stats.Uncharted),
		zap.Bool("finalized", snap.IsFinalized))

	return Result{Snapshot: snap, CacheControl: CacheDirective(snap, now)}, nil
}

// enrich annotates the top lists with usernames. A failed lookup leaves them anonymous.
func (s *Service) enrich(ctx context.Context, logger *zap.Logger, snap *gravity.Snapshot) {
	if s.identity == nil {
		return
	}
	addrs := snap.Addresses()
	if len(addrs) == 0 {
		return
	}
	names, err := s.identity.ResolveUsernames(ctx, addrs)
	if err != nil {
		logger.Warn("Username lookup failed, serving snapshot without usernames",
			zap.Int("addresses", len(addrs)),
			zap.Error(err))
		return
	}
	snap.ApplyUsernames(names)
}

// CacheDirective returns the Cache-Control value for a snapshot: long-lived once voting is
// over and every vote is revealed, short-lived while the ledger can still change.
func CacheDirective(snap gravity.Snapshot, now time.Time) string {
	if snap.Window().Ended(now) && snap.RevealedVoteCount == snap.TotalVoteCount {
		return CacheFinal
	}
	return CacheLive
}

func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, ErrInvalidInput):
		return outcomeInvalid
	case errors.Is(err, ErrNotFound):
		return outcomeNotFound
	default:
		return outcomeError
	}
}
