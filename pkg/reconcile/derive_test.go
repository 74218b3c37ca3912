package reconcile

import (
	"fmt"
	"testing"
	"time"

	"github.com/canopy-network/gravityx/pkg/aggregate"
	"github.com/canopy-network/gravityx/pkg/gravity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	start = time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	end   = start.Add(2 * time.Hour)
	after = end.Add(time.Hour)
)

// baselineOf aggregates n votes of which the first revealed are revealed.
func baselineOf(n, revealed int) gravity.Snapshot {
	votes := make([]gravity.Vote, n)
	for i := range votes {
		votes[i] = gravity.Vote{
			ID:        fmt.Sprintf("v%03d", i),
			Voter:     fmt.Sprintf("0x%02d", i%40),
			Amount:    uint64(1000 - i),
			CreatedAt: start.Add(time.Duration(i) * time.Second),
			PollID:    1,
			Choice:    gravity.Committed{},
		}
		if i < revealed {
			votes[i] = votes[i].WithCandidate(uint32(i % 3))
		}
	}
	snap, _ := aggregate.Aggregate(votes, gravity.PollWindow{PollID: 1, StartDate: start, EndDate: end})
	return snap
}

func revealRange(from, to int) map[string]uint32 {
	out := make(map[string]uint32, to-from)
	for i := from; i < to; i++ {
		out[fmt.Sprintf("v%03d", i)] = uint32(i % 3)
	}
	return out
}

// Scenario D: 100 votes, 40 revealed, voting over.
func TestDerive_ScenarioD(t *testing.T) {
	v := Derive(baselineOf(100, 40), nil, after)

	assert.Equal(t, gravity.StatusLive, v.LiveStatus)
	assert.Equal(t, uint64(40), v.RevealedVoteCount)
	assert.Equal(t, uint64(60), v.RemainingVotesCount)
	assert.Nil(t, v.CandidateTotals)
	assert.Empty(t, v.Reveals)
}

// Scenario C: 100 votes, all revealed.
func TestDerive_ScenarioC(t *testing.T) {
	v := Derive(baselineOf(100, 100), nil, after)

	assert.Equal(t, gravity.StatusFinalized, v.LiveStatus)
	assert.Zero(t, v.RemainingVotesCount)
	assert.Len(t, v.Reveals, 100)
}

// Scenario A: amounts [10, 5, 20] revealed to [0, 1, 0].
func TestDerive_ScenarioA_CandidateTotals(t *testing.T) {
	votes := []gravity.Vote{
		{ID: "a", Voter: "0x1", Amount: 10, CreatedAt: start, Choice: gravity.Revealed{CandidateID: 0}},
		{ID: "b", Voter: "0x2", Amount: 5, CreatedAt: start, Choice: gravity.Revealed{CandidateID: 1}},
		{ID: "c", Voter: "0x3", Amount: 20, CreatedAt: start, Choice: gravity.Revealed{CandidateID: 0}},
	}
	baseline, _ := aggregate.Aggregate(votes, gravity.PollWindow{PollID: 1, StartDate: start, EndDate: end})

	v := Derive(baseline, nil, after)

	assert.Equal(t, []CandidateTotal{{CandidateID: 0, Amount: 30}, {CandidateID: 1, Amount: 5}}, v.CandidateTotals)
	require.Len(t, v.TopVotes, 3)
	assert.Equal(t, uint64(20), v.TopVotes[0].Amount)
}

func TestDerive_VotingBeforeEnd(t *testing.T) {
	v := Derive(baselineOf(10, 0), nil, start.Add(time.Minute))
	assert.Equal(t, gravity.StatusVoting, v.LiveStatus)
	assert.Equal(t, uint64(10), v.RemainingVotesCount)
}

func TestDerive_MergeIsIdempotent(t *testing.T) {
	baseline := baselineOf(100, 40)
	page := revealRange(40, 70)

	once := Derive(baseline, page, after)

	twice := make(map[string]uint32)
	for _, p := range []map[string]uint32{page, page} {
		for id, c := range p {
			twice[id] = c
		}
	}
	assert.Equal(t, once, Derive(baseline, twice, after))
	assert.Equal(t, uint64(70), once.RevealedVoteCount)
	assert.Equal(t, uint64(30), once.RemainingVotesCount)
}

func TestDerive_BaselineRevealsAreNotCountedTwice(t *testing.T) {
	baseline := baselineOf(100, 40)

	// v000..v039 are already revealed and among the top votes
	v := Derive(baseline, revealRange(30, 45), after)

	assert.Equal(t, uint64(45), v.RevealedVoteCount)
}

func TestDerive_ClampsToTotal(t *testing.T) {
	reveals := revealRange(40, 100)
	reveals["unknown-1"] = 1
	reveals["unknown-2"] = 2

	v := Derive(baselineOf(100, 40), reveals, after)

	assert.Equal(t, uint64(100), v.RevealedVoteCount)
	assert.Zero(t, v.RemainingVotesCount)
	assert.Equal(t, gravity.StatusFinalized, v.LiveStatus)
}

func TestDerive_OverlaysTopListsWithoutMutatingBaseline(t *testing.T) {
	baseline := baselineOf(100, 0)
	top := baseline.TopVotes[0]
	require.False(t, top.IsRevealed())

	v := Derive(baseline, map[string]uint32{top.ID: 2}, after)

	c, ok := v.TopVotes[0].Candidate()
	require.True(t, ok)
	assert.Equal(t, uint32(2), c)
	assert.False(t, v.TopVotes[1].IsRevealed())

	var patched bool
	for _, u := range v.TopUsers {
		for _, vote := range u.Votes {
			if vote.ID == top.ID {
				patched = vote.IsRevealed()
			}
		}
	}
	assert.True(t, patched, "top user votes are overlaid as well")

	assert.False(t, baseline.TopVotes[0].IsRevealed())
	for _, u := range baseline.TopUsers {
		for _, vote := range u.Votes {
			assert.False(t, vote.IsRevealed())
		}
	}
}
