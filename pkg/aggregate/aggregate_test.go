package aggregate

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/canopy-network/gravityx/pkg/gravity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var midnight = time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

func twoHourWindow() gravity.PollWindow {
	return gravity.PollWindow{PollID: 9, StartDate: midnight, EndDate: midnight.Add(2 * time.Hour)}
}

func vote(id string, voter string, amount uint64, at time.Duration) gravity.Vote {
	return gravity.Vote{
		ID:        id,
		Voter:     voter,
		CreatedAt: midnight.Add(at),
		Amount:    amount,
		PollID:    9,
		Choice:    gravity.Committed{},
	}
}

func amounts(votes []gravity.TopVote) []uint64 {
	out := make([]uint64, len(votes))
	for i, v := range votes {
		out[i] = v.Amount
	}
	return out
}

// Scenario A: amounts [10, 5, 20] revealed to candidates [0, 1, 0].
func TestAggregate_ScenarioA(t *testing.T) {
	votes := []gravity.Vote{
		vote("a", "0x1", 10, 5*time.Minute).WithCandidate(0),
		vote("b", "0x2", 5, 6*time.Minute).WithCandidate(1),
		vote("c", "0x3", 20, 7*time.Minute).WithCandidate(0),
	}

	snap, _ := Aggregate(votes, twoHourWindow())

	assert.Equal(t, []uint64{20, 10, 5}, amounts(snap.TopVotes))
	assert.True(t, snap.IsFinalized)
	require.Len(t, snap.Reveals, 3)

	totals := CandidateTotals(snap.Reveals)
	assert.Equal(t, uint64(30), totals[0])
	assert.Equal(t, uint64(5), totals[1])
}

// Scenario B: window 00:00-02:00 with votes at 00:10, 00:45 and 01:05.
func TestAggregate_ScenarioB(t *testing.T) {
	votes := []gravity.Vote{
		vote("a", "0x1", 1, 10*time.Minute),
		vote("b", "0x2", 2, 45*time.Minute),
		vote("c", "0x3", 3, 65*time.Minute),
	}

	snap, stats := Aggregate(votes, twoHourWindow())

	require.Len(t, snap.ChartData, 4)
	wantTimes := []time.Duration{0, 30 * time.Minute, time.Hour, 90 * time.Minute}
	wantCounts := []uint64{1, 1, 1, 0}
	wantAmounts := []uint64{1, 2, 3, 0}
	for i, b := range snap.ChartData {
		assert.Equal(t, midnight.Add(wantTimes[i]), b.Timestamp)
		assert.Equal(t, wantCounts[i], b.VoteCount, "bucket %d", i)
		assert.Equal(t, wantAmounts[i], b.TotalAmount, "bucket %d", i)
	}
	assert.Zero(t, stats.Uncharted)
}

// Scenario C: 100 votes, all revealed.
func TestAggregate_ScenarioC(t *testing.T) {
	votes := make([]gravity.Vote, 100)
	for i := range votes {
		votes[i] = vote(fmt.Sprintf("v%03d", i), fmt.Sprintf("0x%d", i%30), uint64(i+1), time.Duration(i)*time.Minute).WithCandidate(uint32(i % 3))
	}

	snap, _ := Aggregate(votes, twoHourWindow())

	assert.Equal(t, uint64(100), snap.TotalVoteCount)
	assert.Equal(t, uint64(100), snap.RevealedVoteCount)
	assert.True(t, snap.IsFinalized)
	assert.Len(t, snap.Reveals, 100)
}

func TestAggregate_PartialRevealHasNoReveals(t *testing.T) {
	votes := []gravity.Vote{
		vote("a", "0x1", 10, time.Minute).WithCandidate(2),
		vote("b", "0x1", 5, 2*time.Minute),
	}

	snap, _ := Aggregate(votes, twoHourWindow())

	assert.Equal(t, uint64(1), snap.RevealedVoteCount)
	assert.False(t, snap.IsFinalized)
	assert.NotNil(t, snap.Reveals)
	assert.Empty(t, snap.Reveals)
}

func TestAggregate_EmptyPoll(t *testing.T) {
	snap, _ := Aggregate(nil, twoHourWindow())

	assert.Len(t, snap.ChartData, 4)
	assert.NotNil(t, snap.TopVotes)
	assert.NotNil(t, snap.TopUsers)
	assert.Empty(t, snap.TopVotes)
	assert.Zero(t, snap.TotalVoteCount)
	assert.True(t, snap.IsFinalized)
	assert.Empty(t, snap.Reveals)
}

func TestAggregate_OutOfWindowVotesCountedButNotCharted(t *testing.T) {
	w := gravity.PollWindow{PollID: 9, StartDate: midnight.Add(5 * time.Minute), EndDate: midnight.Add(2 * time.Hour)}
	votes := []gravity.Vote{
		vote("early", "0x1", 4, 10*time.Minute),         // snaps to 00:00, before the first bucket at 00:30
		vote("inside", "0x2", 6, 40*time.Minute),        // 00:30 bucket
		vote("late", "0x3", 8, 2*time.Hour+time.Minute), // past the last bucket
	}

	snap, stats := Aggregate(votes, w)

	require.Len(t, snap.ChartData, 3)
	assert.Equal(t, midnight.Add(30*time.Minute), snap.ChartData[0].Timestamp)
	var charted uint64
	for _, b := range snap.ChartData {
		charted += b.VoteCount
	}
	assert.Equal(t, uint64(1), charted)
	assert.Equal(t, uint64(3), snap.TotalVoteCount)
	assert.Equal(t, uint64(18), snap.TotalAmount)
	assert.Equal(t, 2, stats.Uncharted)
}

func TestAggregate_InWindowVotesAllCharted(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	w := twoHourWindow()
	votes := make([]gravity.Vote, 500)
	for i := range votes {
		at := time.Duration(rng.Int63n(int64(2 * time.Hour)))
		votes[i] = vote(fmt.Sprintf("v%d", i), fmt.Sprintf("0x%d", rng.Intn(80)), uint64(rng.Intn(1000)), at)
	}

	snap, _ := Aggregate(votes, w)

	var charted, chartedAmount uint64
	for i, b := range snap.ChartData {
		charted += b.VoteCount
		chartedAmount += b.TotalAmount
		if i > 0 {
			assert.True(t, b.Timestamp.After(snap.ChartData[i-1].Timestamp))
		}
	}
	assert.Equal(t, snap.TotalVoteCount, charted)
	assert.Equal(t, snap.TotalAmount, chartedAmount)
}

func TestAggregate_TopVotesBoundedAndDescending(t *testing.T) {
	for _, n := range []int{0, 1, 49, 50, 51, 400} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			perm := rand.New(rand.NewSource(int64(n))).Perm(n)
			votes := make([]gravity.Vote, n)
			for i, p := range perm {
				votes[i] = vote(fmt.Sprintf("v%d", i), fmt.Sprintf("0x%d", i), uint64(p+1), time.Minute)
			}

			snap, _ := Aggregate(votes, twoHourWindow())

			assert.Len(t, snap.TopVotes, min(gravity.TopVotesLimit, n))
			for i := 1; i < len(snap.TopVotes); i++ {
				assert.Greater(t, snap.TopVotes[i-1].Amount, snap.TopVotes[i].Amount)
			}
			if n > 0 {
				assert.Equal(t, uint64(n), snap.TopVotes[0].Amount)
			}
		})
	}
}

func TestAggregate_TopUsersSumCaseInsensitive(t *testing.T) {
	votes := []gravity.Vote{
		vote("a", "0xABC", 10, time.Minute),
		vote("b", "0xabc", 15, 2*time.Minute),
		vote("c", "0xdef", 20, 3*time.Minute),
	}

	snap, stats := Aggregate(votes, twoHourWindow())

	require.Len(t, snap.TopUsers, 2)
	assert.Equal(t, 2, stats.Voters)
	assert.Equal(t, "0xabc", snap.TopUsers[0].Address)
	assert.Equal(t, uint64(25), snap.TopUsers[0].Total)
	require.Len(t, snap.TopUsers[0].Votes, 2)
	assert.Equal(t, "b", snap.TopUsers[0].Votes[0].ID)
	assert.Equal(t, "0xdef", snap.TopUsers[1].Address)
}

func TestAggregate_TopUsersBoundedAndDescending(t *testing.T) {
	var votes []gravity.Vote
	for u := 0; u < 60; u++ {
		// user u totals (u+1)*3 across three votes
		for k := 0; k < 3; k++ {
			votes = append(votes, vote(fmt.Sprintf("u%d-%d", u, k), fmt.Sprintf("0x%02d", u), uint64(u+1), time.Duration(k)*time.Minute))
		}
	}

	snap, _ := Aggregate(votes, twoHourWindow())

	require.Len(t, snap.TopUsers, gravity.TopUsersLimit)
	assert.Equal(t, uint64(180), snap.TopUsers[0].Total)
	for i := 1; i < len(snap.TopUsers); i++ {
		assert.Greater(t, snap.TopUsers[i-1].Total, snap.TopUsers[i].Total)
	}
}

func TestAggregate_TiesBreakDeterministically(t *testing.T) {
	votes := []gravity.Vote{
		{ID: "z", Voter: "0x1", Amount: 7, BlockNumber: 3, CreatedAt: midnight},
		{ID: "b", Voter: "0x2", Amount: 7, BlockNumber: 2, CreatedAt: midnight},
		{ID: "a", Voter: "0x3", Amount: 7, BlockNumber: 2, CreatedAt: midnight},
	}

	first, _ := Aggregate(votes, twoHourWindow())
	reversed := []gravity.Vote{votes[2], votes[1], votes[0]}
	second, _ := Aggregate(reversed, twoHourWindow())

	ids := func(s gravity.Snapshot) []string {
		out := make([]string, 0, len(s.TopVotes))
		for _, v := range s.TopVotes {
			out = append(out, v.ID)
		}
		return out
	}
	assert.Equal(t, []string{"a", "b", "z"}, ids(first))
	assert.Equal(t, ids(first), ids(second))

	// equal totals order by address
	assert.Equal(t, "0x1", first.TopUsers[0].Address)
	assert.Equal(t, "0x2", first.TopUsers[1].Address)
}

func TestTopK_MatchesFullSort(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	values := make([]int, 1000)
	for i := range values {
		values[i] = rng.Intn(10000)
	}
	better := func(a, b int) bool { return a > b }

	top := newTopK(25, better)
	for _, v := range values {
		top.Offer(v)
	}

	sorted := append([]int(nil), values...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	assert.Equal(t, sorted[:25], top.Sorted())
}

func TestTopK_ZeroCapacity(t *testing.T) {
	top := newTopK(0, func(a, b int) bool { return a > b })
	top.Offer(1)
	assert.Empty(t, top.Sorted())
}

func TestAddSat(t *testing.T) {
	assert.Equal(t, uint64(5), addSat(2, 3))
	assert.Equal(t, ^uint64(0), addSat(^uint64(0)-1, 5))
}
