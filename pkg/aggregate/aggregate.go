// Package aggregate turns the full vote list of a poll into a bounded snapshot: a half-hour
// chart, the largest votes, the largest voters and reveal completeness.
package aggregate

import (
	"sort"

	"github.com/canopy-network/gravityx/pkg/gravity"
)

// Stats describes one aggregation run, for logging and metrics.
type Stats struct {
	Votes         int
	Voters        int
	Uncharted     int
	RevealedVotes int
}

// VoteBetter ranks votes: larger amount first, then earlier block, then lower id.
func VoteBetter(a, b gravity.Vote) bool {
	if a.Amount != b.Amount {
		return a.Amount > b.Amount
	}
	if a.BlockNumber != b.BlockNumber {
		return a.BlockNumber < b.BlockNumber
	}
	return a.ID < b.ID
}

// UserBetter ranks voters: larger total first, then lower address.
func UserBetter(a, b gravity.TopUser) bool {
	if a.Total != b.Total {
		return a.Total > b.Total
	}
	return a.Address < b.Address
}

// Aggregate computes the snapshot of votes over window w. Usernames and GeneratedAt are left
// for the caller. The input slice is not modified.
func Aggregate(votes []gravity.Vote, w gravity.PollWindow) (gravity.Snapshot, Stats) {
	snap := gravity.Snapshot{
		PollID:    w.PollID,
		StartDate: w.StartDate,
		EndDate:   w.EndDate,
		Reveals:   []gravity.RevealedVote{},
	}
	stats := Stats{Votes: len(votes)}

	c := newChart(w)
	topVotes := newTopK(gravity.TopVotesLimit, VoteBetter)
	users := make(map[string]*gravity.TopUser)

	for _, v := range votes {
		snap.TotalVoteCount++
		snap.TotalAmount = addSat(snap.TotalAmount, v.Amount)
		if v.IsRevealed() {
			snap.RevealedVoteCount++
		}

		if !c.add(v) {
			stats.Uncharted++
		}

		topVotes.Offer(v)

		key := v.VoterKey()
		u, ok := users[key]
		if !ok {
			u = &gravity.TopUser{Address: key}
			users[key] = u
		}
		u.Total = addSat(u.Total, v.Amount)
		u.Votes = append(u.Votes, v)
	}

	snap.ChartData = c.buckets

	ranked := topVotes.Sorted()
	snap.TopVotes = make([]gravity.TopVote, len(ranked))
	for i, v := range ranked {
		snap.TopVotes[i] = gravity.TopVote{Vote: v}
	}

	topUsers := newTopK(gravity.TopUsersLimit, UserBetter)
	for _, u := range users {
		topUsers.Offer(*u)
	}
	snap.TopUsers = topUsers.Sorted()
	for i := range snap.TopUsers {
		own := snap.TopUsers[i].Votes
		sort.Slice(own, func(a, b int) bool { return VoteBetter(own[a], own[b]) })
	}

	snap.IsFinalized = snap.RevealedVoteCount == snap.TotalVoteCount
	if snap.IsFinalized {
		snap.Reveals = make([]gravity.RevealedVote, 0, len(votes))
		for _, v := range votes {
			id, _ := v.Candidate()
			snap.Reveals = append(snap.Reveals, gravity.RevealedVote{ID: v.ID, CandidateID: id, Amount: v.Amount})
		}
	}

	stats.Voters = len(users)
	stats.RevealedVotes = int(snap.RevealedVoteCount)
	return snap, stats
}

// CandidateTotals sums amounts per candidate over a fully revealed result list.
func CandidateTotals(reveals []gravity.RevealedVote) map[uint32]uint64 {
	out := make(map[uint32]uint64)
	for _, r := range reveals {
		out[r.CandidateID] = addSat(out[r.CandidateID], r.Amount)
	}
	return out
}
