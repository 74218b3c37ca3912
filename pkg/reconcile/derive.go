// Package reconcile keeps a viewer's picture of a poll current after voting closes: it
// starts from one baseline snapshot and overlays reveals discovered since, without ever
// re-scanning the ledger.
package reconcile

import (
	"sort"
	"time"

	"github.com/canopy-network/gravityx/pkg/aggregate"
	"github.com/canopy-network/gravityx/pkg/gravity"
)

// View is the baseline snapshot reconciled with the reveals known so far. Each derivation
// returns a fresh View; views are never updated in place.
type View struct {
	PollID              uint64                 `json:"pollId"`
	LiveStatus          gravity.Status         `json:"liveStatus"`
	TotalVoteCount      uint64                 `json:"totalVoteCount"`
	RevealedVoteCount   uint64                 `json:"revealedVoteCount"`
	RemainingVotesCount uint64                 `json:"remainingVotesCount"`
	TopVotes            []gravity.TopVote      `json:"topVotes"`
	TopUsers            []gravity.TopUser      `json:"topUsers"`
	ChartData           []gravity.ChartBucket  `json:"chartData"`
	CandidateTotals     []CandidateTotal       `json:"candidateTotals,omitempty"`
	Reveals             []gravity.RevealedVote `json:"reveals"`
}

// CandidateTotal is the summed amount of the votes revealed to one candidate.
type CandidateTotal struct {
	CandidateID uint32 `json:"candidateId"`
	Amount      uint64 `json:"amount"`
}

// Derive reconciles baseline with the accumulated reveal map at now.
//
// The revealed count is recomputed from scratch every time: the baseline count plus the
// map entries the baseline did not already show as revealed, capped at the total. Applying
// the same reveals twice therefore yields the same View.
func Derive(baseline gravity.Snapshot, reveals map[string]uint32, now time.Time) View {
	known := revealedInBaseline(baseline)
	fresh := uint64(0)
	for id := range reveals {
		if _, ok := known[id]; !ok {
			fresh++
		}
	}

	revealed := baseline.RevealedVoteCount + fresh
	if revealed > baseline.TotalVoteCount || revealed < baseline.RevealedVoteCount {
		revealed = baseline.TotalVoteCount
	}

	v := View{
		PollID:              baseline.PollID,
		LiveStatus:          gravity.ResolveStatus(baseline.Window(), revealed, baseline.TotalVoteCount, now),
		TotalVoteCount:      baseline.TotalVoteCount,
		RevealedVoteCount:   revealed,
		RemainingVotesCount: baseline.TotalVoteCount - revealed,
		TopVotes:            make([]gravity.TopVote, len(baseline.TopVotes)),
		TopUsers:            make([]gravity.TopUser, len(baseline.TopUsers)),
		ChartData:           append([]gravity.ChartBucket{}, baseline.ChartData...),
		Reveals:             append([]gravity.RevealedVote{}, baseline.Reveals...),
	}

	for i, tv := range baseline.TopVotes {
		tv.Vote = overlay(tv.Vote, reveals)
		v.TopVotes[i] = tv
	}
	for i, u := range baseline.TopUsers {
		votes := make([]gravity.Vote, len(u.Votes))
		for j, vote := range u.Votes {
			votes[j] = overlay(vote, reveals)
		}
		u.Votes = votes
		v.TopUsers[i] = u
	}

	if baseline.IsFinalized {
		v.CandidateTotals = candidateTotals(baseline.Reveals)
	}
	return v
}

// candidateTotals lists per-candidate sums ordered by candidate id.
func candidateTotals(reveals []gravity.RevealedVote) []CandidateTotal {
	sums := aggregate.CandidateTotals(reveals)
	out := make([]CandidateTotal, 0, len(sums))
	for id, amount := range sums {
		out = append(out, CandidateTotal{CandidateID: id, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CandidateID < out[j].CandidateID })
	return out
}

func overlay(v gravity.Vote, reveals map[string]uint32) gravity.Vote {
	if v.IsRevealed() {
		return v
	}
	if c, ok := reveals[v.ID]; ok {
		return v.WithCandidate(c)
	}
	return v
}

func revealedInBaseline(s gravity.Snapshot) map[string]struct{} {
	out := make(map[string]struct{})
	for _, v := range s.TopVotes {
		if v.IsRevealed() {
			out[v.ID] = struct{}{}
		}
	}
	for _, u := range s.TopUsers {
		for _, v := range u.Votes {
			if v.IsRevealed() {
				out[v.ID] = struct{}{}
			}
		}
	}
	for _, r := range s.Reveals {
		out[r.ID] = struct{}{}
	}
	return out
}
