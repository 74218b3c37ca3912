package gravity

import (
	"time"
)

const (
	// TopVotesLimit bounds Snapshot.TopVotes.
	TopVotesLimit = 50
	// TopUsersLimit bounds Snapshot.TopUsers.
	TopUsersLimit = 25
	// BucketWidth is the width of a chart bucket.
	BucketWidth = 30 * time.Minute
)

// ChartBucket aggregates the votes cast in [Timestamp, Timestamp+BucketWidth).
type ChartBucket struct {
	Timestamp   time.Time `json:"timestamp"`
	VoteCount   uint64    `json:"voteCount"`
	TotalAmount uint64    `json:"totalAmount"`
}

// TopUser is a voter ranked by the summed amount of their votes.
type TopUser struct {
	Address  string `json:"address"`
	Username string `json:"username,omitempty"`
	Total    uint64 `json:"total"`
	Votes    []Vote `json:"votes"`
}

// RevealedVote is one row of a fully revealed poll's result list.
type RevealedVote struct {
	ID          string `json:"id"`
	CandidateID uint32 `json:"candidateId"`
	Amount      uint64 `json:"amount"`
}

// Snapshot is the aggregate of a poll's full vote ledger at GeneratedAt.
//
// RevealCursor is the reveal feed position read before the ledger was scanned. Reveals
// after it may or may not be reflected in the snapshot; reveals before it always are.
type Snapshot struct {
	PollID            uint64         `json:"pollId"`
	StartDate         time.Time      `json:"startDate"`
	EndDate           time.Time      `json:"endDate"`
	ChartData         []ChartBucket  `json:"chartData"`
	TopVotes          []TopVote      `json:"topVotes"`
	TopUsers          []TopUser      `json:"topUsers"`
	TotalVoteCount    uint64         `json:"totalVoteCount"`
	TotalAmount       uint64         `json:"totalAmount"`
	RevealedVoteCount uint64         `json:"revealedVoteCount"`
	IsFinalized       bool           `json:"isFinalized"`
	Reveals           []RevealedVote `json:"reveals"`
	RevealCursor      string         `json:"revealCursor,omitempty"`
	GeneratedAt       time.Time      `json:"generatedAt"`
}

// Window returns the poll window the snapshot was computed over.
func (s Snapshot) Window() PollWindow {
	return PollWindow{PollID: s.PollID, StartDate: s.StartDate, EndDate: s.EndDate}
}

// Status resolves the phase of the poll as seen by this snapshot at now.
func (s Snapshot) Status(now time.Time) Status {
	return ResolveStatus(s.Window(), s.RevealedVoteCount, s.TotalVoteCount, now)
}

// Addresses returns the lower-cased voter addresses appearing in the top lists, in first
// seen order. Only these are worth resolving to usernames.
func (s Snapshot) Addresses() []string {
	seen := make(map[string]struct{}, len(s.TopVotes)+len(s.TopUsers))
	out := make([]string, 0, len(s.TopVotes)+len(s.TopUsers))
	add := func(addr string) {
		if _, ok := seen[addr]; ok {
			return
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	for _, v := range s.TopVotes {
		add(v.VoterKey())
	}
	for _, u := range s.TopUsers {
		add(u.Address)
	}
	return out
}

// ApplyUsernames annotates the top lists from a lower-cased address -> username map.
func (s *Snapshot) ApplyUsernames(names map[string]string) {
	if len(names) == 0 {
		return
	}
	for i := range s.TopVotes {
		s.TopVotes[i].Username = names[s.TopVotes[i].VoterKey()]
	}
	for i := range s.TopUsers {
		s.TopUsers[i].Username = names[s.TopUsers[i].Address]
	}
}

// RevealEntry is a single newly revealed vote.
type RevealEntry struct {
	ID          string `json:"id"`
	CandidateID uint32 `json:"candidateId"`
}

// RevealPage is a cursor-paginated batch of reveals. An empty NextCursor means no further
// page is available right now, not that the feed is exhausted.
type RevealPage struct {
	Votes      []RevealEntry `json:"votes"`
	NextCursor string        `json:"nextCursor,omitempty"`
}
