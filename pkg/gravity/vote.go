package gravity

import (
	"encoding/json"
	"strings"
	"time"
)

// Choice is the commit-reveal state of a vote's candidate. It is either Committed (the
// candidate is still hidden) or Revealed. A nil Choice is treated as Committed.
type Choice interface {
	isChoice()
}

// Committed is a vote whose weight is known but whose candidate has not been revealed yet.
type Committed struct{}

// Revealed is a vote whose candidate has been disclosed.
type Revealed struct {
	CandidateID uint32
}

func (Committed) isChoice() {}
func (Revealed) isChoice()  {}

// Vote is one ledger entry of a poll. Amount never changes after creation; Choice moves
// from Committed to Revealed exactly once.
type Vote struct {
	ID          string
	Voter       string
	CreatedAt   time.Time
	Amount      uint64
	BlockNumber uint64
	PollID      uint64
	Choice      Choice
}

// Candidate returns the revealed candidate id, or false while the vote is committed.
func (v Vote) Candidate() (uint32, bool) {
	if r, ok := v.Choice.(Revealed); ok {
		return r.CandidateID, true
	}
	return 0, false
}

// IsRevealed reports whether the candidate of v is known.
func (v Vote) IsRevealed() bool {
	_, ok := v.Candidate()
	return ok
}

// WithCandidate returns a copy of v revealed to candidateID.
func (v Vote) WithCandidate(candidateID uint32) Vote {
	v.Choice = Revealed{CandidateID: candidateID}
	return v
}

// VoterKey is the case-insensitive identity of the voter.
func (v Vote) VoterKey() string {
	return strings.ToLower(v.Voter)
}

// voteJSON is the wire shape shared by Vote and TopVote. A committed vote encodes
// candidateId as null.
type voteJSON struct {
	ID          string    `json:"id"`
	Voter       string    `json:"voter"`
	Username    string    `json:"username,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	Amount      uint64    `json:"amount"`
	BlockNumber uint64    `json:"blockNumber"`
	PollID      uint64    `json:"pollId"`
	CandidateID *uint32   `json:"candidateId"`
}

func (v Vote) toJSON(username string) voteJSON {
	out := voteJSON{
		ID:          v.ID,
		Voter:       v.Voter,
		Username:    username,
		CreatedAt:   v.CreatedAt,
		Amount:      v.Amount,
		BlockNumber: v.BlockNumber,
		PollID:      v.PollID,
	}
	if id, ok := v.Candidate(); ok {
		out.CandidateID = &id
	}
	return out
}

func (j voteJSON) toVote() Vote {
	v := Vote{
		ID:          j.ID,
		Voter:       j.Voter,
		CreatedAt:   j.CreatedAt,
		Amount:      j.Amount,
		BlockNumber: j.BlockNumber,
		PollID:      j.PollID,
		Choice:      Committed{},
	}
	if j.CandidateID != nil {
		v.Choice = Revealed{CandidateID: *j.CandidateID}
	}
	return v
}

// MarshalJSON implements json.Marshaler.
func (v Vote) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.toJSON(""))
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Vote) UnmarshalJSON(data []byte) error {
	var j voteJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	*v = j.toVote()
	return nil
}

// TopVote is a vote annotated with the voter's username when the directory knows it.
type TopVote struct {
	Vote
	Username string
}

// MarshalJSON implements json.Marshaler.
func (t TopVote) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Vote.toJSON(t.Username))
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *TopVote) UnmarshalJSON(data []byte) error {
	var j voteJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	t.Vote = j.toVote()
	t.Username = j.Username
	return nil
}
