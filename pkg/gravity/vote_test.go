package gravity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVote_Candidate(t *testing.T) {
	committed := Vote{ID: "a", Choice: Committed{}}
	_, ok := committed.Candidate()
	assert.False(t, ok)

	var unset Vote
	assert.False(t, unset.IsRevealed())

	revealed := committed.WithCandidate(7)
	id, ok := revealed.Candidate()
	assert.True(t, ok)
	assert.Equal(t, uint32(7), id)
	assert.False(t, committed.IsRevealed(), "WithCandidate must not mutate the receiver")
}

func TestVote_JSONEncodesCommittedAsNull(t *testing.T) {
	v := Vote{
		ID:        "0xabc-1",
		Voter:     "0xAbC",
		CreatedAt: time.Date(2026, 10, 1, 0, 10, 0, 0, time.UTC),
		Amount:    10,
		PollID:    4,
		Choice:    Committed{},
	}

	raw, err := json.Marshal(v)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	assert.Contains(t, generic, "candidateId")
	assert.Nil(t, generic["candidateId"])
	assert.NotContains(t, generic, "username")

	var back Vote
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.False(t, back.IsRevealed())
	assert.Equal(t, v.Amount, back.Amount)
}

func TestTopVote_JSONCarriesUsernameAndCandidate(t *testing.T) {
	tv := TopVote{Vote: Vote{ID: "x", Voter: "0x1", Amount: 3}.WithCandidate(0), Username: "alice"}

	raw, err := json.Marshal(tv)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"x","voter":"0x1","username":"alice","createdAt":"0001-01-01T00:00:00Z","amount":3,"blockNumber":0,"pollId":0,"candidateId":0}`, string(raw))

	var back TopVote
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, "alice", back.Username)
	id, ok := back.Candidate()
	assert.True(t, ok)
	assert.Equal(t, uint32(0), id)
}

func TestSnapshot_AddressesAndUsernames(t *testing.T) {
	s := Snapshot{
		TopVotes: []TopVote{
			{Vote: Vote{ID: "1", Voter: "0xAA"}},
			{Vote: Vote{ID: "2", Voter: "0xbb"}},
			{Vote: Vote{ID: "3", Voter: "0xaa"}},
		},
		TopUsers: []TopUser{{Address: "0xaa"}, {Address: "0xcc"}},
	}

	assert.Equal(t, []string{"0xaa", "0xbb", "0xcc"}, s.Addresses())

	s.ApplyUsernames(map[string]string{"0xaa": "alice", "0xcc": "carol"})
	assert.Equal(t, "alice", s.TopVotes[0].Username)
	assert.Equal(t, "", s.TopVotes[1].Username)
	assert.Equal(t, "alice", s.TopVotes[2].Username)
	assert.Equal(t, "carol", s.TopUsers[1].Username)
}
