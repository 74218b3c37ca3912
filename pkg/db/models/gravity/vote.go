package gravity

import (
	"time"

	"github.com/canopy-network/gravityx/pkg/gravity"
)

const VotesTableName = "votes"

// VoteColumns defines the schema for the votes table.
// A vote is written once when committed and again with candidate_id and revealed_block set
// when revealed. ReplacingMergeTree keeps the row with the highest revealed_block, so reads
// must use FINAL.
var VoteColumns = []ColumnDef{
	{Name: "poll_id", Type: "UInt64", PgType: "BIGINT NOT NULL"},
	{Name: "vote_id", Type: "String", Codec: "ZSTD(1)", PgType: "TEXT NOT NULL"},
	{Name: "voter", Type: "String", Codec: "ZSTD(1)", PgType: "TEXT NOT NULL"},
	{Name: "amount", Type: "UInt64", Codec: "Delta, ZSTD(3)", PgType: "BIGINT NOT NULL DEFAULT 0"},
	{Name: "block_number", Type: "UInt64", Codec: "Delta, ZSTD(3)", PgType: "BIGINT NOT NULL"},
	{Name: "created_at", Type: "DateTime64(6)", Codec: "DoubleDelta, LZ4", PgType: "TIMESTAMP WITH TIME ZONE NOT NULL"},
	{Name: "candidate_id", Type: "Nullable(UInt32)", PgType: "BIGINT"},
	{Name: "revealed_block", Type: "UInt64", Codec: "Delta, ZSTD(3)", PgType: "BIGINT NOT NULL DEFAULT 0"},
}

// Vote is one row of the votes table.
//
// Query patterns:
//   - Full ledger:  SELECT ... FROM votes FINAL WHERE poll_id = ?
//   - Reveal feed:  SELECT ... FROM votes FINAL WHERE poll_id = ? AND revealed_block > 0
//     AND (revealed_block, vote_id) > (?, ?) ORDER BY revealed_block, vote_id
type Vote struct {
	PollID        uint64    `ch:"poll_id" json:"poll_id"`
	VoteID        string    `ch:"vote_id" json:"vote_id"`
	Voter         string    `ch:"voter" json:"voter"`
	Amount        uint64    `ch:"amount" json:"amount"`
	BlockNumber   uint64    `ch:"block_number" json:"block_number"`
	CreatedAt     time.Time `ch:"created_at" json:"created_at"`
	CandidateID   *uint32   `ch:"candidate_id" json:"candidate_id"`
	RevealedBlock uint64    `ch:"revealed_block" json:"revealed_block"`
}

// ToDomain converts the row to a gravity.Vote. A NULL candidate is a committed vote.
func (v Vote) ToDomain() gravity.Vote {
	out := gravity.Vote{
		ID:          v.VoteID,
		Voter:       v.Voter,
		CreatedAt:   v.CreatedAt.UTC(),
		Amount:      v.Amount,
		BlockNumber: v.BlockNumber,
		PollID:      v.PollID,
		Choice:      gravity.Committed{},
	}
	if v.CandidateID != nil {
		out.Choice = gravity.Revealed{CandidateID: *v.CandidateID}
	}
	return out
}

// RevealRow is the projection read by the reveal feed.
type RevealRow struct {
	VoteID        string `ch:"vote_id"`
	CandidateID   uint32 `ch:"candidate_id"`
	RevealedBlock uint64 `ch:"revealed_block"`
}
