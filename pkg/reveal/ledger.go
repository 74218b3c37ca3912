package reveal

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/canopy-network/gravityx/pkg/db/ledger"
	"github.com/canopy-network/gravityx/pkg/gravity"
)

// LedgerReader is the part of the ledger the reveal feed needs.
type LedgerReader interface {
	ListRevealsAfter(ctx context.Context, pollID uint64, after ledger.RevealKey, limit int) ([]ledger.Reveal, error)
	RevealHead(ctx context.Context, pollID uint64) (ledger.RevealKey, bool, error)
}

// LedgerSource reads reveals straight from the vote ledger, keyset paginated on
// (revealed block, vote id).
type LedgerSource struct {
	store LedgerReader
}

func NewLedgerSource(store LedgerReader) *LedgerSource {
	return &LedgerSource{store: store}
}

// FetchRevealPage implements Source.
func (s *LedgerSource) FetchRevealPage(ctx context.Context, pollID uint64, cursor string, limit int) (gravity.RevealPage, error) {
	after, err := DecodeCursor(cursor)
	if err != nil {
		return gravity.RevealPage{}, err
	}
	limit = ClampLimit(limit)

	rows, err := s.store.ListRevealsAfter(ctx, pollID, after, limit)
	if err != nil {
		return gravity.RevealPage{}, err
	}

	page := gravity.RevealPage{Votes: make([]gravity.RevealEntry, len(rows))}
	for i, r := range rows {
		page.Votes[i] = gravity.RevealEntry{ID: r.VoteID, CandidateID: r.CandidateID}
	}
	if len(rows) == limit {
		page.NextCursor = EncodeCursor(rows[len(rows)-1].Key)
	}
	return page, nil
}

// Head implements Source.
func (s *LedgerSource) Head(ctx context.Context, pollID uint64) (string, error) {
	key, ok, err := s.store.RevealHead(ctx, pollID)
	if err != nil || !ok {
		return "", err
	}
	return EncodeCursor(key), nil
}

// EncodeCursor renders a feed position as an opaque URL-safe token.
func EncodeCursor(k ledger.RevealKey) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatUint(k.Block, 10) + ":" + k.VoteID))
}

// DecodeCursor parses a token produced by EncodeCursor. The empty cursor is the start of
// the feed.
func DecodeCursor(cursor string) (ledger.RevealKey, error) {
	if cursor == "" {
		return ledger.RevealKey{}, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return ledger.RevealKey{}, fmt.Errorf("cursor %q: %w", cursor, gravity.ErrInvalidInput)
	}
	block, id, ok := strings.Cut(string(raw), ":")
	if !ok || id == "" {
		return ledger.RevealKey{}, fmt.Errorf("cursor %q: %w", cursor, gravity.ErrInvalidInput)
	}
	n, err := strconv.ParseUint(block, 10, 64)
	if err != nil {
		return ledger.RevealKey{}, fmt.Errorf("cursor %q: %w", cursor, gravity.ErrInvalidInput)
	}
	return ledger.RevealKey{Block: n, VoteID: id}, nil
}
