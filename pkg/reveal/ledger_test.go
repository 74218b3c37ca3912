package reveal

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/canopy-network/gravityx/pkg/db/ledger"
	"github.com/canopy-network/gravityx/pkg/gravity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockLedger is a mock implementation of LedgerReader for testing
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) ListRevealsAfter(ctx context.Context, pollID uint64, after ledger.RevealKey, limit int) ([]ledger.Reveal, error) {
	args := m.Called(ctx, pollID, after, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.Reveal), args.Error(1)
}

func (m *MockLedger) RevealHead(ctx context.Context, pollID uint64) (ledger.RevealKey, bool, error) {
	args := m.Called(ctx, pollID)
	return args.Get(0).(ledger.RevealKey), args.Bool(1), args.Error(2)
}

func reveals(block uint64, ids ...string) []ledger.Reveal {
	out := make([]ledger.Reveal, len(ids))
	for i, id := range ids {
		out[i] = ledger.Reveal{Key: ledger.RevealKey{Block: block, VoteID: id}, VoteID: id, CandidateID: uint32(i)}
	}
	return out
}

func TestCursorRoundTrip(t *testing.T) {
	key := ledger.RevealKey{Block: 123456, VoteID: "vote:with:colons"}
	got, err := DecodeCursor(EncodeCursor(key))
	require.NoError(t, err)
	assert.Equal(t, key, got)

	start, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Equal(t, ledger.RevealKey{}, start)
}

func TestDecodeCursor_RejectsGarbage(t *testing.T) {
	for _, c := range []string{"!!!", rawCursor("no-colon"), rawCursor("x:abc"), rawCursor("12:")} {
		_, err := DecodeCursor(c)
		assert.ErrorIs(t, err, gravity.ErrInvalidInput, c)
	}
}

func rawCursor(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func TestLedgerSource_FullPageHasNextCursor(t *testing.T) {
	store := new(MockLedger)
	store.On("ListRevealsAfter", mock.Anything, uint64(7), ledger.RevealKey{}, 2).Return(reveals(10, "a", "b"), nil)

	page, err := NewLedgerSource(store).FetchRevealPage(context.Background(), 7, "", 2)

	require.NoError(t, err)
	assert.Equal(t, []gravity.RevealEntry{{ID: "a", CandidateID: 0}, {ID: "b", CandidateID: 1}}, page.Votes)
	require.NotEmpty(t, page.NextCursor)
	next, err := DecodeCursor(page.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, ledger.RevealKey{Block: 10, VoteID: "b"}, next)
	store.AssertExpectations(t)
}

func TestLedgerSource_PartialPageHasNoCursor(t *testing.T) {
	store := new(MockLedger)
	after := ledger.RevealKey{Block: 10, VoteID: "b"}
	store.On("ListRevealsAfter", mock.Anything, uint64(7), after, DefaultPageLimit).Return(reveals(11, "c"), nil)

	page, err := NewLedgerSource(store).FetchRevealPage(context.Background(), 7, EncodeCursor(after), 0)

	require.NoError(t, err)
	assert.Len(t, page.Votes, 1)
	assert.Empty(t, page.NextCursor)
}

func TestLedgerSource_BadCursorSkipsStore(t *testing.T) {
	store := new(MockLedger)

	_, err := NewLedgerSource(store).FetchRevealPage(context.Background(), 7, "%%%", 10)

	assert.ErrorIs(t, err, gravity.ErrInvalidInput)
	store.AssertNotCalled(t, "ListRevealsAfter")
}

func TestLedgerSource_StoreError(t *testing.T) {
	store := new(MockLedger)
	boom := errors.New("clickhouse down")
	store.On("ListRevealsAfter", mock.Anything, uint64(7), ledger.RevealKey{}, MaxPageLimit).Return(nil, boom)

	_, err := NewLedgerSource(store).FetchRevealPage(context.Background(), 7, "", 5000)

	assert.ErrorIs(t, err, boom)
}

func TestLedgerSource_Head(t *testing.T) {
	store := new(MockLedger)
	store.On("RevealHead", mock.Anything, uint64(1)).Return(ledger.RevealKey{}, false, nil).Once()
	store.On("RevealHead", mock.Anything, uint64(2)).Return(ledger.RevealKey{Block: 5, VoteID: "z"}, true, nil).Once()

	src := NewLedgerSource(store)
	empty, err := src.Head(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, empty)

	head, err := src.Head(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, EncodeCursor(ledger.RevealKey{Block: 5, VoteID: "z"}), head)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultPageLimit, ClampLimit(0))
	assert.Equal(t, DefaultPageLimit, ClampLimit(-3))
	assert.Equal(t, 17, ClampLimit(17))
	assert.Equal(t, MaxPageLimit, ClampLimit(MaxPageLimit+1))
}
