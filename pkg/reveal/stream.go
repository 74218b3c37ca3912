package reveal

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/canopy-network/gravityx/pkg/gravity"
	gravityredis "github.com/canopy-network/gravityx/pkg/redis"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var streamID = regexp.MustCompile(`^\d+-\d+$`)

// StreamReader is the part of the Redis client the stream source needs.
type StreamReader interface {
	XRange(ctx context.Context, stream, start, end string, count int64) ([]redis.XMessage, error)
	XRevRange(ctx context.Context, stream, end, start string, count int64) ([]redis.XMessage, error)
}

// StreamSource reads reveals from the per-poll Redis stream the indexer appends to. Each
// entry carries vote_id and candidate_id; the cursor is the stream entry id.
type StreamSource struct {
	redis  StreamReader
	logger *zap.Logger
}

func NewStreamSource(r StreamReader, logger *zap.Logger) *StreamSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamSource{redis: r, logger: logger}
}

// FetchRevealPage implements Source.
func (s *StreamSource) FetchRevealPage(ctx context.Context, pollID uint64, cursor string, limit int) (gravity.RevealPage, error) {
	start := "-"
	if cursor != "" {
		if !streamID.MatchString(cursor) {
			return gravity.RevealPage{}, fmt.Errorf("cursor %q: %w", cursor, gravity.ErrInvalidInput)
		}
		start = "(" + cursor
	}
	limit = ClampLimit(limit)

	stream := gravityredis.RevealStream(pollID)
	msgs, err := s.redis.XRange(ctx, stream, start, "+", int64(limit))
	if err != nil {
		return gravity.RevealPage{}, fmt.Errorf("read %s: %w", stream, err)
	}

	page := gravity.RevealPage{Votes: make([]gravity.RevealEntry, 0, len(msgs))}
	for _, m := range msgs {
		entry, ok := parseEntry(m)
		if !ok {
			s.logger.Warn("Skipping malformed reveal entry",
				zap.String("stream", stream),
				zap.String("id", m.ID),
				zap.Any("values", m.Values))
			continue
		}
		page.Votes = append(page.Votes, entry)
	}
	if len(msgs) == limit {
		page.NextCursor = msgs[len(msgs)-1].ID
	}
	return page, nil
}

// Head implements Source.
func (s *StreamSource) Head(ctx context.Context, pollID uint64) (string, error) {
	msgs, err := s.redis.XRevRange(ctx, gravityredis.RevealStream(pollID), "+", "-", 1)
	if err != nil {
		return "", err
	}
	if len(msgs) == 0 {
		return "", nil
	}
	return msgs[0].ID, nil
}

func parseEntry(m redis.XMessage) (gravity.RevealEntry, bool) {
	id, _ := m.Values["vote_id"].(string)
	raw, _ := m.Values["candidate_id"].(string)
	if id == "" {
		return gravity.RevealEntry{}, false
	}
	c, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return gravity.RevealEntry{}, false
	}
	return gravity.RevealEntry{ID: id, CandidateID: uint32(c)}, true
}
