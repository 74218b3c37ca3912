// Package reveal serves the reveal feed of a poll as cursor-paginated pages.
package reveal

import (
	"context"

	"github.com/canopy-network/gravityx/pkg/gravity"
)

const (
	DefaultPageLimit = 200
	MaxPageLimit     = 1000
)

// Source pages through the reveals of a poll in discovery order.
//
// An empty cursor starts from the beginning of the feed. NextCursor is only set when the
// page is full; otherwise the caller keeps its cursor and asks again later. Replayed entries
// are expected and harmless since reveals are merged by vote id.
type Source interface {
	FetchRevealPage(ctx context.Context, pollID uint64, cursor string, limit int) (gravity.RevealPage, error)
	// Head returns the cursor of the newest reveal, "" when nothing was revealed yet.
	Head(ctx context.Context, pollID uint64) (string, error)
}

// ClampLimit applies the default and upper bound to a requested page size.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageLimit
	}
	if limit > MaxPageLimit {
		return MaxPageLimit
	}
	return limit
}
