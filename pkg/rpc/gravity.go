package rpc

import (
	"context"
	"fmt"
	"net/url"

	"github.com/canopy-network/gravityx/pkg/gravity"
)

const (
	aggregatedPath = "/poll/%d/aggregated"
	revealsPath    = "/poll/%d/reveals"
)

// Snapshot fetches the aggregated snapshot of a poll.
func (c *HTTPClient) Snapshot(ctx context.Context, pollID uint64) (gravity.Snapshot, error) {
	var out gravity.Snapshot
	if err := c.getJSON(ctx, fmt.Sprintf(aggregatedPath, pollID), &out); err != nil {
		return gravity.Snapshot{}, err
	}
	return out, nil
}

// Reveals fetches the page of reveals following cursor. An empty cursor starts at the
// beginning of the feed.
func (c *HTTPClient) Reveals(ctx context.Context, pollID uint64, cursor string) (gravity.RevealPage, error) {
	path := fmt.Sprintf(revealsPath, pollID)
	if cursor != "" {
		path += "?" + url.Values{"cursor": {cursor}}.Encode()
	}

	var out gravity.RevealPage
	if err := c.getJSON(ctx, path, &out); err != nil {
		return gravity.RevealPage{}, err
	}
	return out, nil
}
