package aggregate

import (
	"time"

	"github.com/canopy-network/gravityx/pkg/gravity"
)

// chart accumulates votes into fixed half-hour buckets covering a poll window.
type chart struct {
	first   time.Time
	buckets []gravity.ChartBucket
}

// firstBoundary rounds t up to the next half-hour boundary (t itself when aligned).
func firstBoundary(t time.Time) time.Time {
	b := t.UTC().Truncate(gravity.BucketWidth)
	if b.Before(t) {
		b = b.Add(gravity.BucketWidth)
	}
	return b
}

// newChart lays out empty buckets from the first half-hour boundary at or after StartDate
// while the bucket start is before EndDate.
func newChart(w gravity.PollWindow) *chart {
	c := &chart{first: firstBoundary(w.StartDate)}
	if !c.first.Before(w.EndDate) {
		c.buckets = []gravity.ChartBucket{}
		return c
	}
	n := int((w.EndDate.Sub(c.first) + gravity.BucketWidth - 1) / gravity.BucketWidth)
	c.buckets = make([]gravity.ChartBucket, n)
	for i := range c.buckets {
		c.buckets[i].Timestamp = c.first.Add(time.Duration(i) * gravity.BucketWidth)
	}
	return c
}

// add places v in the bucket its CreatedAt falls into, snapping down to the half hour.
// Votes outside the generated range are not charted; add reports false for them.
func (c *chart) add(v gravity.Vote) bool {
	slot := v.CreatedAt.UTC().Truncate(gravity.BucketWidth)
	if slot.Before(c.first) {
		return false
	}
	i := int(slot.Sub(c.first) / gravity.BucketWidth)
	if i >= len(c.buckets) {
		return false
	}
	c.buckets[i].VoteCount++
	c.buckets[i].TotalAmount = addSat(c.buckets[i].TotalAmount, v.Amount)
	return true
}

// addSat adds two token amounts, saturating instead of wrapping.
func addSat(a, b uint64) uint64 {
	if s := a + b; s >= a {
		return s
	}
	return ^uint64(0)
}
