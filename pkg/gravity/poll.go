package gravity

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrIncompleteWindow is returned when a poll is missing a start or end date, or the end
// does not come after the start.
var ErrIncompleteWindow = errors.New("poll window incomplete")

// PollWindow is the half-open voting window [StartDate, EndDate) of a poll.
type PollWindow struct {
	PollID    uint64    `json:"pollId"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

// Validate checks that both bounds are set and ordered.
func (w PollWindow) Validate() error {
	if w.StartDate.IsZero() || w.EndDate.IsZero() || !w.EndDate.After(w.StartDate) {
		return ErrIncompleteWindow
	}
	return nil
}

// Contains reports whether t falls inside [StartDate, EndDate).
func (w PollWindow) Contains(t time.Time) bool {
	return !t.Before(w.StartDate) && t.Before(w.EndDate)
}

// Ended reports whether voting is over at now.
func (w PollWindow) Ended(now time.Time) bool {
	return !now.Before(w.EndDate)
}

// Status is the lifecycle phase of a poll.
type Status string

const (
	StatusVoting    Status = "voting"
	StatusLive      Status = "live"
	StatusFinalized Status = "finalized"
)

// ResolveStatus derives the phase of a poll. It is evaluated fresh every time: reveals are
// discovered asynchronously and can complete long after EndDate, so a poll may sit in
// StatusLive for an unbounded time.
func ResolveStatus(w PollWindow, revealed, total uint64, now time.Time) Status {
	if now.Before(w.EndDate) {
		return StatusVoting
	}
	if revealed < total {
		return StatusLive
	}
	return StatusFinalized
}

// ParsePollID parses a base-10 poll id as received on the wire.
func ParsePollID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("poll id %q: %w", raw, ErrInvalidInput)
	}
	return id, nil
}
