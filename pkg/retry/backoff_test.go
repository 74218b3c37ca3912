package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func fastConfig(max int) Config {
	return Config{
		MaxRetries:   max,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestWithBackoff_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := WithBackoff(context.Background(), fastConfig(5), zaptest.NewLogger(t), "flaky", func() error {
		calls++
		if calls < 3 {
			return errors.New("boom")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithBackoff_ExhaustsAttempts(t *testing.T) {
	sentinel := errors.New("down")
	calls := 0
	err := WithBackoff(context.Background(), fastConfig(3), zaptest.NewLogger(t), "down", func() error {
		calls++
		return sentinel
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 3, calls)
}

func TestWithBackoff_PermanentStopsImmediately(t *testing.T) {
	sentinel := errors.New("not found")
	calls := 0
	err := WithBackoff(context.Background(), fastConfig(5), zaptest.NewLogger(t), "lookup", func() error {
		calls++
		return Permanent(sentinel)
	})

	assert.Equal(t, sentinel, err)
	assert.Equal(t, 1, calls)
}

func TestWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithBackoff(ctx, fastConfig(5), nil, "cancelled", func() error {
		t.Fatal("fn must not run on a cancelled context")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCalculateBackoff_RespectsMaximum(t *testing.T) {
	cfg := Config{InitialDelay: time.Second, MaxDelay: 4 * time.Second, Multiplier: 2.0}

	assert.Equal(t, time.Second, calculateBackoff(cfg, 1))
	assert.Equal(t, 2*time.Second, calculateBackoff(cfg, 2))
	assert.Equal(t, 4*time.Second, calculateBackoff(cfg, 3))
	assert.Equal(t, 4*time.Second, calculateBackoff(cfg, 10))
}
