package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) advance(d time.Duration) { f.now = f.now.Add(d) }

func TestNewPerMinuteRejectsNonPositiveRPM(t *testing.T) {
	_, err := NewPerMinute(0, nil)
	assert.Error(t, err)

	_, err = NewPerMinute(-5, nil)
	assert.Error(t, err)
}

func TestTryAcquireSpacesTokens(t *testing.T) {
	clk := &fakeClock{now: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)}
	lim, err := NewPerMinute(60, clk) // one token per second
	require.NoError(t, err)

	assert.True(t, lim.TryAcquire())
	assert.False(t, lim.TryAcquire(), "second grant in the same instant must be refused")

	clk.advance(500 * time.Millisecond)
	assert.False(t, lim.TryAcquire())

	clk.advance(500 * time.Millisecond)
	assert.True(t, lim.TryAcquire())
}

func TestRollingWindowNeverExceedsRPM(t *testing.T) {
	const rpm = 7
	clk := &fakeClock{now: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)}
	lim, err := NewPerMinute(rpm, clk)
	require.NoError(t, err)

	// Hammer the limiter every 100ms over five simulated minutes and count
	// grants in each rolling 60s window.
	var grants []time.Time
	for i := 0; i < 5*60*10; i++ {
		if lim.TryAcquire() {
			grants = append(grants, clk.now)
		}
		clk.advance(100 * time.Millisecond)
	}

	require.NotEmpty(t, grants)
	for i := range grants {
		count := 1
		for j := i + 1; j < len(grants); j++ {
			if grants[j].Sub(grants[i]) < time.Minute {
				count++
			}
		}
		assert.LessOrEqual(t, count, rpm,
			"window starting at %v saw %d grants", grants[i], count)
	}
}

func TestAcquireReturnsOnContextCancel(t *testing.T) {
	clk := &fakeClock{now: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)}
	lim, err := NewPerMinute(1, clk)
	require.NoError(t, err)

	// Drain the only token; with a frozen clock no new one ever appears.
	require.True(t, lim.TryAcquire())

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	err = lim.Acquire(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAcquireSucceedsWhenTokenAvailable(t *testing.T) {
	clk := &fakeClock{now: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)}
	lim, err := NewPerMinute(10, clk)
	require.NoError(t, err)

	assert.NoError(t, lim.Acquire(context.Background()))
}
