package ratelimit

import (
	"fmt"
	"testing"
	"time"

	"github.com/smallbiznis/ordena/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowThirtyDeniesThirtyFirst(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	limiter := New(clk)

	for i := 0; i < 30; i++ {
		require.True(t, limiter.Allow("549111"), "event %d should be admitted", i+1)
	}
	assert.False(t, limiter.Allow("549111"), "31st event should be denied")
}

func TestWindowResets(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	limiter := New(clk)

	for i := 0; i < 31; i++ {
		limiter.Allow("549111")
	}
	require.False(t, limiter.Allow("549111"))

	clk.Advance(61 * time.Second)
	assert.True(t, limiter.Allow("549111"))
}

func TestSendersAreIndependent(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	limiter := New(clk)

	for i := 0; i < 31; i++ {
		limiter.Allow("sender-a")
	}
	require.False(t, limiter.Allow("sender-a"))
	assert.True(t, limiter.Allow("sender-b"))
}

func TestIdleCountersAreSwept(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	limiter := New(clk)

	for i := 0; i < 40; i++ {
		limiter.Allow(fmt.Sprintf("sender-%d", i))
	}
	require.Equal(t, 40, limiter.Tracked())

	clk.Advance(3 * time.Minute)
	// A fresh event triggers the sweep on each touched shard.
	for i := 0; i < 40; i++ {
		limiter.Allow(fmt.Sprintf("sender-%d", i))
	}
	assert.Equal(t, 40, limiter.Tracked(), "stale counters replaced, not accumulated")

	clk.Advance(3 * time.Minute)
	limiter.Allow("sender-0")
	assert.LessOrEqual(t, limiter.Tracked(), 40)
}
