package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		rps      float64
		burst    int
		calls    int
		wantPass int
	}{
		{name: "burst allows initial requests", rps: 1, burst: 3, calls: 3, wantPass: 3},
		{name: "exceeding burst blocks", rps: 1, burst: 2, calls: 5, wantPass: 2},
		{name: "zero burst is treated as one", rps: 1, burst: 0, calls: 3, wantPass: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := New(tt.rps, tt.burst)
			defer rl.Stop()

			passed := 0
			for i := 0; i < tt.calls; i++ {
				if rl.Allow("project-1") {
					passed++
				}
			}
			assert.Equal(t, tt.wantPass, passed)
		})
	}
}

func TestKeyedRateLimiter_KeysAreIndependent(t *testing.T) {
	rl := New(1, 1)
	defer rl.Stop()

	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
	assert.Equal(t, 2, rl.Len())
}

func TestEvery_SpacesCalls(t *testing.T) {
	rl := Every(40 * time.Millisecond)
	defer rl.Stop()

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, rl.Wait(ctx, "p"))
	}
	assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond)
}

func TestEvery_ZeroDisablesLimiting(t *testing.T) {
	rl := Every(0)
	defer rl.Stop()

	for i := 0; i < 100; i++ {
		require.True(t, rl.Allow("p"))
	}
}

func TestWait_ContextCanceled(t *testing.T) {
	rl := Every(time.Hour)
	defer rl.Stop()

	require.NoError(t, rl.Wait(context.Background(), "p"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, rl.Wait(ctx, "p"))
}

func TestEvictIdle(t *testing.T) {
	rl := New(1, 1)
	defer rl.Stop()

	rl.Allow("old")
	cutoff := time.Now().Add(time.Millisecond)
	time.Sleep(2 * time.Millisecond)
	rl.Allow("new")

	assert.Equal(t, 1, rl.evictIdle(cutoff))
	assert.Equal(t, 1, rl.Len())
}

func TestStop_Idempotent(t *testing.T) {
	rl := New(1, 1)
	rl.Stop()
	rl.Stop()
}
