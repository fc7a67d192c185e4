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
		{"burst allows initial requests", 1, 3, 3, 3},
		{"exceeding burst blocks", 1, 2, 5, 2},
		{"single token", 1, 1, 4, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := New(tt.rps, tt.burst)
			defer rl.Stop()

			passed := 0
			for range tt.calls {
				if rl.Allow("client") {
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

	assert.True(t, rl.Allow("movies"))
	assert.False(t, rl.Allow("movies"))
	assert.True(t, rl.Allow("auth"))
	assert.Equal(t, 2, rl.Len())
}

func TestKeyedRateLimiter_WaitRespectsContext(t *testing.T) {
	rl := New(0.1, 1)
	defer rl.Stop()

	require.NoError(t, rl.Wait(context.Background(), "movies"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, rl.Wait(ctx, "movies"))
}

func TestKeyedRateLimiter_SweepDropsIdleKeys(t *testing.T) {
	rl := NewWithTTL(1, 1, time.Minute)
	defer rl.Stop()

	base := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return base }
	rl.Allow("old")
	rl.now = func() time.Time { return base.Add(50 * time.Second) }
	rl.Allow("fresh")

	removed := rl.Sweep(base.Add(90 * time.Second))

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, rl.Len())
}

func TestKeyedRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := New(1, 1)
	rl.Stop()
	rl.Stop()
}
