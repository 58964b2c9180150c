package data

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	s := miniredis.RunT(t)
	return s, redis.NewClient(&redis.Options{Addr: s.Addr()})
}

func TestCountInWindowIncrements(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		n, err := CountInWindow(ctx, rdb, "alice", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	// Keys are independent.
	n, err := CountInWindow(ctx, rdb, "bob", time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestCountInWindowTTLNotRefreshed(t *testing.T) {
	s, rdb := newTestRedis(t)
	ctx := context.Background()

	_, err := CountInWindow(ctx, rdb, "alice", time.Minute)
	require.NoError(t, err)

	// Later increments must not push the expiry out, or a steady
	// sub-rate caller would accumulate counts forever.
	s.FastForward(40 * time.Second)
	_, err = CountInWindow(ctx, rdb, "alice", time.Minute)
	require.NoError(t, err)
	assert.LessOrEqual(t, s.TTL(rateLimitPrefix+"alice"), 20*time.Second)

	// Once the original window closes the count starts over.
	s.FastForward(21 * time.Second)
	n, err := CountInWindow(ctx, rdb, "alice", time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestPublishElectionEvent(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, PublishElectionEvent(ctx, rdb, map[string]interface{}{
		"action":   "created",
		"election": "7",
	}))

	assert.EqualValues(t, 1, rdb.XLen(ctx, streamEvents).Val())
}
