package redis

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	return mr, &Client{Client: goredis.NewClient(&goredis.Options{Addr: mr.Addr()})}
}

func TestAcquireLock_Exclusive(t *testing.T) {
	_, c := newTestClient(t)

	ok, err := c.AcquireLock(t.Context(), "lock", "owner-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.AcquireLock(t.Context(), "lock", "owner-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReleaseLock_OnlyOwnerClears(t *testing.T) {
	mr, c := newTestClient(t)

	ok, err := c.AcquireLock(t.Context(), "lock", "owner-a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, c.ReleaseLock(t.Context(), "lock", "owner-b"))
	got, err := mr.Get("lock")
	require.NoError(t, err)
	assert.Equal(t, "owner-a", got, "a non-owner release must leave the lock")

	require.NoError(t, c.ReleaseLock(t.Context(), "lock", "owner-a"))
	assert.False(t, mr.Exists("lock"))
}

func TestReleaseLock_AfterExpiryAndTakeover(t *testing.T) {
	mr, c := newTestClient(t)

	ok, err := c.AcquireLock(t.Context(), "lock", "owner-a", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	// TTL passes, another process grabs the lock.
	mr.FastForward(2 * time.Second)
	ok, err = c.AcquireLock(t.Context(), "lock", "owner-b", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// The stale holder's release must not clear the new owner's lock.
	require.NoError(t, c.ReleaseLock(t.Context(), "lock", "owner-a"))
	got, err := mr.Get("lock")
	require.NoError(t, err)
	assert.Equal(t, "owner-b", got)
}
