package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyang/promptkit/internal/adapter/memory"
)

func TestCache_SetGet(t *testing.T) {
	c := memory.NewCache()
	ctx := context.Background()

	_, err := c.Get(ctx, "k")
	require.ErrorIs(t, err, memory.ErrNotFound)

	v := []byte("value")
	require.NoError(t, c.Set(ctx, "k", v, time.Minute))
	v[0] = 'X'

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "value", string(got))

	got[0] = 'Y'
	again, _ := c.Get(ctx, "k")
	assert.Equal(t, "value", string(again))
}

func TestCache_Expiry(t *testing.T) {
	c := memory.NewCache()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.SetClock(func() time.Time { return now })

	require.NoError(t, c.Set(ctx, "short", []byte("a"), time.Second))
	require.NoError(t, c.Set(ctx, "long", []byte("b"), time.Hour))

	now = now.Add(2 * time.Second)
	_, err := c.Get(ctx, "short")
	require.ErrorIs(t, err, memory.ErrNotFound)
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Set(ctx, "short", []byte("a"), time.Second))
	now = now.Add(2 * time.Second)
	assert.Equal(t, 1, c.DeleteExpired())
	assert.Equal(t, 1, c.Len())
}

func TestCache_ExpiredReadKeepsConcurrentRefresh(t *testing.T) {
	c := memory.NewCache()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.SetClock(func() time.Time { return now })
	require.NoError(t, c.Set(ctx, "k", []byte("stale"), time.Second))

	// The first clock read comes from Get's expiry check, after the read
	// lock is released. Refreshing the key there stands in for a Set from
	// another goroutine.
	later := now.Add(time.Minute)
	refreshed := false
	c.SetClock(func() time.Time {
		if !refreshed {
			refreshed = true
			require.NoError(t, c.Set(ctx, "k", []byte("fresh"), time.Hour))
		}
		return later
	})

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(got))
	assert.Equal(t, 1, c.Len())
}

func TestCache_Invalidate(t *testing.T) {
	c := memory.NewCache()
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, c.Invalidate(ctx, "k"))

	_, err := c.Get(ctx, "k")
	require.ErrorIs(t, err, memory.ErrNotFound)
}

func TestCache_JanitorStopsOnCancel(t *testing.T) {
	c := memory.NewCache()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Janitor(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
