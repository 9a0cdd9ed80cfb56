package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests advance time without sleeping
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 9, 7, 13, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(ttl time.Duration) (*Cache[string], *fakeClock) {
	clock := newFakeClock()
	c := New[string](ttl)
	c.now = clock.Now
	return c, clock
}

func TestCache_SetGet(t *testing.T) {
	c, _ := newTestCache(5 * time.Minute)

	c.Set("league:123:2024", "scoreboard")

	v, ok := c.Get("league:123:2024")
	require.True(t, ok)
	assert.Equal(t, "scoreboard", v)
}

func TestCache_GetMissing(t *testing.T) {
	c, _ := newTestCache(5 * time.Minute)

	v, ok := c.Get("nope")
	assert.False(t, ok)
	assert.Equal(t, "", v)
}

func TestCache_SetOverwrites(t *testing.T) {
	c, clock := newTestCache(5 * time.Minute)

	c.Set("k", "old")
	clock.Advance(4 * time.Minute)
	c.Set("k", "new")

	// The rewrite restarted the clock for this key
	clock.Advance(2 * time.Minute)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "new", v)
}

func TestCache_ExpiryEvictsOnRead(t *testing.T) {
	c, clock := newTestCache(5 * time.Minute)

	c.Set("k", "v")
	require.Equal(t, 1, c.Stats().Active)

	clock.Advance(5 * time.Minute)

	// Entry is past TTL: absent, and the read purges it
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, Stats{}, c.Stats())
}

func TestCache_JustUnderTTLStillFresh(t *testing.T) {
	c, clock := newTestCache(5 * time.Minute)

	c.Set("k", "v")
	clock.Advance(5*time.Minute - time.Second)

	_, ok := c.Get("k")
	assert.True(t, ok)
}

func TestCache_StatsCountsWithoutEvicting(t *testing.T) {
	c, clock := newTestCache(time.Minute)

	c.Set("stale", "v")
	clock.Advance(2 * time.Minute)
	c.Set("fresh", "v")

	s := c.Stats()
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 1, s.Active)
	assert.Equal(t, 1, s.Expired)

	// Stats must not purge; only the read does
	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("stale")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())
}

func TestCache_Clear(t *testing.T) {
	c, _ := newTestCache(time.Minute)

	c.Set("a", "1")
	c.Set("b", "2")
	c.Clear()

	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New[int](time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", j%10)
				c.Set(key, n)
				c.Get(key)
				c.Stats()
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 10)
}
