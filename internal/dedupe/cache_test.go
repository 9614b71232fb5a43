package dedupe_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/cnyes-news/internal/dedupe"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestCacheSeenDuplicate(t *testing.T) {
	cache := dedupe.NewCache(10, time.Minute)
	require.False(t, cache.IsSeen("5012345"))
	cache.MarkSeen("5012345")
	require.True(t, cache.IsSeen("5012345"))
	require.Equal(t, 1, cache.Len())
}

func TestCacheTTLExpiry(t *testing.T) {
	clock := newClock()
	cache := dedupe.NewCache(10, 20*time.Millisecond, dedupe.WithClock(clock.now))

	cache.MarkSeen("beta")
	require.True(t, cache.IsSeen("beta"))

	clock.advance(25 * time.Millisecond)
	require.False(t, cache.IsSeen("beta"))

	cache.MarkSeen("gamma")
	require.Equal(t, 1, cache.Len())
}

func TestCacheCapacityEvictsOldest(t *testing.T) {
	clock := newClock()
	cache := dedupe.NewCache(1, time.Minute, dedupe.WithClock(clock.now))

	cache.MarkSeen("first")
	clock.advance(time.Second)
	cache.MarkSeen("second")

	require.False(t, cache.IsSeen("first"))
	require.True(t, cache.IsSeen("second"))
}

func TestCacheRemarkKeepsNewest(t *testing.T) {
	clock := newClock()
	cache := dedupe.NewCache(2, time.Minute, dedupe.WithClock(clock.now))

	cache.MarkSeen("a")
	clock.advance(time.Second)
	cache.MarkSeen("b")
	clock.advance(time.Second)
	cache.MarkSeen("a")
	clock.advance(time.Second)
	cache.MarkSeen("c")

	require.True(t, cache.IsSeen("a"))
	require.True(t, cache.IsSeen("c"))
	require.False(t, cache.IsSeen("b"))
}
