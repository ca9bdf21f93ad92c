package dedupe_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/credibility-engine/backend/internal/dedupe"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestCacheSeenDuplicate(t *testing.T) {
	cache := dedupe.NewCache(10, time.Minute)
	require.False(t, cache.IsSeen("article-a"))
	cache.MarkSeen("article-a")
	require.True(t, cache.IsSeen("article-a"))
	require.Equal(t, 1, cache.Len())
}

func TestCacheTTLExpiry(t *testing.T) {
	clk := &clock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	cache := dedupe.NewCache(10, time.Hour)
	cache.SetClock(clk.now)

	cache.MarkSeen("article-b")
	clk.advance(59 * time.Minute)
	require.True(t, cache.IsSeen("article-b"))

	clk.advance(2 * time.Minute)
	require.False(t, cache.IsSeen("article-b"))
	require.Zero(t, cache.Len())
}

func TestCacheCapacityEvictsOldest(t *testing.T) {
	cache := dedupe.NewCache(1, time.Minute)
	cache.MarkSeen("first")
	cache.MarkSeen("second")

	require.False(t, cache.IsSeen("first"))
	require.True(t, cache.IsSeen("second"))
}

func TestCacheRemarkKeepsNewestEntry(t *testing.T) {
	clk := &clock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	cache := dedupe.NewCache(10, time.Hour)
	cache.SetClock(clk.now)

	cache.MarkSeen("article-c")
	clk.advance(50 * time.Minute)
	cache.MarkSeen("article-c")
	clk.advance(20 * time.Minute)

	require.True(t, cache.IsSeen("article-c"))
}
