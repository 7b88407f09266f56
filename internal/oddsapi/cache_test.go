package oddsapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCacheGetMissingEventNotFresh(t *testing.T) {
	c := NewCache(nil, t.TempDir())
	_, fresh := c.Get("nope", time.Now())
	require.False(t, fresh)
}

func TestCachePersistThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	c := NewCache(nil, dir)
	now := time.Now()

	entries := map[string]cacheEntry{
		"evt-1": {sport: Sport{ID: "evt-1", SportKey: "basketball_nba"}, fetchedAt: now},
	}
	c.ptr.Store(&entries)
	require.NoError(t, c.Persist(now))

	loaded := NewCache(nil, dir)
	require.NoError(t, loaded.Load())

	sport, fresh := loaded.Get("evt-1", now)
	require.True(t, fresh)
	require.Equal(t, "basketball_nba", sport.SportKey)
}

func TestCacheGetStaleAfterTTL(t *testing.T) {
	c := NewCache(nil, t.TempDir())
	old := time.Now().Add(-10 * time.Minute)
	entries := map[string]cacheEntry{
		"evt-1": {sport: Sport{ID: "evt-1"}, fetchedAt: old},
	}
	c.ptr.Store(&entries)

	_, fresh := c.Get("evt-1", time.Now())
	require.False(t, fresh)
}
