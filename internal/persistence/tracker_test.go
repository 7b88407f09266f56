package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestObserveFirstSightingTaggedNew(t *testing.T) {
	tracker := NewTracker()
	key := Key{MarketID: "m1", Strategy: "ICT", Side: "YES"}
	boost := tracker.Observe(key, 50, time.Now())
	require.Equal(t, "new", boost.Tag)
	require.Equal(t, 1, boost.Count)
	require.Equal(t, 50, boost.Score)
}

func TestObserveBoostTiersAreNonDecreasing(t *testing.T) {
	tracker := NewTracker()
	key := Key{MarketID: "m1", Strategy: "ICT", Side: "YES"}
	now := time.Now()

	var boosts []Boost
	for i := 0; i < 6; i++ {
		boosts = append(boosts, tracker.Observe(key, 50, now.Add(time.Duration(i)*time.Second)))
	}

	require.Equal(t, "new", boosts[0].Tag)
	require.Equal(t, "+8%", boosts[2].Tag) // count=3
	require.Equal(t, "+15%", boosts[4].Tag) // count=5
	for i := 1; i < len(boosts); i++ {
		require.GreaterOrEqual(t, boosts[i].Score, boosts[i-1].Score)
	}
}

func TestObserveScoreClampedAt100(t *testing.T) {
	tracker := NewTracker()
	key := Key{MarketID: "m1", Strategy: "ICT", Side: "YES"}
	now := time.Now()
	for i := 0; i < 6; i++ {
		tracker.Observe(key, 95, now.Add(time.Duration(i)*time.Second))
	}
	boost := tracker.Observe(key, 95, now.Add(6*time.Second))
	require.LessOrEqual(t, boost.Score, 100)
}

func TestObserveEvictsAfterTTL(t *testing.T) {
	tracker := NewTracker()
	key := Key{MarketID: "m1", Strategy: "ICT", Side: "YES"}
	now := time.Now()
	tracker.Observe(key, 50, now)

	later := now.Add(6 * time.Minute)
	boost := tracker.Observe(key, 50, later)
	require.Equal(t, "new", boost.Tag, "entry should have been evicted after the 5-minute TTL")
	require.Equal(t, 1, boost.Count)
}

func TestRecentScoresCapAtTen(t *testing.T) {
	tracker := NewTracker()
	key := Key{MarketID: "m1", Strategy: "ICT", Side: "YES"}
	now := time.Now()
	for i := 0; i < 15; i++ {
		tracker.Observe(key, 10+i, now.Add(time.Duration(i)*time.Second))
	}
	e := tracker.entries[key]
	require.Len(t, e.recentScores, 10)
}
