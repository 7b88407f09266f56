package calibration

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBucketIndexCoversFullRange(t *testing.T) {
	require.Equal(t, 0, bucketIndex(0))
	require.Equal(t, bucketCount-1, bucketIndex(1))
	require.Equal(t, 20, bucketIndex(0.51)) // floor(0.51/0.025)=20
}

func TestRecordResolutionAccumulatesBuckets(t *testing.T) {
	store := NewStore()
	store.RecordResolution(0.60, true, nil)
	store.RecordResolution(0.60, false, nil)
	store.RecordResolution(0.61, true, nil)

	rate, count := store.RawBucketRate(0.605)
	require.Equal(t, 3, count)
	require.InDelta(t, 2.0/3.0, rate, 1e-9)
}

func TestIsotonicNullUntilThreeEligibleBuckets(t *testing.T) {
	store := NewStore()
	// Fill two buckets with ≥5 samples each; isotonic should stay nil
	// even at resolution 25 (retrain trigger) since only 2 buckets qualify.
	for i := 0; i < 5; i++ {
		store.RecordResolution(0.10, true, nil)
	}
	for i := 0; i < 20; i++ {
		store.RecordResolution(0.90, true, nil)
	}
	_, _, ok := store.IsotonicLookup(0.5)
	require.False(t, ok)
}

func TestIsotonicTrainedMapIsMonotonicNonDecreasing(t *testing.T) {
	store := NewStore()
	// Three buckets, low/mid/high price, with a monotonicity violation
	// between the low and mid bucket that PAVA must merge away.
	fill := func(price float64, n, resolvedYes int) {
		for i := 0; i < n; i++ {
			store.RecordResolution(price, i < resolvedYes, nil)
		}
	}
	fill(0.10, 10, 6) // rate 0.6 — violates monotonicity vs a low price
	fill(0.50, 10, 5) // rate 0.5
	fill(0.90, 10, 9) // rate 0.9

	store.retrainIsotonicLocked()

	require.NotEmpty(t, store.isotonic)
	for i := 0; i < len(store.isotonic)-1; i++ {
		require.LessOrEqual(t, store.isotonic[i].value, store.isotonic[i+1].value+1e-9)
	}
}

func TestIsotonicLookupInterpolatesBetweenSegments(t *testing.T) {
	store := NewStore()
	fill := func(price float64, n, resolvedYes int) {
		for i := 0; i < n; i++ {
			store.RecordResolution(price, i < resolvedYes, nil)
		}
	}
	fill(0.10, 10, 2)
	fill(0.50, 10, 5)
	fill(0.90, 10, 8)
	store.retrainIsotonicLocked()

	mid, _, ok := store.IsotonicLookup(0.30)
	require.True(t, ok)
	require.Greater(t, mid, 0.2)
	require.Less(t, mid, 0.5)
}

func TestSignalPerformanceAccuracyAndRollingWindowCap(t *testing.T) {
	store := NewStore()
	for i := 0; i < 35; i++ {
		store.RecordResolution(0.5, true, []SignalOutcome{{Name: "orderbook", WasCorrect: i%2 == 0, EdgeContribution: 0.01}})
	}
	perf := store.SignalPerformanceFor("orderbook")
	require.Len(t, perf.RollingWindow, 30)
	require.Equal(t, 35, perf.Total)
}

func TestDecayFlagSetWhenRollingAccuracyDropsBelowThreshold(t *testing.T) {
	store := NewStore()
	// All-time accuracy settles at 0.5, but the most recent 30 outcomes
	// are mostly wrong, so the rolling window should trip the decay flag.
	for i := 0; i < 20; i++ {
		store.RecordResolution(0.5, true, []SignalOutcome{{Name: "s", WasCorrect: true}})
	}
	for i := 0; i < 20; i++ {
		store.RecordResolution(0.5, true, []SignalOutcome{{Name: "s", WasCorrect: false}})
	}
	perf := store.SignalPerformanceFor("s")
	require.True(t, perf.DecayFlag)
	require.Less(t, perf.DecayFactor, 1.0)
}

func TestUnknownSignalDefaultsToNeutralPerformance(t *testing.T) {
	store := NewStore()
	perf := store.SignalPerformanceFor("never-seen")
	require.Equal(t, 0, perf.Total)
	require.Equal(t, 1.0, perf.DecayFactor)
}
