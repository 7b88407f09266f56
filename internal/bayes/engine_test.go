package bayes

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GoPolymarket/polymarket-trader/internal/calibration"
)

func TestLogitLogisticRoundTrip(t *testing.T) {
	for _, p := range []float64{0.01, 0.1, 0.25, 0.5, 0.77, 0.9, 0.99} {
		require.InDelta(t, p, Logistic(Logit(p)), 1e-9)
	}
	for _, x := range []float64{-4, -1, 0, 1, 4} {
		require.InDelta(t, x, Logit(Logistic(x)), 1e-9)
	}
}

// Scenario 4 from spec §8: marketProb=0.55, orderbook LLR +0.12 (w=0.30),
// calibration LLR +0.08 (w=0.35), damper 0.90 → posterior ≈ 0.5642,
// edge ≈ +0.0142, MEDIUM.
func TestCombineMatchesPublishedScenario(t *testing.T) {
	signals := []Signal{
		{Name: "orderbook_imbalance", RawLLR: 0.12, Weight: 0.30},
		{Name: "historical_calibration", RawLLR: 0.08, Weight: 0.35},
	}
	posterior := Combine(0.55, signals, 0.90, 0)

	require.InDelta(t, 0.5642, posterior.PosteriorProb, 1e-3)
	require.InDelta(t, 0.0142, posterior.Edge, 1e-3)
	require.Equal(t, 2, posterior.ActiveSignalCount)
	require.True(t, posterior.SignalsAgree)
	require.Equal(t, Medium, posterior.ConfidenceTier)
}

func TestCombineOmitsZeroLLRSignals(t *testing.T) {
	signals := []Signal{
		{Name: "a", RawLLR: 0, Weight: 0.5},
		{Name: "b", RawLLR: 0.1, Weight: 0.2},
	}
	posterior := Combine(0.5, signals, 1.0, 0)
	require.Equal(t, 1, posterior.ActiveSignalCount)
}

func TestCredibleIntervalBoundedAndContainsPosterior(t *testing.T) {
	posterior := Combine(0.7, []Signal{{Name: "a", RawLLR: 0.2, Weight: 0.3}}, 0.9, 500)
	require.GreaterOrEqual(t, posterior.CredibleLower, 0.01)
	require.LessOrEqual(t, posterior.CredibleUpper, 0.99)
	require.LessOrEqual(t, posterior.CredibleLower, posterior.PosteriorProb)
	require.GreaterOrEqual(t, posterior.CredibleUpper, posterior.PosteriorProb)
}

func TestAdaptiveWeightUsesDefaultBelowSampleThreshold(t *testing.T) {
	perf := calibration.SignalPerformance{Total: 5, Correct: 5, DecayFactor: 1}
	require.Equal(t, 0.3, AdaptiveWeight(0.3, perf))
}

func TestAdaptiveWeightAppliesAccuracyAndHotStreak(t *testing.T) {
	perf := calibration.SignalPerformance{
		Total: 30, Correct: 27, DecayFactor: 1,
		RollingWindow: boolSlice(10, true),
	}
	w := AdaptiveWeight(0.3, perf)
	require.Greater(t, w, 0.3)
}

func TestAdaptiveWeightAppliesDecayPenalty(t *testing.T) {
	perf := calibration.SignalPerformance{Total: 30, Correct: 15, DecayFlag: true, DecayFactor: 0.5}
	w := AdaptiveWeight(0.3, perf)
	require.Less(t, w, 0.3*1.0) // decay penalty applied after accuracy multiplier
}

func TestEfficiencyDamperClampedRange(t *testing.T) {
	d := EfficiencyDamper(1_000_000, 500_000, "sports")
	require.GreaterOrEqual(t, d, 0.78)
	require.LessOrEqual(t, d, 1.0)
}

func TestBookmakerConsensusRequiresTwoBookmakers(t *testing.T) {
	llr, weight, _ := BookmakerConsensus(0.6, 0.55, 1)
	require.Zero(t, llr)
	require.Zero(t, weight)
}

func TestNewsSentimentThresholds(t *testing.T) {
	llr, _ := NewsSentiment(0.3, 5, 0.8, 0.4)
	require.Zero(t, llr, "sentiment magnitude below 0.5 threshold")

	llr, _ = NewsSentiment(0.6, 0, 0.8, 0.4)
	require.Zero(t, llr, "no headlines")

	llr, _ = NewsSentiment(0.6, 5, 0.8, 0.4)
	require.Equal(t, 0.4, llr)
}

func TestMultiTimeframeStabilityRequiresHistory(t *testing.T) {
	_, data := MultiTimeframeStability(nil)
	require.Equal(t, true, data["insufficientHistory"])
}

func boolSlice(n int, v bool) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = v
	}
	return out
}
