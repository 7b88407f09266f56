package parlay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMultiplicativeSumsToOne(t *testing.T) {
	probs := Multiplicative([]float64{1.90, 2.10})
	require.InDelta(t, 1.0, probs[0]+probs[1], 1e-9)
}

func TestShinMatchesPublishedZ(t *testing.T) {
	z, ok := ShinZ([]float64{2.10, 3.40, 3.80})
	require.True(t, ok)
	require.InDelta(t, 0.587, z, 0.01)
}

func TestShinFallsBackToMultiplicativeOnInvalidRoot(t *testing.T) {
	// Heavily overlapping odds that push the quadratic root outside (0,1).
	probs := Shin([]float64{1.01, 1.01, 1.01})
	var sum float64
	for _, p := range probs {
		sum += p
	}
	require.InDelta(t, 1.0, sum, 1e-6)
}

func TestFilterEventsDropsPastEvents(t *testing.T) {
	now := time.Now()
	ev := Event{
		ID:         "e1",
		CommenceAt: now.Add(-time.Hour),
		Outcomes: []Outcome{
			{Books: []BookOdds{{Bookmaker: "A", Odds: 1.9}, {Bookmaker: "B", Odds: 2.0}, {Bookmaker: "C", Odds: 2.1}}},
		},
	}
	out := FilterEvents([]Event{ev}, now)
	require.Empty(t, out)
}

func TestFilterEventsDropsFewBookmakers(t *testing.T) {
	now := time.Now()
	ev := Event{
		ID:         "e1",
		CommenceAt: now.Add(time.Hour),
		Outcomes: []Outcome{
			{Books: []BookOdds{{Bookmaker: "A", Odds: 1.9}, {Bookmaker: "B", Odds: 2.0}}},
		},
	}
	out := FilterEvents([]Event{ev}, now)
	require.Empty(t, out)
}

func TestFilterEventsDropsDecisiveOdds(t *testing.T) {
	now := time.Now()
	ev := Event{
		ID:         "e1",
		CommenceAt: now.Add(time.Hour),
		Outcomes: []Outcome{
			{Books: []BookOdds{{Bookmaker: "A", Odds: 1.05}, {Bookmaker: "B", Odds: 2.0}, {Bookmaker: "C", Odds: 2.1}}},
		},
	}
	out := FilterEvents([]Event{ev}, now)
	require.Empty(t, out)
}

func TestFilterEventsKeepsHealthyEvent(t *testing.T) {
	now := time.Now()
	ev := Event{
		ID:         "e1",
		CommenceAt: now.Add(time.Hour),
		Outcomes: []Outcome{
			{Books: []BookOdds{{Bookmaker: "A", Odds: 1.9}, {Bookmaker: "B", Odds: 2.0}, {Bookmaker: "C", Odds: 2.1}}},
		},
	}
	out := FilterEvents([]Event{ev}, now)
	require.Len(t, out, 1)
}

func TestPassesLegFiltersMoneylineBounds(t *testing.T) {
	leg := Leg{BetType: Moneyline, BestOdds: 2.0, TrueProb: 0.5, LegEV: 0.05}
	require.True(t, PassesLegFilters(leg))

	tooLong := Leg{BetType: Moneyline, BestOdds: 5.0, TrueProb: 0.5, LegEV: 0.05}
	require.False(t, PassesLegFilters(tooLong))
}

func TestPassesLegFiltersRejectsOutOfBandEV(t *testing.T) {
	leg := Leg{BetType: Moneyline, BestOdds: 2.0, TrueProb: 0.5, LegEV: 0.25}
	require.False(t, PassesLegFilters(leg))
}

func TestCorrelationSameEventForbidden(t *testing.T) {
	a := Leg{EventID: "e1", Sport: "basketball", League: "nba"}
	b := Leg{EventID: "e1", Sport: "basketball", League: "nba"}
	require.Equal(t, 1.0, Correlation(a, b))
}

func TestCorrelationSameLeagueUsesSportTable(t *testing.T) {
	a := Leg{EventID: "e1", Sport: "basketball", League: "nba"}
	b := Leg{EventID: "e2", Sport: "basketball", League: "nba"}
	require.Equal(t, 0.12, Correlation(a, b))
}

func TestCorrelationCrossSport(t *testing.T) {
	a := Leg{EventID: "e1", Sport: "basketball", League: "nba"}
	b := Leg{EventID: "e2", Sport: "soccer", League: "epl"}
	require.Equal(t, crossSportRho, Correlation(a, b))
}

// TestCombinedProbabilityMatchesPublishedScenario reproduces spec §8
// scenario 6: 3 legs, odds {1.90, 1.95, 2.10}, trueProb {0.56, 0.55,
// 0.50}, same league ρ=0.08 → corrected combined probability ≈0.107,
// combined odds 7.7805, EV ≈ -0.167 → the parlay should be rejected.
func TestCombinedProbabilityMatchesPublishedScenario(t *testing.T) {
	legs := []Leg{
		{EventID: "e1", Sport: "americanfootball", League: "nfl", BestOdds: 1.90, TrueProb: 0.56},
		{EventID: "e2", Sport: "americanfootball", League: "nfl", BestOdds: 1.95, TrueProb: 0.55},
		{EventID: "e3", Sport: "americanfootball", League: "nfl", BestOdds: 2.10, TrueProb: 0.50},
	}

	combined, avgRho := CombinedProbability(legs)
	require.InDelta(t, 0.107, combined, 0.002)
	require.InDelta(t, 0.08, avgRho, 1e-9)

	combinedOdds := 1.0
	for _, leg := range legs {
		combinedOdds *= leg.BestOdds
	}
	require.InDelta(t, 7.7805, combinedOdds, 0.001)

	ev := combinedOdds*combined - 1
	require.InDelta(t, -0.167, ev, 0.01)

	_, ok := BuildParlay(Candidate{Legs: legs}, 1000)
	require.False(t, ok, "single-sport 3-leg parlay with negative EV should be rejected")
}

func TestBuildParlayRejectsSameEventLegs(t *testing.T) {
	legs := []Leg{
		{EventID: "e1", Sport: "basketball", League: "nba", BestOdds: 2.0, TrueProb: 0.55},
		{EventID: "e1", Sport: "basketball", League: "nba", BestOdds: 2.0, TrueProb: 0.55},
	}
	_, ok := BuildParlay(Candidate{Legs: legs}, 1000)
	require.False(t, ok)
}

func TestBuildParlayAcceptsPositiveEVWithinBands(t *testing.T) {
	legs := []Leg{
		{EventID: "e1", Sport: "basketball", League: "nba", BestOdds: 2.00, TrueProb: 0.55},
		{EventID: "e2", Sport: "soccer", League: "epl", BestOdds: 2.05, TrueProb: 0.54},
	}
	p, ok := BuildParlay(Candidate{Legs: legs}, 1000)
	require.True(t, ok)
	require.Greater(t, p.EV, 0.0)
	require.Greater(t, p.KellyStake, 0.0)
	require.LessOrEqual(t, p.KellyStake, 0.03*1000)
}

func TestQuarterKellyStakeCappedAtThreePercent(t *testing.T) {
	stake := quarterKellyStake(5.0, 0.9, 1000)
	require.LessOrEqual(t, stake, 30.0)
}

func TestSelectKeptRejectsHighOverlap(t *testing.T) {
	base := Parlay{
		Legs: []Leg{{EventID: "e1", SideLabel: "home"}, {EventID: "e2", SideLabel: "home"}},
		EV:   0.10,
	}
	overlapping := Parlay{
		Legs: []Leg{{EventID: "e1", SideLabel: "home"}, {EventID: "e3", SideLabel: "away"}},
		EV:   0.08,
	}
	kept := SelectKept([]Parlay{base, overlapping})
	require.Len(t, kept, 1)
	require.Equal(t, base.EV, kept[0].EV)
}

func TestBestOddsFallsBackOnOutlier(t *testing.T) {
	outcome := Outcome{Books: []BookOdds{
		{Bookmaker: "A", Odds: 5.0},
		{Bookmaker: "B", Odds: 2.0},
		{Bookmaker: "C", Odds: 1.95},
	}}
	odds, ok := BestOdds(outcome)
	require.True(t, ok)
	require.Equal(t, 2.0, odds, "single outlier best should fall back to second-best")
}

func TestBestOddsUsesBestWhenConsistent(t *testing.T) {
	outcome := Outcome{Books: []BookOdds{
		{Bookmaker: "A", Odds: 2.05},
		{Bookmaker: "B", Odds: 2.00},
		{Bookmaker: "C", Odds: 1.95},
	}}
	odds, ok := BestOdds(outcome)
	require.True(t, ok)
	require.Equal(t, 2.05, odds)
}

func TestSharpProbabilityFallsBackToMedianWithoutSharpBooks(t *testing.T) {
	ev := Event{
		Outcomes: []Outcome{
			{Books: []BookOdds{{Bookmaker: "X", Odds: 1.9}, {Bookmaker: "Y", Odds: 1.95}, {Bookmaker: "Z", Odds: 2.0}}},
			{Books: []BookOdds{{Bookmaker: "X", Odds: 2.0}, {Bookmaker: "Y", Odds: 1.95}, {Bookmaker: "Z", Odds: 1.9}}},
		},
	}
	pricing := SharpProbability(ev, 0)
	require.Equal(t, "median", pricing.Source)
	require.Equal(t, "low", pricing.Confidence)
	require.Greater(t, pricing.Prob, 0.0)
}

func TestGradeBandsMatchScore(t *testing.T) {
	_, grade := Score(Parlay{EV: 0.09, AvgCorrelation: 0.01, Legs: []Leg{
		{Sport: "basketball", DataQualityTier: "high", SharpConfidence: "high", BetType: Moneyline},
		{Sport: "soccer", DataQualityTier: "high", SharpConfidence: "high", BetType: Spread},
		{Sport: "mma", DataQualityTier: "high", SharpConfidence: "high", BetType: Total},
	}})
	require.Equal(t, GradeS, grade)
}
