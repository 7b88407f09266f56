package parlay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// sharpEvent builds a two-outcome moneyline event quoted identically
// across every sharp book, with outcome A priced to clear PassesLegFilters.
func sharpEvent(id, sport string, commence time.Time) Event {
	booksFor := func(odds float64) []BookOdds {
		return []BookOdds{
			{Bookmaker: "Pinnacle", Odds: odds},
			{Bookmaker: "Matchbook", Odds: odds},
			{Bookmaker: "BetOnline", Odds: odds},
			{Bookmaker: "Betfair Exchange", Odds: odds},
		}
	}
	return Event{
		ID:         id,
		Sport:      sport,
		League:     sport + "-league",
		CommenceAt: commence,
		BetType:    Moneyline,
		Outcomes: []Outcome{
			{Label: "A", Books: booksFor(3.3)},
			{Label: "B", Books: booksFor(1.5)},
		},
	}
}

func TestCandidateLegsKeepsOneBestEVLegPerEvent(t *testing.T) {
	now := time.Now()
	legs := CandidateLegs([]Event{sharpEvent("e1", "basketball", now.Add(time.Hour))})
	require.Len(t, legs, 1)
	require.Equal(t, "e1", legs[0].EventID)
	require.True(t, PassesLegFilters(legs[0]))
}

func TestCandidateLegsDropsEventWithNoQualifyingOutcome(t *testing.T) {
	now := time.Now()
	ev := sharpEvent("e1", "basketball", now.Add(time.Hour))
	// Push both outcomes' odds outside the moneyline EV band.
	for i := range ev.Outcomes {
		for j := range ev.Outcomes[i].Books {
			ev.Outcomes[i].Books[j].Odds = 1.01
		}
	}
	require.Empty(t, CandidateLegs([]Event{ev}))
}

func TestBuildCandidatesRanksBySizeAndEV(t *testing.T) {
	now := time.Now()
	var events []Event
	for i, sport := range []string{"basketball", "soccer", "mma", "baseball"} {
		events = append(events, sharpEvent(string(rune('a'+i)), sport, now.Add(time.Hour)))
	}
	legs := CandidateLegs(events)
	require.Len(t, legs, 4)

	candidates := BuildCandidates(legs)
	require.NotEmpty(t, candidates)
	// One candidate per size from min(ceiling, len(legs)) down to minLegs.
	require.Equal(t, len(legs)-minLegs+1, len(candidates))
	require.Len(t, candidates[0].Legs, len(legs))
	require.Len(t, candidates[len(candidates)-1].Legs, minLegs)
}

func TestBuildCandidatesEmptyBelowMinLegs(t *testing.T) {
	now := time.Now()
	legs := CandidateLegs([]Event{sharpEvent("e1", "basketball", now.Add(time.Hour))})
	require.Empty(t, BuildCandidates(legs))
}

func legPair(now time.Time) (Leg, Leg) {
	legA := Leg{EventID: "e1", SideLabel: "A", Sport: "basketball", League: "basketball-league", BetType: Moneyline, TrueProb: 0.31}
	legB := Leg{EventID: "e2", SideLabel: "B", Sport: "soccer", League: "soccer-league", BetType: Moneyline, TrueProb: 0.69}
	return legA, legB
}

func TestCLVTrackerStaysPendingUntilEventsCommence(t *testing.T) {
	now := time.Now()
	legA, legB := legPair(now)
	p := Parlay{Legs: []Leg{legA, legB}, TrueCombinedProb: 0.2}

	tracker := NewCLVTracker()
	tracker.Keep(p, now)
	require.Equal(t, 1, tracker.Pending())

	upcoming := map[string]Event{
		"e1": sharpEvent("e1", "basketball", now.Add(time.Hour)),
		"e2": sharpEvent("e2", "soccer", now.Add(time.Hour)),
	}
	require.Empty(t, tracker.Reprice(upcoming, now))
	require.Equal(t, 1, tracker.Pending())
}

func TestCLVTrackerRepricesOnceEventsCommence(t *testing.T) {
	now := time.Now()
	legA, legB := legPair(now)
	p := Parlay{Legs: []Leg{legA, legB}, TrueCombinedProb: 0.2}

	tracker := NewCLVTracker()
	tracker.Keep(p, now)

	commenced := map[string]Event{
		"e1": sharpEvent("e1", "basketball", now.Add(-time.Hour)),
		"e2": sharpEvent("e2", "soccer", now.Add(-time.Hour)),
	}
	records := tracker.Reprice(commenced, now)
	require.Len(t, records, 1)
	require.Equal(t, 0, tracker.Pending())
	require.Len(t, tracker.Records(), 1)

	rec := records[0]
	require.Equal(t, 0.2, rec.RecordedProb)
	require.InDelta(t, rec.ClosingProb-rec.RecordedProb, rec.CLV, 1e-9)
}

func TestCLVTrackerSeedRecordsPrependsRestored(t *testing.T) {
	tracker := NewCLVTracker()
	restored := []CLVRecord{{CLV: 0.05}}
	tracker.SeedRecords(restored)
	require.Len(t, tracker.Records(), 1)
	require.Equal(t, 0.05, tracker.Records()[0].CLV)
}

func TestParlayKeyStableForSameLegs(t *testing.T) {
	legA, legB := legPair(time.Now())
	p1 := Parlay{Legs: []Leg{legA, legB}}
	p2 := Parlay{Legs: []Leg{legA, legB}}
	require.Equal(t, ParlayKey(p1), ParlayKey(p2))
}
