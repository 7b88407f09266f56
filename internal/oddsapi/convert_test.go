package oddsapi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToEventCollectsH2HAcrossBookmakers(t *testing.T) {
	s := Sport{
		ID:       "evt-1",
		SportKey: "basketball_nba",
		Bookmakers: []Bookmaker{
			{Title: "Pinnacle", Markets: []Market{
				{Key: "h2h", Outcomes: []Outcome{{Name: "Lakers", Price: 1.91}, {Name: "Celtics", Price: 1.95}}},
			}},
			{Title: "DraftKings", Markets: []Market{
				{Key: "h2h", Outcomes: []Outcome{{Name: "Lakers", Price: 1.87}, {Name: "Celtics", Price: 2.00}}},
			}},
		},
	}

	ev, ok := ToEvent(s)
	require.True(t, ok)
	require.Equal(t, "basketball", ev.Sport)
	require.Equal(t, "basketball_nba", ev.League)
	require.Len(t, ev.Outcomes, 2)
	require.Len(t, ev.Outcomes[0].Books, 2)
}

func TestToEventRejectsNonH2HOnly(t *testing.T) {
	s := Sport{
		ID: "evt-2",
		Bookmakers: []Bookmaker{
			{Title: "Pinnacle", Markets: []Market{
				{Key: "spreads", Outcomes: []Outcome{{Name: "Lakers", Price: 1.91, Point: -4.5}}},
			}},
		},
	}
	_, ok := ToEvent(s)
	require.False(t, ok)
}

func TestSportFamilyStripsLeagueSuffix(t *testing.T) {
	require.Equal(t, "basketball", sportFamily("basketball_nba"))
	require.Equal(t, "soccer", sportFamily("soccer_epl"))
	require.Equal(t, "mma", sportFamily("mma"))
}
