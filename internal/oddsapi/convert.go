package oddsapi

import (
	"strings"

	"github.com/GoPolymarket/polymarket-trader/internal/parlay"
)

// ToEvent converts one Odds API sport entry into a parlay.Event for the
// h2h market, the only market the parlay builder currently prices.
func ToEvent(s Sport) (parlay.Event, bool) {
	byOutcome := make(map[string][]parlay.BookOdds)
	var order []string

	for _, bm := range s.Bookmakers {
		for _, mkt := range bm.Markets {
			if mkt.Key != string(H2H) {
				continue
			}
			for _, o := range mkt.Outcomes {
				if _, seen := byOutcome[o.Name]; !seen {
					order = append(order, o.Name)
				}
				byOutcome[o.Name] = append(byOutcome[o.Name], parlay.BookOdds{
					Bookmaker: bm.Title,
					Odds:      o.Price,
				})
			}
		}
	}
	if len(order) < 2 {
		return parlay.Event{}, false
	}

	outcomes := make([]parlay.Outcome, 0, len(order))
	for _, name := range order {
		outcomes = append(outcomes, parlay.Outcome{Label: name, Books: byOutcome[name]})
	}

	return parlay.Event{
		ID:         s.ID,
		Sport:      sportFamily(s.SportKey),
		League:     s.SportKey,
		CommenceAt: s.CommenceAt,
		BetType:    parlay.Moneyline,
		Outcomes:   outcomes,
	}, true
}

// sportFamily collapses a sport key like "basketball_nba" into its
// cross-sport family "basketball", the granularity parlay.Correlation
// compares on.
func sportFamily(sportKey string) string {
	if i := strings.IndexByte(sportKey, '_'); i >= 0 {
		return sportKey[:i]
	}
	return sportKey
}
