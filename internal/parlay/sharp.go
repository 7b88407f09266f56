package parlay

import (
	"sort"
)

// sharpBookOrder is the trust-ordered list of sharp bookmakers consulted
// for consensus pricing (spec §4.H).
var sharpBookOrder = []string{"Pinnacle", "Matchbook", "BetOnline", "Betfair Exchange"}

// SharpPricing is the result of pricing one outcome against sharp-book
// consensus.
type SharpPricing struct {
	Prob       float64
	Source     string // "sharp" or "median"
	Confidence string // "high", "med", "low"
}

// SharpProbability prices ev's outcome at outcomeIdx by averaging
// devigged probabilities across the ordered sharp books that quote the
// full market, falling back to the median over all books when no sharp
// book has a complete quote (spec §4.H).
func SharpProbability(ev Event, outcomeIdx int) SharpPricing {
	var sharpProbs []float64
	for _, book := range sharpBookOrder {
		probs, ok := devigByBookmaker(ev, book)
		if !ok {
			continue
		}
		sharpProbs = append(sharpProbs, probs[outcomeIdx])
	}
	if len(sharpProbs) > 0 {
		confidence := "med"
		if len(sharpProbs) >= 2 && spread(sharpProbs) < 0.05 {
			confidence = "high"
		}
		return SharpPricing{Prob: mean(sharpProbs), Source: "sharp", Confidence: confidence}
	}

	var allProbs []float64
	for _, book := range allBookmakers(ev) {
		probs, ok := devigByBookmaker(ev, book)
		if !ok {
			continue
		}
		allProbs = append(allProbs, probs[outcomeIdx])
	}
	if len(allProbs) >= 3 {
		return SharpPricing{Prob: median(allProbs), Source: "median", Confidence: "low"}
	}
	if len(allProbs) > 0 {
		return SharpPricing{Prob: mean(allProbs), Source: "median", Confidence: "low"}
	}
	return SharpPricing{}
}

func devigByBookmaker(ev Event, bookmaker string) ([]float64, bool) {
	odds := make([]float64, len(ev.Outcomes))
	for i, outcome := range ev.Outcomes {
		found := false
		for _, b := range outcome.Books {
			if b.Bookmaker == bookmaker && !b.IsLay {
				odds[i] = b.Odds
				found = true
				break
			}
		}
		if !found {
			return nil, false
		}
	}
	return Devig(odds), true
}

func allBookmakers(ev Event) []string {
	seen := make(map[string]bool)
	var out []string
	for _, outcome := range ev.Outcomes {
		for _, b := range outcome.Books {
			if !seen[b.Bookmaker] {
				seen[b.Bookmaker] = true
				out = append(out, b.Bookmaker)
			}
		}
	}
	sort.Strings(out)
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func spread(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	lo, hi := xs[0], xs[0]
	for _, x := range xs {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	return hi - lo
}

func median(xs []float64) float64 {
	sorted := append([]float64{}, xs...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// BestOdds picks the best (highest) quoted odds for an outcome with an
// outlier guard: drop lay markets; if the single best is >1.15× the
// second-best, or fewer than 2 books sit within 15% of the best, fall
// back to the second-best price (spec §4.H).
func BestOdds(outcome Outcome) (float64, bool) {
	var back []float64
	for _, b := range outcome.Books {
		if !b.IsLay {
			back = append(back, b.Odds)
		}
	}
	if len(back) == 0 {
		return 0, false
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(back)))
	if len(back) == 1 {
		return back[0], true
	}

	best, second := back[0], back[1]
	withinBand := 0
	for _, o := range back {
		if o >= best*0.85 {
			withinBand++
		}
	}
	if best > 1.15*second || withinBand < 2 {
		return second, true
	}
	return best, true
}
