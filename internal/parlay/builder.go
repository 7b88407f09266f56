package parlay

import (
	"sort"

	"github.com/GoPolymarket/polymarket-trader/internal/feeslip"
)

const (
	minLegs               = 2
	minCombinedOdds       = 3.0
	maxCombinedOdds       = 50.0
	evFloor               = 0.015
	evCeiling             = 0.35
	maxAvgCorrelation     = 0.15
	minSportsForThreeLegs = 2
	minSportsEligible     = 3

	kellyDivisor  = 4.0 // quarter-Kelly
	maxStakeFrac  = 0.03
	maxLegOverlap = 0.40
	maxLegReuse   = 3
)

// Candidate is a set of legs priced and ready for validity checks.
type Candidate struct {
	Legs []Leg
}

// BuildParlay prices a candidate's legs into a graded Parlay, applying
// the builder's acca validity rules (spec §4.H). Returns ok=false when
// the candidate fails validity.
func BuildParlay(c Candidate, bankroll float64) (Parlay, bool) {
	if len(c.Legs) < minLegs {
		return Parlay{}, false
	}
	if !distinctEvents(c.Legs) {
		return Parlay{}, false
	}

	combinedOdds := 1.0
	bookImplied := 1.0
	for _, leg := range c.Legs {
		combinedOdds *= leg.BestOdds
		bookImplied *= 1 / leg.BestOdds
	}
	if combinedOdds < minCombinedOdds || combinedOdds > maxCombinedOdds {
		return Parlay{}, false
	}

	trueCombined, avgRho := CombinedProbability(c.Legs)
	if avgRho > maxAvgCorrelation {
		return Parlay{}, false
	}

	if len(c.Legs) >= 3 && distinctSports(c.Legs) < minSportsForThreeLegs {
		return Parlay{}, false
	}

	ev := combinedOdds*trueCombined - 1
	if ev < evFloor || ev > evCeiling {
		return Parlay{}, false
	}

	_, grade := Score(Parlay{Legs: c.Legs, EV: ev, AvgCorrelation: avgRho})

	p := Parlay{
		Legs:             c.Legs,
		CombinedOdds:     combinedOdds,
		TrueCombinedProb: trueCombined,
		BookImpliedProb:  bookImplied,
		EV:               ev,
		Grade:            grade,
		AvgCorrelation:   avgRho,
		KellyStake:       quarterKellyStake(combinedOdds, trueCombined, bankroll),
	}
	return p, true
}

func distinctEvents(legs []Leg) bool {
	seen := make(map[string]bool)
	for _, leg := range legs {
		if seen[leg.EventID] {
			return false
		}
		seen[leg.EventID] = true
	}
	return true
}

func distinctSports(legs []Leg) int {
	sports := make(map[string]bool)
	for _, leg := range legs {
		sports[leg.Sport] = true
	}
	return len(sports)
}

// quarterKellyStake applies f = ((odds-1)·p - (1-p)) / (odds-1) / 4,
// capped at 3% of bankroll, floored at zero.
func quarterKellyStake(odds, p, bankroll float64) float64 {
	if odds <= 1 {
		return 0
	}
	b := odds - 1
	f := (b*p - (1 - p)) / b / kellyDivisor
	if f <= 0 {
		return 0
	}
	stake := f * bankroll
	cap := maxStakeFrac * bankroll
	if stake > cap {
		stake = cap
	}
	return feeslip.RoundCents(stake)
}

// SelectKept filters candidate parlays for the portfolio: reject any
// parlay sharing more than 40% of its legs with an already-kept parlay,
// and cap any single leg's reuse at 3 across kept parlays (spec §4.H).
func SelectKept(candidates []Parlay) []Parlay {
	sorted := append([]Parlay{}, candidates...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].EV > sorted[j].EV })

	legReuse := make(map[string]int)
	var kept []Parlay
	for _, cand := range sorted {
		if overlapsKept(cand, kept) {
			continue
		}
		if exceedsReuse(cand, legReuse) {
			continue
		}
		for _, leg := range cand.Legs {
			legReuse[legKey(leg)]++
		}
		kept = append(kept, cand)
	}
	return kept
}

func legKey(leg Leg) string {
	return leg.EventID + "|" + leg.SideLabel
}

func overlapsKept(cand Parlay, kept []Parlay) bool {
	for _, k := range kept {
		shared := 0
		for _, a := range cand.Legs {
			for _, b := range k.Legs {
				if legKey(a) == legKey(b) {
					shared++
					break
				}
			}
		}
		overlapFrac := float64(shared) / float64(len(cand.Legs))
		if overlapFrac > maxLegOverlap {
			return true
		}
	}
	return false
}

func exceedsReuse(cand Parlay, legReuse map[string]int) bool {
	for _, leg := range cand.Legs {
		if legReuse[legKey(leg)]+1 > maxLegReuse {
			return true
		}
	}
	return false
}
