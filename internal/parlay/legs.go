package parlay

// CandidateLegs prices every event's outcomes into legs, keeping each
// event's single best-EV outcome that clears the leg filters (spec
// §4.H). One leg per event, since a parlay may never combine two legs
// from the same event.
func CandidateLegs(events []Event) []Leg {
	var legs []Leg
	for _, ev := range events {
		best, haveBest := Leg{}, false
		for idx, outcome := range ev.Outcomes {
			price := SharpProbability(ev, idx)
			if price.Prob <= 0 {
				continue
			}
			odds, ok := BestOdds(outcome)
			if !ok {
				continue
			}
			leg := Leg{
				EventID:         ev.ID,
				SideLabel:       outcome.Label,
				Sport:           ev.Sport,
				League:          ev.League,
				BetType:         ev.BetType,
				TrueProb:        price.Prob,
				SharpSource:     price.Source,
				SharpConfidence: price.Confidence,
				BestOdds:        odds,
				LegEV:           price.Prob*odds - 1,
				DataQualityTier: price.Confidence,
			}
			if !PassesLegFilters(leg) {
				continue
			}
			if !haveBest || leg.LegEV > best.LegEV {
				best, haveBest = leg, true
			}
		}
		if haveBest {
			legs = append(legs, best)
		}
	}
	return legs
}

const candidateSizeCeiling = 4

// BuildCandidates groups the highest-EV legs into one descending-size
// attempt per cycle (4 legs down to 2): each candidate is the top legs
// by EV. Sport is not considered when picking legs; BuildParlay's
// cross-sport and correlation checks (spec §4.H acca validity) decide
// afterwards whether a candidate is valid.
func BuildCandidates(legs []Leg) []Candidate {
	ranked := rankByEV(legs)
	var candidates []Candidate
	for size := candidateSizeCeiling; size >= minLegs; size-- {
		if size > len(ranked) {
			continue
		}
		candidates = append(candidates, Candidate{Legs: append([]Leg{}, ranked[:size]...)})
	}
	return candidates
}

func rankByEV(legs []Leg) []Leg {
	out := append([]Leg{}, legs...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].LegEV > out[j-1].LegEV; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
