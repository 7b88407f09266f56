package parlay

import "math"

var sameLeagueRho = map[string]float64{
	"basketball":       0.12,
	"americanfootball": 0.08,
	"soccer":           0.10,
	"mma":              0.05,
	"baseball":         0.06,
	"icehockey":        0.10,
}

const defaultSameLeagueRho = 0.08

var sameSportRho = map[string]float64{
	"basketball": 0.04,
	"soccer":     0.03,
}

const (
	defaultSameSportRho = 0.03
	crossSportRho       = 0.01
	sameEventRho        = 1.0
	correlationPenaltyK = 0.8
	combinedProbFloor   = 0.001
)

// Correlation returns ρ(a, b) per spec §4.H: same event is forbidden
// (1.0), same league is sport-specific, same sport but different league
// is a smaller sport-specific constant, cross-sport is a residual 0.01.
func Correlation(a, b Leg) float64 {
	if a.EventID == b.EventID {
		return sameEventRho
	}
	if a.Sport == b.Sport && a.League == b.League {
		if rho, ok := sameLeagueRho[a.Sport]; ok {
			return rho
		}
		return defaultSameLeagueRho
	}
	if a.Sport == b.Sport {
		if rho, ok := sameSportRho[a.Sport]; ok {
			return rho
		}
		return defaultSameSportRho
	}
	return crossSportRho
}

// CombinedProbability computes the correlation-penalized joint
// probability of every leg landing: the raw product of trueProbs, minus
// ρ·0.8·√(pᵢ(1-pᵢ)·pⱼ(1-pⱼ)) summed over every unordered leg pair,
// floored at 0.001 (spec §4.H).
func CombinedProbability(legs []Leg) (combined float64, avgRho float64) {
	raw := 1.0
	for _, leg := range legs {
		raw *= leg.TrueProb
	}

	var penalty float64
	var rhoSum float64
	var pairs int
	for i := 0; i < len(legs); i++ {
		for j := i + 1; j < len(legs); j++ {
			rho := Correlation(legs[i], legs[j])
			pi, pj := legs[i].TrueProb, legs[j].TrueProb
			penalty += rho * correlationPenaltyK * math.Sqrt(pi*(1-pi)*pj*(1-pj))
			rhoSum += rho
			pairs++
		}
	}

	combined = raw - penalty
	if combined < combinedProbFloor {
		combined = combinedProbFloor
	}
	if pairs > 0 {
		avgRho = rhoSum / float64(pairs)
	}
	return combined, avgRho
}
