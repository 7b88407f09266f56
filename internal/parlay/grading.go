package parlay

// Grade buckets a parlay score into a letter tier (spec §4.H).
const (
	GradeS = "S"
	GradeA = "A"
	GradeB = "B"
	GradeC = "C"
)

// Score grades a built parlay on a 0-100 scale across seven weighted
// dimensions and returns the letter tier.
func Score(p Parlay) (score float64, grade string) {
	score += evScore(p.EV)
	score += dataQualityScore(p.Legs)
	score += correlationScore(p.AvgCorrelation)
	score += legCountScore(len(p.Legs))
	score += crossSportScore(p.Legs)
	score += sharpConfidenceScore(p.Legs)
	score += betTypeDiversityScore(p.Legs)

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	switch {
	case score >= 80:
		grade = GradeS
	case score >= 60:
		grade = GradeA
	case score >= 40:
		grade = GradeB
	default:
		grade = GradeC
	}
	return score, grade
}

// evScore awards up to 35pts for EV, with a heavy negative penalty past
// EV>0.10 that scales to -30 as EV approaches 0.25 and beyond.
func evScore(ev float64) float64 {
	if ev <= 0 {
		return 0
	}
	if ev <= 0.10 {
		return (ev / 0.10) * 35
	}
	over := ev - 0.10
	penalty := (over / 0.15) * 30
	if penalty > 30 {
		penalty = 30
	}
	return 35 - penalty
}

func dataQualityScore(legs []Leg) float64 {
	if len(legs) == 0 {
		return 0
	}
	var sum float64
	for _, leg := range legs {
		switch leg.DataQualityTier {
		case "high":
			sum += 20
		case "med":
			sum += 12
		default:
			sum += 5
		}
	}
	return sum / float64(len(legs))
}

// correlationScore gives full 15pts at zero correlation, decaying to 0
// by avgRho=0.15 (the builder's own validity ceiling).
func correlationScore(avgRho float64) float64 {
	score := 15 * (1 - avgRho/0.15)
	if score < 0 {
		score = 0
	}
	return score
}

// legCountScore favors 3-leg parlays.
func legCountScore(n int) float64 {
	switch n {
	case 3:
		return 10
	case 2:
		return 6
	case 4:
		return 6
	default:
		return 3
	}
}

// crossSportScore rewards diversification across ≥3 distinct sports.
func crossSportScore(legs []Leg) float64 {
	sports := make(map[string]bool)
	for _, leg := range legs {
		sports[leg.Sport] = true
	}
	switch {
	case len(sports) >= 3:
		return 10
	case len(sports) == 2:
		return 5
	default:
		return 0
	}
}

// sharpConfidenceScore rewards parlays with two or more high-confidence
// sharp-priced legs.
func sharpConfidenceScore(legs []Leg) float64 {
	high := 0
	for _, leg := range legs {
		if leg.SharpConfidence == "high" {
			high++
		}
	}
	switch {
	case high >= 2:
		return 10
	case high == 1:
		return 5
	default:
		return 0
	}
}

func betTypeDiversityScore(legs []Leg) float64 {
	types := make(map[BetType]bool)
	for _, leg := range legs {
		types[leg.BetType] = true
	}
	if len(types) >= 2 {
		return 5
	}
	return 0
}
