package bayes

import "strings"

// categoryTrust is the lookup table behind the efficiency damper's
// categoryTrust term (spec §4.C). Category detection is keyword-based
// over the market question text.
var categoryTrust = map[string]float64{
	"sports":   0.88,
	"politics": 0.78,
	"crypto":   0.58,
}

const defaultCategoryTrust = 0.62

var categoryKeywords = map[string][]string{
	"sports": {"nfl", "nba", "mlb", "nhl", "super bowl", "championship", "match", "game", "vs.", "win the"},
	"politics": {"election", "president", "senate", "congress", "governor", "vote", "primary", "poll"},
	"crypto": {"bitcoin", "btc", "ethereum", "eth", "crypto", "token", "blockchain"},
}

// DetectCategory keyword-matches question text into one of the trust
// table's categories, falling back to "" (default trust) when no keyword
// matches.
func DetectCategory(question string) string {
	q := strings.ToLower(question)
	for category, keywords := range categoryKeywords {
		for _, kw := range keywords {
			if strings.Contains(q, kw) {
				return category
			}
		}
	}
	return ""
}

// CategoryTrust returns the trust multiplier for a detected category,
// defaulting to 0.62 when unrecognized.
func CategoryTrust(category string) float64 {
	if trust, ok := categoryTrust[category]; ok {
		return trust
	}
	return defaultCategoryTrust
}
