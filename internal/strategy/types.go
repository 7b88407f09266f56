// Package strategy holds the opportunity-finding strategies that run over
// a market-data snapshot each scan cycle: cross-venue value, logic
// arbitrage, orderbook microstructure (ICT), momentum, and whale
// detection. Structured after the teacher's scan-then-score strategies
// (taker.go, maker.go, crypto_signal.go), generalized from a single
// maker/taker pair into a pluggable bank.
package strategy

import "github.com/GoPolymarket/polymarket-trader/internal/venue"

// Side is the opportunity's recommended direction.
type Side string

const (
	SideYes      Side = "YES"
	SideNo       Side = "NO"
	SideBuyBoth  Side = "BUY_BOTH"
	SideSellBoth Side = "SELL_BOTH"
)

// Confidence mirrors the bayes engine's tiers, reused here for
// opportunities priced against bookmaker/group consensus.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// SignalRef archives one contributing signal for later calibration
// feedback (spec §4.G): name, raw log-likelihood-ratio, and direction.
type SignalRef struct {
	Name      string
	RawLLR    float64
	Direction Side
}

// Opportunity is one strategy's scored candidate for a single market.
type Opportunity struct {
	MarketID   string
	Strategy   string
	Subtype    string
	Side       Side
	Score      float64
	Confidence Confidence
	EntryPrice float64
	Kelly      float64
	Size       float64
	RiskNote   string
	Signals    []SignalRef
}

// Key is the dedup identity (marketId, strategy, side) that persistence
// and paper-trading key on. The scan orchestrator's own dedup leaves
// side out and keys on (marketId, strategy).
func (o Opportunity) Key() (marketID, strategyName string, side Side) {
	return o.MarketID, o.Strategy, o.Side
}

// Consensus is the bookmaker-odds consensus probability for a matched
// market event, used by the cross-venue value strategy.
type Consensus struct {
	Prob            float64
	BookmakerCount  int
	PinnacleAgrees  bool
}

// Group is a set of markets sharing a Polymarket negRisk groupSlug, plus
// the event's total outcome count for completeness checks.
type Group struct {
	Slug          string
	Markets       []venue.Market
	TotalOutcomes int
}

// LearnedThreshold is the paper-trader's self-learning output consulted
// by strategies to gate low-quality opportunities (spec §4.G).
type LearnedThreshold struct {
	OptimalMinScore float64
	ProfitCutoff    float64
	SampleSize      int
}

// Snapshot is the read-only view of market state a scan cycle hands to
// every strategy.
type Snapshot struct {
	Markets           []venue.Market
	Books             map[string]venue.Orderbook // by YES tokenID
	SpoofScores       map[string]int             // by tokenID
	DepthConfidence   map[string]float64         // by tokenID, thin-market confidenceFactor
	History           map[string][]venue.PricePoint
	Consensus         map[string]Consensus // by marketID
	Groups            map[string]Group     // by groupSlug
	LearnedThresholds map[string]LearnedThreshold
}

// Strategy is one opportunity-finder. Evaluate must never panic on a
// single bad market: skip it and continue (spec §4.F failure policy).
type Strategy interface {
	Name() string
	Evaluate(snap Snapshot, bankroll float64) []Opportunity
}

const (
	minYesPrice = 0.05
	maxYesPrice = 0.95
)

// eligiblePrice rejects markets priced at the extremes, per every
// strategy's required gate.
func eligiblePrice(yesMid float64) bool {
	return yesMid > minYesPrice && yesMid < maxYesPrice
}

// learnedGate reports whether score passes the strategy's learned
// profitCutoff, falling back to defaultMin when the learning state
// hasn't accumulated enough samples (spec §4.G: sampleSize ≥ 10).
func learnedGate(score, defaultMin float64, lt LearnedThreshold) bool {
	if lt.SampleSize >= 10 {
		return score >= lt.ProfitCutoff
	}
	return score >= defaultMin
}
