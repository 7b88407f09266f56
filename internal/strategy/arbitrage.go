package strategy

import (
	"math"
	"regexp"

	"github.com/GoPolymarket/polymarket-trader/internal/feeslip"
	"github.com/GoPolymarket/polymarket-trader/internal/venue"
)

// assumedTradeSize is the notional (USD) used to estimate slippage for
// arbitrage opportunities before a real order size is chosen, matching
// spec §8 scenario 1's worked example.
const assumedTradeSize = 100.0

const (
	complementMinNetEdge = 0.003
	groupMinNetEdge      = 0.01
	bookArbBidThreshold  = 1.005
	bookArbAskThreshold  = 0.995
	valueMinNetEdge      = 0.01
)

var subMarketPattern = regexp.MustCompile(`(?i)(spread|total|over/?under|prop|handicap)`)

// ComplementArb finds single-market complement arbitrage: |yes+no-1|
// net of fees and double slippage (spec §4.F, §8 scenario 1).
type ComplementArb struct {
	MinVolume, MinLiquidity float64
}

func (s ComplementArb) Name() string { return "ARBITRAGE/COMPLEMENT" }

func (s ComplementArb) Evaluate(snap Snapshot, bankroll float64) []Opportunity {
	var out []Opportunity
	for _, m := range snap.Markets {
		if !eligiblePrice(m.YesMid) {
			continue
		}
		if m.Volume24h < s.MinVolume || m.Liquidity < s.MinLiquidity {
			continue
		}

		deviation := m.YesMid + m.NoMid - 1
		abs := math.Abs(deviation)
		fee := feeslip.DefaultFeeRate * abs
		slip := feeslip.Slippage(assumedTradeSize, m.Liquidity)
		netEdge := abs - fee - 2*slip
		if netEdge <= complementMinNetEdge {
			continue
		}

		side := SideBuyBoth
		if deviation > 0 {
			side = SideSellBoth
		}
		score := math.Round(math.Min(netEdge*2000, 100))
		if !learnedGate(score, 20, snap.LearnedThresholds["ARBITRAGE/COMPLEMENT"]) {
			continue
		}

		kelly := feeslip.FractionalKelly(m.YesMid, 1-m.YesMid, feeslip.DefaultFeeRate)
		size := feeslip.StakeSize(kelly, feeslip.StakeParams{
			Bankroll:    bankroll,
			Liquidity:   m.Liquidity,
			MaxExposure: 0.1,
			KellyFrac:   feeslip.DefaultKellyFrac,
		})

		out = append(out, Opportunity{
			MarketID:   m.ID,
			Strategy:   s.Name(),
			Subtype:    "COMPLEMENT",
			Side:       side,
			Score:      score,
			Confidence: ConfidenceHigh,
			EntryPrice: m.YesMid,
			Kelly:      kelly,
			Size:       size,
			RiskNote:   "worst case: complement converges to 1.00 before fill completes, erasing the edge",
		})
	}
	return out
}

// GroupArb finds negRisk-group arbitrage across sibling markets sharing
// a groupSlug, downgrading confidence when the group is incomplete
// (spec §4.F).
type GroupArb struct {
	MinVolume, MinLiquidity float64
}

func (s GroupArb) Name() string { return "ARBITRAGE/GROUP" }

func (s GroupArb) Evaluate(snap Snapshot, bankroll float64) []Opportunity {
	var out []Opportunity
	for slug, group := range snap.Groups {
		if !isNegRiskGroup(group) {
			continue
		}
		markets := excludeSubMarkets(group.Markets)
		if len(markets) == 0 {
			continue
		}

		var sumYes, liquiditySum, volumeSum float64
		for _, m := range markets {
			sumYes += m.YesMid
			liquiditySum += m.Liquidity
			volumeSum += m.Volume24h
		}
		avgLiquidity := liquiditySum / float64(len(markets))
		avgVolume := volumeSum / float64(len(markets))
		if avgVolume < s.MinVolume || avgLiquidity < s.MinLiquidity {
			continue
		}

		deviation := math.Abs(sumYes - 1)
		feeOnProfit := feeslip.DefaultFeeRate * deviation
		var slipSum float64
		for _, m := range markets {
			slipSum += feeslip.Slippage(assumedTradeSize, m.Liquidity)
		}
		avgSlippage := slipSum / float64(len(markets))
		netEdge := deviation - feeOnProfit - avgSlippage
		if netEdge < groupMinNetEdge {
			continue
		}

		complete := len(markets) >= group.TotalOutcomes
		confidence := ConfidenceHigh
		score := math.Round(math.Min(netEdge*1000, 100))
		if !complete {
			confidence = ConfidenceLow
			coverage := float64(len(markets)) / float64(maxInt(group.TotalOutcomes, 1))
			score *= math.Max(coverage*0.6, 0.1)
		}

		side := SideBuyBoth
		if sumYes > 1 {
			side = SideSellBoth
		}

		out = append(out, Opportunity{
			MarketID:   slug,
			Strategy:   s.Name(),
			Subtype:    "GROUP",
			Side:       side,
			Score:      score,
			Confidence: confidence,
			RiskNote:   "worst case: one sibling market resolves against the group's implied overround before the others fill",
		})
	}
	return out
}

func isNegRiskGroup(g Group) bool {
	for _, m := range g.Markets {
		if !m.NegRisk {
			return false
		}
	}
	return len(g.Markets) > 0
}

func excludeSubMarkets(markets []venue.Market) []venue.Market {
	out := make([]venue.Market, 0, len(markets))
	for _, m := range markets {
		if subMarketPattern.MatchString(m.Question) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// OrderbookArb finds risk-free sell-sell / buy-buy crossings between a
// market's YES and NO books (spec §4.F).
type OrderbookArb struct {
	MinLiquidity float64
}

func (s OrderbookArb) Name() string { return "ARBITRAGE/ORDERBOOK" }

func (s OrderbookArb) Evaluate(snap Snapshot, bankroll float64) []Opportunity {
	var out []Opportunity
	for _, m := range snap.Markets {
		if m.Liquidity < s.MinLiquidity {
			continue
		}
		yesBook, ok := snap.Books[m.YesTokenID]
		if !ok || len(yesBook.Bids) == 0 || len(yesBook.Asks) == 0 {
			continue
		}
		noBook, ok := snap.Books[m.NoTokenID]
		if !ok {
			noBook = yesBook.Invert()
		}
		if len(noBook.Bids) == 0 || len(noBook.Asks) == 0 {
			continue
		}

		yesBid, yesAsk := yesBook.Bids[0].Price, yesBook.Asks[0].Price
		noBid, noAsk := noBook.Bids[0].Price, noBook.Asks[0].Price

		slip := feeslip.Slippage(assumedTradeSize, m.Liquidity)
		if yesBid+noBid > bookArbBidThreshold {
			edge := (yesBid + noBid - 1) - 2*slip
			if edge <= 0 {
				continue
			}
			out = append(out, s.opportunity(m, "ORDERBOOK_SELL", SideSellBoth, edge, yesBook, noBook))
			continue
		}
		if yesAsk+noAsk < bookArbAskThreshold {
			edge := (1 - yesAsk - noAsk) - 2*slip
			if edge <= 0 {
				continue
			}
			out = append(out, s.opportunity(m, "ORDERBOOK_BUY", SideBuyBoth, edge, yesBook, noBook))
		}
	}
	return out
}

func (s OrderbookArb) opportunity(m venue.Market, subtype string, side Side, edge float64, yesBook, noBook venue.Orderbook) Opportunity {
	fillSize := cumulativeNearBest(yesBook) + cumulativeNearBest(noBook)
	return Opportunity{
		MarketID:   m.ID,
		Strategy:   s.Name(),
		Subtype:    subtype,
		Side:       side,
		Score:      math.Round(math.Min(edge*2000, 100)),
		Confidence: ConfidenceHigh,
		Size:       fillSize,
		RiskNote:   "worst case: only the near-best level fills before the crossing closes",
	}
}

// cumulativeNearBest sums ask liquidity within 2% of the best ask,
// bounding max fillable size per spec §4.F.
func cumulativeNearBest(book venue.Orderbook) float64 {
	if len(book.Asks) == 0 {
		return 0
	}
	best := book.Asks[0].Price
	var total float64
	for _, lvl := range book.Asks {
		if lvl.Price <= best*1.02 {
			total += lvl.Size
		}
	}
	return total
}

// CrossVenueValue prices a market against a matched bookmaker-consensus
// probability, emitting an opportunity when the divergence exceeds fees
// (spec §4.F).
type CrossVenueValue struct {
	MinVolume, MinLiquidity float64
}

func (s CrossVenueValue) Name() string { return "ARBITRAGE/CROSS_PLATFORM" }

func (s CrossVenueValue) Evaluate(snap Snapshot, bankroll float64) []Opportunity {
	var out []Opportunity
	for _, m := range snap.Markets {
		if !eligiblePrice(m.YesMid) {
			continue
		}
		if m.Volume24h < s.MinVolume || m.Liquidity < s.MinLiquidity {
			continue
		}
		cons, ok := snap.Consensus[m.ID]
		if !ok || cons.BookmakerCount < 2 {
			continue
		}

		fee := feeslip.DefaultFeeRate * math.Abs(cons.Prob-m.YesMid)
		edge := math.Abs(cons.Prob-m.YesMid) - fee
		if edge <= valueMinNetEdge {
			continue
		}

		side := SideYes
		if cons.Prob < m.YesMid {
			side = SideNo
		}

		score := 50.0
		if edge > 0.05 {
			score += 20
		} else {
			score += edge * 400
		}
		if cons.BookmakerCount >= 20 {
			score += 15
		} else if cons.BookmakerCount >= 10 {
			score += 10
		}
		if cons.PinnacleAgrees {
			score += 10
		}
		if m.Liquidity > 20000 {
			score += 5
		}
		if m.Volume24h > 20000 {
			score += 5
		}
		if score > 100 {
			score = 100
		}

		if !learnedGate(score, 30, snap.LearnedThresholds[s.Name()]) {
			continue
		}

		p, q := m.YesMid, 1-m.YesMid
		if side == SideNo {
			p, q = q, p
		}
		kelly := feeslip.FractionalKelly(p, q, feeslip.DefaultFeeRate)
		size := feeslip.StakeSize(kelly, feeslip.StakeParams{
			Bankroll:    bankroll,
			Liquidity:   m.Liquidity,
			MaxExposure: 0.08,
			KellyFrac:   feeslip.DefaultKellyFrac,
		})

		out = append(out, Opportunity{
			MarketID:   m.ID,
			Strategy:   s.Name(),
			Side:       side,
			Score:      score,
			Confidence: consensusConfidence(cons),
			EntryPrice: m.YesMid,
			Kelly:      kelly,
			Size:       size,
			RiskNote:   "worst case: consensus itself was stale or the matched bookmaker event is mispaired",
		})
	}
	return out
}

func consensusConfidence(c Consensus) Confidence {
	switch {
	case c.BookmakerCount >= 10 && c.PinnacleAgrees:
		return ConfidenceHigh
	case c.BookmakerCount >= 5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
