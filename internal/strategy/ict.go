package strategy

import (
	"math"

	"github.com/GoPolymarket/polymarket-trader/internal/feeslip"
	"github.com/GoPolymarket/polymarket-trader/internal/venue"
)

const (
	ictImbalanceWeight = 0.40
	ictSweepWeight     = 0.25
	ictBlockWeight     = 0.20
	ictDivergenceWeight = 0.15
)

// ICT runs the orderbook-microstructure strategy: four weighted
// sub-signals aggregated, scaled by the market's depth confidence, then
// reduced by the spoof-detector's penalty (spec §4.F, §8 scenario 7).
type ICT struct {
	MinVolume, MinLiquidity float64
}

func (s ICT) Name() string { return "ICT" }

func (s ICT) Evaluate(snap Snapshot, bankroll float64) []Opportunity {
	var out []Opportunity
	for _, m := range snap.Markets {
		if !eligiblePrice(m.YesMid) {
			continue
		}
		if m.Volume24h < s.MinVolume || m.Liquidity < s.MinLiquidity {
			continue
		}
		book, ok := snap.Books[m.YesTokenID]
		if !ok || len(book.Bids) == 0 || len(book.Asks) == 0 {
			continue
		}
		history := snap.History[m.YesTokenID]

		imbalance, imbalanceSide := tightWideImbalance(book)
		sweep, sweepSide := liquiditySweep(book)
		blocks, blockSide := institutionalBlocks(book)
		divergence, divSide := volumePriceDivergence(history, m.Volume24h)

		base := ictImbalanceWeight*imbalance + ictSweepWeight*sweep +
			ictBlockWeight*blocks + ictDivergenceWeight*divergence

		confidenceFactor := snap.DepthConfidence[m.YesTokenID]
		if confidenceFactor <= 0 {
			confidenceFactor = 1
		}
		scaled := base * confidenceFactor
		score := ApplySpoofPenalty(scaled, snap.SpoofScores[m.YesTokenID])

		side, tie := majoritySide([]Side{imbalanceSide, sweepSide, blockSide, divSide})
		if tie {
			continue
		}

		if !learnedGate(score, 35, snap.LearnedThresholds[s.Name()]) {
			continue
		}

		p, q := m.YesMid, 1-m.YesMid
		if side == SideNo {
			p, q = q, p
		}
		slip := feeslip.Slippage(assumedTradeSize, m.Liquidity)
		if feeslip.NetEV(p, q, slip, feeslip.DefaultFeeRate) <= 0 {
			continue
		}

		kelly := feeslip.FractionalKelly(p, q, feeslip.DefaultFeeRate)
		raw := feeslip.StakeSize(kelly, feeslip.StakeParams{
			Bankroll:    bankroll,
			Liquidity:   m.Liquidity,
			MaxExposure: 0.05,
			KellyFrac:   feeslip.DefaultKellyFrac,
		})

		out = append(out, Opportunity{
			MarketID:   m.ID,
			Strategy:   s.Name(),
			Side:       side,
			Score:      score,
			Confidence: ictConfidence(confidenceFactor),
			EntryPrice: m.YesMid,
			Kelly:      kelly,
			Size:       raw * confidenceFactor,
			RiskNote:   "worst case: microstructure read reverses once a single resting order is pulled",
		})
	}
	return out
}

// ApplySpoofPenalty reduces an ICT base score by min(5·spoofScore, 25),
// floored at 0 (spec §4.F, §8 scenario 7).
func ApplySpoofPenalty(base float64, spoofScore int) float64 {
	penalty := math.Min(5*float64(spoofScore), 25)
	return math.Max(0, base-penalty)
}

func ictConfidence(confidenceFactor float64) Confidence {
	switch {
	case confidenceFactor >= 0.7:
		return ConfidenceHigh
	case confidenceFactor >= 0.4:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func depthSum(levels []venue.Level) float64 {
	var total float64
	for _, l := range levels {
		total += l.Size
	}
	return total
}

// tightWideImbalance scores the bid/ask depth skew within the top-5
// levels, the book's "tight vs wide" read.
func tightWideImbalance(book venue.Orderbook) (score float64, side Side) {
	bidDepth := depthSum(topN(book.Bids, 5))
	askDepth := depthSum(topN(book.Asks, 5))
	total := bidDepth + askDepth
	if total == 0 {
		return 0, SideYes
	}
	skew := (bidDepth - askDepth) / total
	side = SideYes
	if skew < 0 {
		side = SideNo
	}
	return math.Abs(skew) * 100, side
}

// liquiditySweep flags a thin top-of-book relative to the rest of the
// book, suggesting resting size was just swept through.
func liquiditySweep(book venue.Orderbook) (score float64, side Side) {
	if len(book.Bids) < 2 || len(book.Asks) < 2 {
		return 0, SideYes
	}
	bidRest := depthSum(book.Bids[1:])
	askRest := depthSum(book.Asks[1:])
	bidTop, askTop := book.Bids[0].Size, book.Asks[0].Size

	bidRatio := safeDiv(bidTop, bidRest)
	askRatio := safeDiv(askTop, askRest)
	if bidRatio > askRatio {
		return math.Min(bidRatio*50, 100), SideNo
	}
	return math.Min(askRatio*50, 100), SideYes
}

// institutionalBlocks looks for a single level carrying an outsized
// share of its side's total depth — a resting block order.
func institutionalBlocks(book venue.Orderbook) (score float64, side Side) {
	bidShare := largestShare(book.Bids)
	askShare := largestShare(book.Asks)
	if bidShare > askShare {
		return bidShare * 100, SideYes
	}
	return askShare * 100, SideNo
}

func largestShare(levels []venue.Level) float64 {
	total := depthSum(levels)
	if total == 0 {
		return 0
	}
	var max float64
	for _, l := range levels {
		if l.Size > max {
			max = l.Size
		}
	}
	return max / total
}

// volumePriceDivergence flags when price direction disagrees with
// accelerating volume over the available history.
func volumePriceDivergence(history []venue.PricePoint, volume24h float64) (score float64, side Side) {
	if len(history) < 2 {
		return 0, SideYes
	}
	priceDelta := history[len(history)-1].Price - history[0].Price
	side = SideYes
	if priceDelta < 0 {
		side = SideNo
	}
	magnitude := math.Min(math.Abs(priceDelta)*200, 100)
	return magnitude, side
}

func topN(levels []venue.Level, n int) []venue.Level {
	if len(levels) <= n {
		return levels
	}
	return levels[:n]
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		if a == 0 {
			return 0
		}
		return a
	}
	return a / b
}

// majoritySide picks the side with a strict majority vote; ties reject.
func majoritySide(sides []Side) (Side, bool) {
	var yes, no int
	for _, s := range sides {
		if s == SideYes {
			yes++
		} else if s == SideNo {
			no++
		}
	}
	if yes == no {
		return "", true
	}
	if yes > no {
		return SideYes, false
	}
	return SideNo, false
}
