package strategy

import (
	"math"

	"github.com/GoPolymarket/polymarket-trader/internal/venue"
)

const (
	whaleMinHistory    = 10
	whaleScoreGate     = 40.0
	whaleSpikeWindow   = 20
)

// Whale detects large directional accumulation via volume-spike ratio,
// volume-weighted recent price deltas, and a price-impact proxy (spec
// §4.F).
type Whale struct {
	MinVolume, MinLiquidity float64
}

func (s Whale) Name() string { return "WHALE" }

func (s Whale) Evaluate(snap Snapshot, bankroll float64) []Opportunity {
	var out []Opportunity
	for _, m := range snap.Markets {
		if !eligiblePrice(m.YesMid) {
			continue
		}
		if m.Volume24h < s.MinVolume || m.Liquidity < s.MinLiquidity {
			continue
		}
		history := snap.History[m.YesTokenID]
		if len(history) < whaleMinHistory {
			continue
		}

		spikeRatio := volumeSpikeRatio(m.Volume24h, history)
		direction := weightedDirection(history)
		accumulation := accumulationScore(history)
		priceImpact := priceImpactProxy(history, m.Liquidity)

		whaleScore := math.Min((spikeRatio-1)*30+accumulation*40+priceImpact*30, 100)
		if whaleScore < whaleScoreGate {
			continue
		}
		if direction == 0 {
			continue
		}

		side := SideYes
		if direction < 0 {
			side = SideNo
		}

		out = append(out, Opportunity{
			MarketID:   m.ID,
			Strategy:   s.Name(),
			Side:       side,
			Score:      whaleScore,
			Confidence: ConfidenceMedium,
			EntryPrice: m.YesMid,
			RiskNote:   "worst case: the accumulation was distribution into a thin book, not a directional bet",
		})
	}
	return out
}

// volumeSpikeRatio compares the market's 24h volume to the trailing
// window's implied baseline (proxy: history length scaled to a notional
// per-point volume, since per-point volume isn't tracked).
func volumeSpikeRatio(volume24h float64, history []venue.PricePoint) float64 {
	baseline := volume24h / float64(len(history)+1)
	if baseline == 0 {
		return 1
	}
	recent := volume24h / float64(whaleSpikeWindow)
	return recent / baseline
}

func weightedDirection(history []venue.PricePoint) float64 {
	w := lastNPoints(history, whaleSpikeWindow)
	var weighted float64
	for i := 1; i < len(w); i++ {
		weight := float64(i)
		weighted += weight * (w[i].Price - w[i-1].Price)
	}
	return weighted
}

func accumulationScore(history []venue.PricePoint) float64 {
	w := lastNPoints(history, whaleSpikeWindow)
	if len(w) < 2 {
		return 0
	}
	up, down := 0, 0
	for i := 1; i < len(w); i++ {
		if w[i].Price > w[i-1].Price {
			up++
		} else if w[i].Price < w[i-1].Price {
			down++
		}
	}
	total := up + down
	if total == 0 {
		return 0
	}
	consistency := math.Abs(float64(up-down)) / float64(total)
	return consistency
}

func priceImpactProxy(history []venue.PricePoint, liquidity float64) float64 {
	w := lastNPoints(history, whaleSpikeWindow)
	if len(w) < 2 || liquidity <= 0 {
		return 0
	}
	move := math.Abs(w[len(w)-1].Price - w[0].Price)
	return math.Min(move/(liquidity/1e6+0.01), 1)
}

func lastNPoints(history []venue.PricePoint, n int) []venue.PricePoint {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
