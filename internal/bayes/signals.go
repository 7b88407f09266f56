package bayes

import (
	"math"
	"sort"

	"github.com/GoPolymarket/polymarket-trader/internal/calibration"
	"github.com/GoPolymarket/polymarket-trader/internal/venue"
)

// Signal is a named log-odds contribution (spec §3 "Signal LLR").
type Signal struct {
	Name           string
	RawLLR         float64
	Weight         float64
	ScaledLLR      float64
	StructuredData map[string]any
}

type band struct {
	radius float64
	weight float64
}

var imbalanceBands = []band{
	{radius: 0.03, weight: 0.50},
	{radius: 0.08, weight: 0.35},
	{radius: 0.15, weight: 0.15},
}

// OrderbookImbalance is signal 1: three concentric distance-weighted
// bid/ask volume bands around market price.
func OrderbookImbalance(book venue.Orderbook, marketPrice float64) (llr float64, data map[string]any) {
	var weightedSum, weightTotal float64
	bandLLRs := make([]float64, 0, len(imbalanceBands))

	for _, b := range imbalanceBands {
		bidW := distanceWeightedVolume(book.Bids, marketPrice, b.radius)
		askW := distanceWeightedVolume(book.Asks, marketPrice, b.radius)
		if bidW+askW < 200 {
			continue
		}
		ratio := (bidW + 1e-9) / (askW + 1e-9)
		bandLLR := clamp(math.Log(ratio)*0.15, -0.5, 0.5)
		bandLLRs = append(bandLLRs, bandLLR)
		weightedSum += b.weight * bandLLR
		weightTotal += b.weight
	}

	if weightTotal == 0 {
		return 0, map[string]any{"bandsUsed": 0}
	}
	llr = weightedSum / weightTotal
	return llr, map[string]any{"bandsUsed": len(bandLLRs)}
}

func distanceWeightedVolume(levels []venue.Level, marketPrice, radius float64) float64 {
	var total float64
	for _, lvl := range levels {
		d := math.Abs(lvl.Price - marketPrice)
		if d > radius {
			continue
		}
		w := 1 - d/radius
		total += lvl.Size * w
	}
	return total
}

// MultiTimeframeStability is signal 2. Requires at least 24 history
// points to evaluate its primary (12-point) and long (24-point) windows;
// with fewer points it yields no adjustment.
func MultiTimeframeStability(history []venue.PricePoint) (llr float64, data map[string]any) {
	if len(history) < 24 {
		return 0, map[string]any{"insufficientHistory": true}
	}
	short := stddev(lastN(history, 5))
	primary := stddev(lastN(history, 12))
	long := stddev(lastN(history, 24))
	mean := meanOf(lastN(history, 12))

	isConverging := long > 0 && (short-long)/long < -0.20

	const veryStableThreshold = 0.02
	const volatileThreshold = 0.08

	switch {
	case primary < veryStableThreshold && (mean >= 0.65 || mean <= 0.35):
		push := 0.15
		if mean < 0.5 {
			push = -push
		}
		if isConverging {
			push *= 1.3
		}
		llr = push
	case primary > volatileThreshold:
		push := -0.5 * primary
		if mean < 0.5 {
			push = -push
		}
		llr = push
	}
	return llr, map[string]any{"sigmaPrimary": primary, "isConverging": isConverging, "mean": mean}
}

func lastN(points []venue.PricePoint, n int) []float64 {
	if n > len(points) {
		n = len(points)
	}
	out := make([]float64, n)
	for i, p := range points[len(points)-n:] {
		out[i] = p.Price
	}
	return out
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := meanOf(xs)
	var sumSq float64
	for _, x := range xs {
		sumSq += (x - m) * (x - m)
	}
	return math.Sqrt(sumSq / float64(len(xs)))
}

// TimeDecay is signal 3.
func TimeDecay(daysLeft, marketPrice float64) (llr float64, data map[string]any) {
	const tau = 3.0
	factor := math.Exp(-daysLeft / tau)
	if marketPrice >= 0.65 {
		llr = factor * 0.2
	}
	return llr, map[string]any{"factor": factor}
}

// HistoricalCalibration is signal 4.
func HistoricalCalibration(store *calibration.Store, marketPrice float64) (llr float64, data map[string]any) {
	if calibrated, total, ok := store.IsotonicLookup(marketPrice); ok {
		weight := math.Min(float64(total)/200, 1)
		llr = (Logit(calibrated) - Logit(marketPrice)) * weight
		return llr, map[string]any{"source": "isotonic", "weight": weight}
	}
	rate, count := store.RawBucketRate(marketPrice)
	weight := math.Min(float64(count)/80, 1)
	llr = (Logit(rate) - Logit(marketPrice)) * weight
	return llr, map[string]any{"source": "bucket", "weight": weight}
}

// OrderbookDepthProfile is signal 5.
func OrderbookDepthProfile(book venue.Orderbook, marketPrice float64) (llr float64, data map[string]any) {
	bidLevels := clusterByCent(book.Bids)
	askLevels := clusterByCent(book.Asks)

	var wallPrice float64
	var wallSize float64
	for price, size := range bidLevels {
		if math.Abs(price-marketPrice) > 0.05 || size < 5000 {
			continue
		}
		if size > wallSize {
			wallSize, wallPrice = size, price
		}
	}
	if wallSize == 0 {
		return 0, map[string]any{"wallFound": false}
	}
	if opposingSize, ok := askLevels[wallPrice]; ok && opposingSize >= 5000 {
		return 0, map[string]any{"wallFound": true, "opposed": true}
	}
	llr = math.Min(wallSize/20000, 1) * 0.3
	return llr, map[string]any{"wallFound": true, "wallPrice": wallPrice, "wallSize": wallSize}
}

func clusterByCent(levels []venue.Level) map[float64]float64 {
	out := make(map[float64]float64)
	for _, lvl := range levels {
		cent := math.Round(lvl.Price*100) / 100
		out[cent] += lvl.Size
	}
	return out
}

// NewsSentiment is signal 6. Included only when headlineCount > 0 and
// |avgSentiment| > 0.5.
func NewsSentiment(avgSentiment float64, headlineCount int, confidence, rawLLR float64) (llr float64, data map[string]any) {
	if headlineCount == 0 || math.Abs(avgSentiment) <= 0.5 {
		return 0, map[string]any{"included": false}
	}
	return rawLLR, map[string]any{"included": true, "confidence": confidence}
}

// BookmakerConsensus is signal 7. A market with a single bookmaker
// contributes no signal (the boundary case requires ≥2 books).
func BookmakerConsensus(consensusProb, marketPrice float64, bookmakerCount int) (llr, defaultWeight float64, data map[string]any) {
	if bookmakerCount < 2 {
		return 0, 0, map[string]any{"bookmakerCount": bookmakerCount}
	}
	llr = Logit(consensusProb) - Logit(marketPrice)
	defaultWeight = math.Min(float64(bookmakerCount)/8, 1) * 0.40
	return llr, defaultWeight, map[string]any{"bookmakerCount": bookmakerCount}
}

// sortedMidpoints returns the map's keys in ascending order. Nothing in
// the package or its tests calls it.
func sortedMidpoints(m map[float64]float64) []float64 {
	keys := make([]float64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Float64s(keys)
	return keys
}
