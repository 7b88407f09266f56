package bayes

import (
	"math"

	"github.com/GoPolymarket/polymarket-trader/internal/calibration"
)

// ConfidenceTier is the posterior's qualitative confidence bucket.
type ConfidenceTier string

const (
	High   ConfidenceTier = "HIGH"
	Medium ConfidenceTier = "MEDIUM"
	Low    ConfidenceTier = "LOW"
)

// Posterior is the engine's output (spec §3 "Posterior estimate").
type Posterior struct {
	PosteriorProb     float64
	MarketProb        float64
	Edge              float64
	ConfidenceTier    ConfidenceTier
	CredibleLower     float64
	CredibleUpper     float64
	ActiveSignalCount int
	SignalsAgree      bool
	Contributions     []Signal
}

// DefaultWeights are the base (pre-adaptation) weights per signal name, used
// until the calibration store has enough history for AdaptiveWeight to
// take over.
var DefaultWeights = map[string]float64{
	"orderbook_imbalance":  0.30,
	"timeframe_stability":  0.20,
	"time_decay":           0.15,
	"historical_calibration": 0.35,
	"orderbook_depth":      0.20,
	"news_sentiment":       0.25,
	"bookmaker_consensus":  0.40,
}

// AdaptiveWeight computes a signal's effective weight from its default
// and the calibration store's performance record for it (spec §4.C).
func AdaptiveWeight(defaultWeight float64, perf calibration.SignalPerformance) float64 {
	if perf.Total < 20 {
		return defaultWeight
	}
	w := defaultWeight * math.Max(0.3, 2*perf.Accuracy())
	if perf.DecayFlag {
		w *= math.Max(0.4, perf.DecayFactor)
	}
	if perf.RollingAccuracy() > 0.70 {
		w *= 1.15
	}
	return w
}

// EfficiencyDamper computes spec §4.C's damper from 24h volume, resting
// liquidity, and the market's detected category.
func EfficiencyDamper(vol24h, liquidity float64, category string) float64 {
	volEff := 0.55*capLog10Ratio(vol24h, 6) + 0.45*capLog10Ratio(liquidity, 5.5)
	damper := 1 - volEff*CategoryTrust(category)*0.25
	return clamp(damper, 0.78, 1.0)
}

func capLog10Ratio(v, divisor float64) float64 {
	if v <= 0 {
		return 0
	}
	r := math.Log10(v) / divisor
	if r > 1 {
		return 1
	}
	if r < 0 {
		return 0
	}
	return r
}

// Combine fuses signals (with their adaptive weights already applied as
// Signal.Weight) into a posterior estimate, given the damper and the
// total historical resolution count backing the credible interval.
func Combine(marketProb float64, signals []Signal, damper float64, totalResolutions int) Posterior {
	active := make([]Signal, 0, len(signals))
	var weightedSum float64
	for i := range signals {
		s := &signals[i]
		s.ScaledLLR = s.RawLLR * s.Weight
		if s.RawLLR == 0 {
			continue
		}
		weightedSum += s.ScaledLLR
		active = append(active, *s)
	}

	posteriorLogit := Logit(marketProb) + damper*weightedSum
	posteriorProb := Logistic(posteriorLogit)
	edge := posteriorProb - marketProb

	agree := signalsAgree(active)
	tier := confidenceTier(edge, len(active), agree)

	lower, upper := credibleInterval(posteriorProb, len(active), agree, totalResolutions)

	return Posterior{
		PosteriorProb:     posteriorProb,
		MarketProb:        marketProb,
		Edge:              edge,
		ConfidenceTier:    tier,
		CredibleLower:     lower,
		CredibleUpper:     upper,
		ActiveSignalCount: len(active),
		SignalsAgree:      agree,
		Contributions:     active,
	}
}

func signalsAgree(active []Signal) bool {
	if len(active) == 0 {
		return false
	}
	positive := active[0].ScaledLLR > 0
	for _, s := range active[1:] {
		if (s.ScaledLLR > 0) != positive {
			return false
		}
	}
	return true
}

func confidenceTier(edge float64, activeSignals int, agree bool) ConfidenceTier {
	abs := math.Abs(edge)
	switch {
	case abs >= 0.015 && activeSignals >= 3 && agree:
		return High
	case abs >= 0.008 && activeSignals >= 2:
		return Medium
	default:
		return Low
	}
}

// credibleInterval implements spec §4.C's Beta/normal approximation,
// clamped into [0.01, 0.99].
func credibleInterval(posterior float64, activeSignals int, agree bool, totalResolutions int) (lower, upper float64) {
	agreeBonus := 8.0
	if agree {
		agreeBonus = 15.0
	}
	effectiveN := 5 + float64(activeSignals)*agreeBonus + 0.1*float64(totalResolutions)

	alpha := math.Max(posterior*effectiveN, 0.5)
	beta := math.Max((1-posterior)*effectiveN, 0.5)
	n := alpha + beta
	variance := (alpha * beta) / (n * n * (n + 1))
	sd := math.Sqrt(variance)

	lower = clamp(posterior-1.96*sd, 0.01, 0.99)
	upper = clamp(posterior+1.96*sd, 0.01, 0.99)
	if lower > upper {
		lower, upper = upper, lower
	}
	return lower, upper
}
