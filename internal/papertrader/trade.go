// Package papertrader records opportunities as simulated trades, resolves
// them against real venue outcomes, and runs the self-learning cycle that
// feeds thresholds back to the strategy bank. Generalized from the
// teacher's `internal/paper/simulator.go` fill/fee/balance bookkeeping —
// kept HOW (mutex-guarded state machine, monotonic bankroll) while
// replacing WHAT (order fills become opportunity resolutions).
package papertrader

import (
	"time"

	"github.com/google/uuid"

	"github.com/GoPolymarket/polymarket-trader/internal/feeslip"
)

// Source distinguishes bot-originated trades from manually entered ones;
// manual trades are resolved but excluded from learning (spec §4.G).
type Source string

const (
	SourceBot    Source = "BOT"
	SourceManual Source = "MANUAL"
)

// Outcome is a trade's resolved side.
type Outcome string

const (
	OutcomeYes Outcome = "YES"
	OutcomeNo  Outcome = "NO"
)

// SignalSnapshot archives one contributing signal's direction at record
// time, used to score calibration/signal-accuracy feedback on
// resolution (spec §4.G).
type SignalSnapshot struct {
	Name      string
	RawLLR    float64
	Direction string // "YES" or "NO"
}

// Trade is one paper-traded opportunity, OPEN until resolved.
type Trade struct {
	ID               string
	DedupKey         DedupKey
	MarketID         string
	Strategy         string
	Side             string
	EntryPrice       float64 // applied entry, after slippage
	RawEntryPrice    float64
	AppliedSlippage  float64
	KellySize        float64
	Size             float64 // dollar size actually recorded
	Score            float64
	Confidence       string
	Source           Source
	RecordedAt       time.Time
	Signals          []SignalSnapshot

	Resolved bool
	Outcome  Outcome
	GrossPnL float64
	Fee      float64
	NetPnL   float64
	ResolvedAt time.Time
}

// DedupKey identifies an opportunity's identity across a scan and the
// 180s recording window.
type DedupKey struct {
	MarketID string
	Strategy string
	Side     string
}

// NewTrade materializes a trade from a scored opportunity, applying
// entry-price slippage and the two-floor size rule (spec §4.G).
func NewTrade(key DedupKey, rawEntry, slip, kellySize, bankroll float64, score float64, confidence string, strategy, side string, source Source, now time.Time) Trade {
	applied := AppliedEntryPrice(rawEntry, slip)
	size := ChosenSize(kellySize, bankroll)
	return Trade{
		ID:              uuid.NewString(),
		DedupKey:        key,
		MarketID:        key.MarketID,
		Strategy:        strategy,
		Side:            side,
		EntryPrice:      applied,
		RawEntryPrice:   rawEntry,
		AppliedSlippage: slip,
		KellySize:       kellySize,
		Size:            size,
		Score:           score,
		Confidence:      confidence,
		Source:          source,
		RecordedAt:      now,
	}
}

const entryPriceCap = 0.99

// AppliedEntryPrice is min(0.99, rawEntry·(1+slip)) per spec §4.G.
func AppliedEntryPrice(rawEntry, slip float64) float64 {
	applied := rawEntry * (1 + slip)
	if applied > entryPriceCap {
		return entryPriceCap
	}
	return applied
}

const (
	chosenSizeExposureFrac = 0.05
	floorSizeAbsolute      = 10.0
	floorSizeExposureFrac  = 0.02
)

// ChosenSize is min(kelly, 0.05·bankroll) with a floor of
// min(10, 0.02·bankroll), per spec §4.G.
func ChosenSize(kellySize, bankroll float64) float64 {
	capped := kellySize
	if exposureCap := chosenSizeExposureFrac * bankroll; capped > exposureCap {
		capped = exposureCap
	}
	floor := floorSizeAbsolute
	if exposureFloor := floorSizeExposureFrac * bankroll; exposureFloor < floor {
		floor = exposureFloor
	}
	if capped < floor {
		return feeslip.RoundCents(floor)
	}
	return feeslip.RoundCents(capped)
}

const feeRate = 0.02

// Resolve settles a trade against its realized outcome: shares =
// size/entry, grossPnL = (payout-entry)·shares, fee = max(0,
// FEE·grossPnL), netPnL = gross-fee (spec §4.G, §8 scenario 5).
func Resolve(t Trade, outcome Outcome, now time.Time) Trade {
	payout := 0.0
	if (t.Side == "YES" && outcome == OutcomeYes) || (t.Side == "NO" && outcome == OutcomeNo) {
		payout = 1.0
	}
	shares := t.Size / t.EntryPrice
	gross := (payout - t.EntryPrice) * shares
	fee := 0.0
	if gross > 0 {
		fee = feeRate * gross
	}
	net := gross - fee

	t.Resolved = true
	t.Outcome = outcome
	t.GrossPnL = feeslip.RoundCents(gross)
	t.Fee = feeslip.RoundCents(fee)
	t.NetPnL = feeslip.RoundCents(net)
	t.ResolvedAt = now
	return t
}
