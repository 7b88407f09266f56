// Package feeslip computes fee-adjusted expected value, slippage, and
// fractional-Kelly position sizing for a single opportunity, the way the
// teacher's risk manager computed exposure limits — generalized here from
// a position-cap check into the full stake-sizing arithmetic.
package feeslip

import (
	"math"

	"github.com/shopspring/decimal"
)

// DefaultFeeRate is applied only on the winning payout (spec §4.E).
const DefaultFeeRate = 0.02

// DefaultKellyFrac is the fractional-Kelly multiplier used absent an
// override (spec §4.E).
const DefaultKellyFrac = 0.25

// Slippage models the price impact of a given size against resting
// liquidity: `0.003 + 0.5 * (size/liquidity)`, or 0.009 when liquidity
// is zero.
func Slippage(size, liquidity float64) float64 {
	if liquidity <= 0 {
		return 0.009
	}
	return 0.003 + 0.5*(size/liquidity)
}

// NetEV is the expected value per unit stake at entry price p with true
// win probability q, fee rate applied only to the winning payout.
func NetEV(p, q, slip, feeRate float64) float64 {
	return q*(1-p)*(1-feeRate) - (1-q)*p - slip
}

// BreakEvenProb is the true win probability at which NetEV is exactly
// zero for the given entry price, slippage, and fee rate.
func BreakEvenProb(p, slip, feeRate float64) float64 {
	return (p + slip) / ((1-p)*(1-feeRate) + p)
}

// FractionalKelly computes f* = (b*q - (1-q))/b where
// b = (1/p - 1)*(1-feeRate). Returns 0 when the computed fraction is
// non-positive (spec boundary behaviour).
func FractionalKelly(p, q, feeRate float64) float64 {
	if p <= 0 || p >= 1 {
		return 0
	}
	b := (1/p - 1) * (1 - feeRate)
	if b <= 0 {
		return 0
	}
	f := (b*q - (1 - q)) / b
	if f <= 0 {
		return 0
	}
	return f
}

// StakeParams bundles the inputs StakeSize needs beyond the Kelly
// fraction itself.
type StakeParams struct {
	Bankroll     float64
	Liquidity    float64
	MaxExposure  float64 // fraction of bankroll, e.g. 0.05
	KellyFrac    float64 // fractional-Kelly multiplier, e.g. 0.25
}

// StakeSize clamps the raw Kelly fraction into a dollar stake:
// min(f*·kFrac·bankroll, maxExposure·bankroll, 0.05·liquidity), floored
// at 0.
func StakeSize(kellyFraction float64, params StakeParams) float64 {
	if kellyFraction <= 0 {
		return 0
	}
	kellyFrac := params.KellyFrac
	if kellyFrac <= 0 {
		kellyFrac = DefaultKellyFrac
	}
	byKelly := kellyFraction * kellyFrac * params.Bankroll
	byExposure := params.MaxExposure * params.Bankroll
	byLiquidity := 0.05 * params.Liquidity

	stake := math.Min(byKelly, math.Min(byExposure, byLiquidity))
	if stake < 0 {
		return 0
	}
	return RoundCents(stake)
}

// RoundCents rounds a dollar amount to the nearest cent using
// decimal.Decimal rather than float64 rounding, so the stake and PnL
// figures that reach a ledger or a notification never carry binary
// floating-point fractions of a cent.
func RoundCents(amount float64) float64 {
	d := decimal.NewFromFloat(amount).Round(2)
	f, _ := d.Float64()
	return f
}
