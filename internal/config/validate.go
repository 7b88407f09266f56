package config

import (
	"fmt"
	"strings"
)

// Validate checks high-impact runtime configuration constraints.
func (c Config) Validate() error {
	mode := strings.ToLower(strings.TrimSpace(c.TradingMode))
	if mode != "" && mode != "paper" && mode != "backtest" {
		return fmt.Errorf("trading_mode must be 'paper' or 'backtest', got %q", c.TradingMode)
	}

	if c.Paper.InitialBankrollUSD <= 0 {
		return fmt.Errorf("paper.initial_bankroll_usd must be > 0, got %f", c.Paper.InitialBankrollUSD)
	}
	if c.Paper.ResolutionInterval <= 0 {
		return fmt.Errorf("paper.resolution_interval must be > 0, got %s", c.Paper.ResolutionInterval)
	}
	if c.Paper.ResolutionBatch <= 0 {
		return fmt.Errorf("paper.resolution_batch must be > 0, got %d", c.Paper.ResolutionBatch)
	}
	if c.Paper.MaxConsecutiveLosses < 0 {
		return fmt.Errorf("paper.max_consecutive_losses must be >= 0, got %d", c.Paper.MaxConsecutiveLosses)
	}

	if c.Fees.FeeRate < 0 || c.Fees.FeeRate > 1 {
		return fmt.Errorf("fees.fee_rate must be within [0,1], got %f", c.Fees.FeeRate)
	}
	if c.Fees.KellyFrac <= 0 || c.Fees.KellyFrac > 1 {
		return fmt.Errorf("fees.kelly_frac must be within (0,1], got %f", c.Fees.KellyFrac)
	}

	if c.Strategy.MinScore < 0 || c.Strategy.MinScore > 100 {
		return fmt.Errorf("strategy.min_score must be within [0,100], got %f", c.Strategy.MinScore)
	}
	if c.Strategy.MaxExposurePct <= 0 || c.Strategy.MaxExposurePct > 1 {
		return fmt.Errorf("strategy.max_exposure_pct must be within (0,1], got %f", c.Strategy.MaxExposurePct)
	}
	if c.Strategy.ScanConcurrency <= 0 {
		return fmt.Errorf("strategy.scan_concurrency must be > 0, got %d", c.Strategy.ScanConcurrency)
	}

	if c.Parlay.MinLegs < 2 {
		return fmt.Errorf("parlay.min_legs must be >= 2, got %d", c.Parlay.MinLegs)
	}
	if c.Parlay.MaxLegOverlapPct <= 0 || c.Parlay.MaxLegOverlapPct > 1 {
		return fmt.Errorf("parlay.max_leg_overlap_pct must be within (0,1], got %f", c.Parlay.MaxLegOverlapPct)
	}

	return nil
}
