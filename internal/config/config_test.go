package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidateRejectsBadTradingMode(t *testing.T) {
	cfg := Default()
	cfg.TradingMode = "live"
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsBadKellyFrac(t *testing.T) {
	cfg := Default()
	cfg.Fees.KellyFrac = 0
	require.Error(t, cfg.Validate())
	cfg.Fees.KellyFrac = 1.5
	require.Error(t, cfg.Validate())
}

func TestApplyEnvOverridesTradingMode(t *testing.T) {
	t.Setenv("TRADER_TRADING_MODE", "BACKTEST")
	cfg := Default()
	cfg.ApplyEnv()
	require.Equal(t, "backtest", cfg.TradingMode)
}
