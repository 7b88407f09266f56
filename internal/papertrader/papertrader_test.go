package papertrader

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestResolveMatchesPublishedScenario reproduces spec §8 scenario 5:
// entry 0.40 YES, size $10 -> shares 25; outcome YES -> gross 15, fee
// 0.30, net 14.70; bankroll $1000 -> $1014.70.
func TestResolveMatchesPublishedScenario(t *testing.T) {
	trade := Trade{
		ID:         "t1",
		Side:       "YES",
		EntryPrice: 0.40,
		Size:       10,
	}
	resolved := Resolve(trade, OutcomeYes, time.Now())
	require.InDelta(t, 15.0, resolved.GrossPnL, 1e-9)
	require.InDelta(t, 0.30, resolved.Fee, 1e-9)
	require.InDelta(t, 14.70, resolved.NetPnL, 1e-9)

	state := NewState(1000)
	state.open["t1"] = trade
	final, ok := state.ResolveTrade("t1", OutcomeYes, time.Now(), nil)
	require.True(t, ok)
	require.InDelta(t, 14.70, final.NetPnL, 1e-9)
	require.InDelta(t, 1014.70, state.Bankroll(), 1e-9)
}

func TestResolveLosingTradeChargesNoFee(t *testing.T) {
	trade := Trade{ID: "t1", Side: "YES", EntryPrice: 0.60, Size: 10}
	resolved := Resolve(trade, OutcomeNo, time.Now())
	require.Less(t, resolved.GrossPnL, 0.0)
	require.Equal(t, 0.0, resolved.Fee)
	require.Equal(t, resolved.GrossPnL, resolved.NetPnL)
}

func TestAppliedEntryPriceCapsAt99Cents(t *testing.T) {
	require.Equal(t, 0.99, AppliedEntryPrice(0.97, 0.10))
}

func TestAppliedEntryPriceMatchesScenario1Inputs(t *testing.T) {
	applied := AppliedEntryPrice(0.48, 0.004)
	require.InDelta(t, 0.48192, applied, 1e-6)
}

func TestChosenSizeUsesExposureCapWhenBelowKelly(t *testing.T) {
	size := ChosenSize(100, 1000) // kelly far exceeds 5% of bankroll
	require.Equal(t, 50.0, size)
}

func TestChosenSizeFloorsAtTenOrTwoPercent(t *testing.T) {
	size := ChosenSize(1, 1000) // kelly tiny, floor should kick in
	require.Equal(t, 10.0, size)
}

func TestChosenSizeFloorRespectsSmallBankroll(t *testing.T) {
	size := ChosenSize(1, 100) // 2% of 100 = 2, less than the $10 floor
	require.Equal(t, 2.0, size)
}

func TestRecordRejectsBelowMinScore(t *testing.T) {
	state := NewState(1000)
	opps := []ScoredOpportunity{{MarketID: "m1", Strategy: "ICT", Side: "YES", Score: 10, RawEntry: 0.5, Slip: 0.01, KellySize: 5}}
	recorded := state.Record(opps, SourceBot, time.Now())
	require.Empty(t, recorded)
}

func TestRecordDedupsWithin180Seconds(t *testing.T) {
	state := NewState(1000)
	now := time.Now()
	opp := ScoredOpportunity{MarketID: "m1", Strategy: "ICT", Side: "YES", Score: 50, RawEntry: 0.5, Slip: 0.01, KellySize: 5}

	first := state.Record([]ScoredOpportunity{opp}, SourceBot, now)
	require.Len(t, first, 1)

	second := state.Record([]ScoredOpportunity{opp}, SourceBot, now.Add(90*time.Second))
	require.Empty(t, second, "duplicate within 180s should be dropped")

	third := state.Record([]ScoredOpportunity{opp}, SourceBot, now.Add(200*time.Second))
	require.Len(t, third, 1, "after 180s the opportunity can be recorded again")
}

func TestBustedStateBlocksNewRecordsUntilReset(t *testing.T) {
	state := NewState(5)
	state.open["t1"] = Trade{ID: "t1", Side: "YES", EntryPrice: 0.90, Size: 5}
	_, ok := state.ResolveTrade("t1", OutcomeNo, time.Now(), nil)
	require.True(t, ok)
	require.Equal(t, StatusBusted, state.Status())

	opps := []ScoredOpportunity{{MarketID: "m2", Strategy: "ICT", Side: "YES", Score: 90, RawEntry: 0.5, Slip: 0.01, KellySize: 5}}
	recorded := state.Record(opps, SourceBot, time.Now())
	require.Empty(t, recorded, "BUSTED bankroll should block new records")

	state.Reset(1000)
	require.Equal(t, StatusActive, state.Status())
	recorded = state.Record(opps, SourceBot, time.Now())
	require.Len(t, recorded, 1)
}

func TestDeclareOutcomeHonorsExplicitResolution(t *testing.T) {
	outcome, settled := declareOutcome("YES", 0.50)
	require.True(t, settled)
	require.Equal(t, OutcomeYes, outcome)
}

func TestDeclareOutcomeOnMidThresholds(t *testing.T) {
	outcome, settled := declareOutcome("", 0.97)
	require.True(t, settled)
	require.Equal(t, OutcomeYes, outcome)

	outcome, settled = declareOutcome("", 0.03)
	require.True(t, settled)
	require.Equal(t, OutcomeNo, outcome)

	_, settled = declareOutcome("", 0.5)
	require.False(t, settled)
}

func TestLearningCycleComputesProfitCutoffAndOptimalScore(t *testing.T) {
	state := NewState(1000)
	now := time.Now()
	scores := []float64{80, 80, 80, 55, 55, 55, 20, 20, 20, 10}
	pnls := []float64{10, 8, 6, 4, -2, 3, -5, -6, -4, -1}

	for i := range scores {
		id := string(rune('a' + i))
		state.open[id] = Trade{ID: id, Side: "YES", EntryPrice: 0.5, Size: 10, Score: scores[i], Strategy: "ICT", Source: SourceBot}
		// seed the resolved list directly with the target netPnL, bypassing
		// ResolveTrade's payout arithmetic
		trade := state.open[id]
		trade.Resolved = true
		trade.NetPnL = pnls[i]
		trade.Outcome = OutcomeYes
		delete(state.open, id)
		state.resolved = append(state.resolved, trade)
		state.recordAggregate(trade)
		state.resolutionCount++
	}
	state.runLearningCycleLocked()

	lt := state.LearnedFor("ICT")
	require.Equal(t, 10, lt.SampleSize)
	require.Greater(t, lt.ProfitCutoff, 0.0)
	require.Equal(t, 55.0, lt.OptimalMinScore)
}

func TestResolverOnResolveFiresWithFinalTradeState(t *testing.T) {
	state := NewState(1000)
	state.open["t1"] = Trade{ID: "t1", MarketID: "m1", Side: "YES", EntryPrice: 0.40, Size: 10}

	fetch := func(ctx context.Context, marketID string) (string, float64, error) {
		return "YES", 0, nil
	}

	var fired Trade
	calls := 0
	r := NewResolver(state, fetch, nil)
	r.OnResolve(func(t Trade) {
		calls++
		fired = t
	})

	r.resolveBatch(context.Background())

	require.Equal(t, 1, calls)
	require.Equal(t, "t1", fired.ID)
	require.True(t, fired.Resolved)
	require.InDelta(t, 14.70, fired.NetPnL, 1e-9)
}

func TestResolverOnResolveSkippedWhenNotSettled(t *testing.T) {
	state := NewState(1000)
	state.open["t1"] = Trade{ID: "t1", MarketID: "m1", Side: "YES", EntryPrice: 0.40, Size: 10}

	fetch := func(ctx context.Context, marketID string) (string, float64, error) {
		return "", 0.50, nil
	}

	calls := 0
	r := NewResolver(state, fetch, nil)
	r.OnResolve(func(t Trade) { calls++ })

	r.resolveBatch(context.Background())

	require.Equal(t, 0, calls)
}

func TestConsecutiveLossCooldownPausesRecording(t *testing.T) {
	state := NewState(1000)
	state.SetRiskPolicy(2, 10*time.Minute)
	now := time.Now()

	for i, id := range []string{"t1", "t2"} {
		state.open[id] = Trade{ID: id, Side: "YES", EntryPrice: 0.90, Size: 5}
		_, ok := state.ResolveTrade(id, OutcomeNo, now.Add(time.Duration(i)*time.Second), nil)
		require.True(t, ok)
	}
	require.False(t, state.CooldownUntil().IsZero(), "cooldown should arm after 2 consecutive losses")

	opps := []ScoredOpportunity{{MarketID: "m1", Strategy: "ICT", Side: "YES", Score: 90, RawEntry: 0.5, Slip: 0.01, KellySize: 5}}
	recorded := state.Record(opps, SourceBot, now.Add(time.Minute))
	require.Empty(t, recorded, "cooldown should block new records")

	recorded = state.Record(opps, SourceBot, now.Add(11*time.Minute))
	require.Len(t, recorded, 1, "recording should resume once the cooldown elapses")
}

func TestConsecutiveLossCooldownDisabledByDefault(t *testing.T) {
	state := NewState(1000)
	now := time.Now()

	for i, id := range []string{"t1", "t2", "t3", "t4", "t5"} {
		state.open[id] = Trade{ID: id, Side: "YES", EntryPrice: 0.90, Size: 5}
		_, ok := state.ResolveTrade(id, OutcomeNo, now.Add(time.Duration(i)*time.Second), nil)
		require.True(t, ok)
	}
	require.True(t, state.CooldownUntil().IsZero(), "zero maxConsecutiveLosses must never arm a cooldown")
}

func TestDailyPnLAccumulatesAndResets(t *testing.T) {
	state := NewState(1000)
	now := time.Now()

	state.open["t1"] = Trade{ID: "t1", Side: "YES", EntryPrice: 0.40, Size: 10}
	_, ok := state.ResolveTrade("t1", OutcomeYes, now, nil)
	require.True(t, ok)
	require.InDelta(t, 14.70, state.DailyPnL(), 1e-9)

	state.open["t2"] = Trade{ID: "t2", Side: "YES", EntryPrice: 0.90, Size: 5}
	_, ok = state.ResolveTrade("t2", OutcomeNo, now, nil)
	require.True(t, ok)
	require.Less(t, state.DailyPnL(), 14.70, "a losing resolution should reduce the daily total")

	bankrollBeforeReset := state.Bankroll()
	state.ResetDaily()
	require.Zero(t, state.DailyPnL())
	require.Equal(t, bankrollBeforeReset, state.Bankroll(), "ResetDaily must not touch the cumulative bankroll")
}
