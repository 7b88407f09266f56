package papertrader

import (
	"sort"
	"sync"
	"time"
)

const recordDedupWindow = 180 * time.Second

// Status is the bankroll's lifecycle state.
type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusBusted Status = "BUSTED"
)

// PerformanceAggregate accumulates resolved-trade stats for a
// score-bucket or confidence-bucket, feeding the learning cycle.
type PerformanceAggregate struct {
	Wins, Losses int
	TotalPnL     float64
}

func (a PerformanceAggregate) WinRate() float64 {
	total := a.Wins + a.Losses
	if total == 0 {
		return 0
	}
	return float64(a.Wins) / float64(total)
}

// State owns the open/resolved trade lists and the simulated bankroll
// (spec §3: "the paper-trader owns both open and resolved trade lists
// and the simulated bankroll").
type State struct {
	mu sync.Mutex

	bankroll   float64
	status     Status
	open       map[string]Trade // by trade ID
	resolved   []Trade
	lastSeen   map[DedupKey]time.Time
	snapshots  map[string][]SignalSnapshot // by marketID

	winStreak, loseStreak int
	peakBankroll          float64
	maxDrawdown           float64

	byStrategyScore map[string]map[int]*PerformanceAggregate // strategy -> score-bucket(25-wide) -> agg
	byStrategy       map[string]*PerformanceAggregate
	resolutionCount  int

	learned map[string]LearnedThreshold

	maxConsecutiveLosses int
	lossCooldown         time.Duration
	cooldownUntil        time.Time

	dailyPnL float64
}

// LearnedThreshold is the self-learning output a strategy consults to
// gate low-quality opportunities (spec §4.G).
type LearnedThreshold struct {
	OptimalMinScore float64
	ProfitCutoff    float64
	SampleSize      int
	WinRate         float64
	AvgPnL          float64
}

func NewState(initialBankroll float64) *State {
	return &State{
		bankroll:         initialBankroll,
		peakBankroll:     initialBankroll,
		status:           StatusActive,
		open:             make(map[string]Trade),
		lastSeen:         make(map[DedupKey]time.Time),
		snapshots:        make(map[string][]SignalSnapshot),
		byStrategyScore:  make(map[string]map[int]*PerformanceAggregate),
		byStrategy:       make(map[string]*PerformanceAggregate),
		learned:          make(map[string]LearnedThreshold),
	}
}

// Bankroll returns the current simulated bankroll.
func (s *State) Bankroll() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bankroll
}

// Status returns the bankroll's lifecycle state.
func (s *State) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Reset clears the BUSTED state and restores an initial bankroll,
// the only way out of the absorbing state (spec §3).
func (s *State) Reset(bankroll float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bankroll = bankroll
	s.peakBankroll = bankroll
	s.status = StatusActive
}

// SetRiskPolicy configures the consecutive-loss cooldown: once loseStreak
// reaches maxLosses, Record pauses new recordings for cooldown. Additive
// over NewState so existing single-argument call sites are unaffected;
// a zero maxLosses disables the cooldown (the default).
func (s *State) SetRiskPolicy(maxLosses int, cooldown time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxConsecutiveLosses = maxLosses
	s.lossCooldown = cooldown
}

// CooldownUntil returns the time new recordings resume, zero if no
// cooldown is active.
func (s *State) CooldownUntil() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cooldownUntil
}

// DailyPnL returns the net PnL realized so far in the current UTC day
// (reporting only; the cumulative bankroll itself never resets).
func (s *State) DailyPnL() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dailyPnL
}

// ResetDaily zeroes the daily PnL counter, called once at UTC midnight
// by the engine's daily-reset timer (spec §3).
func (s *State) ResetDaily() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dailyPnL = 0
}

// ScoredOpportunity is the minimal shape Record needs from a scan
// result; avoids importing the strategy package to prevent a cycle.
type ScoredOpportunity struct {
	MarketID    string
	Strategy    string
	Side        string
	Score       float64
	Confidence  string
	RawEntry    float64
	Slip        float64
	KellySize   float64
	Signals     []SignalSnapshot
}

const recordMinScore = 25.0

// Record retains opportunities scoring ≥25 and not duplicated within the
// last 180s, enqueuing each as an OPEN trade and archiving its signal
// snapshot (spec §4.G). A no-op once BUSTED or while a consecutive-loss
// cooldown is active.
func (s *State) Record(opps []ScoredOpportunity, source Source, now time.Time) []Trade {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusBusted {
		return nil
	}
	if now.Before(s.cooldownUntil) {
		return nil
	}

	var recorded []Trade
	for _, o := range opps {
		if o.Score < recordMinScore {
			continue
		}
		key := DedupKey{MarketID: o.MarketID, Strategy: o.Strategy, Side: o.Side}
		if last, ok := s.lastSeen[key]; ok && now.Sub(last) < recordDedupWindow {
			continue
		}
		s.lastSeen[key] = now

		t := NewTrade(key, o.RawEntry, o.Slip, o.KellySize, s.bankroll, o.Score, o.Confidence, o.Strategy, o.Side, source, now)
		t.Signals = o.Signals
		s.open[t.ID] = t
		s.snapshots[o.MarketID] = o.Signals
		recorded = append(recorded, t)
	}
	return recorded
}

// OpenTrades returns a snapshot of currently open trades, oldest first,
// capped at limit for the auto-resolution loop's batch size.
func (s *State) OpenTrades(limit int) []Trade {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Trade, 0, len(s.open))
	for _, t := range s.open {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ResolveTrade settles an open trade, updates the bankroll, streaks,
// drawdown, and per-strategy aggregates, and forwards signal outcomes to
// the caller-supplied calibration callback (spec §4.G).
func (s *State) ResolveTrade(tradeID string, outcome Outcome, now time.Time, onSignal func(name string, wasCorrect bool, absLLR float64)) (Trade, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.open[tradeID]
	if !ok {
		return Trade{}, false
	}
	resolved := Resolve(t, outcome, now)
	delete(s.open, tradeID)
	s.resolved = append(s.resolved, resolved)

	s.bankroll += resolved.NetPnL
	if s.bankroll > s.peakBankroll {
		s.peakBankroll = s.bankroll
	}
	if dd := s.peakBankroll - s.bankroll; dd > s.maxDrawdown {
		s.maxDrawdown = dd
	}
	if s.bankroll <= 0 {
		s.status = StatusBusted
	}

	if resolved.NetPnL > 0 {
		s.winStreak++
		s.loseStreak = 0
	} else if resolved.NetPnL < 0 {
		s.loseStreak++
		s.winStreak = 0
	}
	if s.maxConsecutiveLosses > 0 && s.loseStreak >= s.maxConsecutiveLosses {
		s.cooldownUntil = now.Add(s.lossCooldown)
		s.loseStreak = 0
	}

	s.dailyPnL += resolved.NetPnL

	if resolved.Source == SourceBot {
		s.recordAggregate(resolved)
		s.resolutionCount++
	}

	for _, sig := range s.snapshots[resolved.MarketID] {
		wasCorrect := sig.Direction == string(outcome)
		if onSignal != nil {
			onSignal(sig.Name, wasCorrect, abs(sig.RawLLR))
		}
	}

	if resolved.Source == SourceBot && s.resolutionCount%10 == 0 {
		s.runLearningCycleLocked()
	}

	return resolved, true
}

func (s *State) recordAggregate(t Trade) {
	agg, ok := s.byStrategy[t.Strategy]
	if !ok {
		agg = &PerformanceAggregate{}
		s.byStrategy[t.Strategy] = agg
	}
	if t.NetPnL > 0 {
		agg.Wins++
	} else {
		agg.Losses++
	}
	agg.TotalPnL += t.NetPnL

	bucket := scoreBucket(t.Score)
	byScore, ok := s.byStrategyScore[t.Strategy]
	if !ok {
		byScore = make(map[int]*PerformanceAggregate)
		s.byStrategyScore[t.Strategy] = byScore
	}
	bagg, ok := byScore[bucket]
	if !ok {
		bagg = &PerformanceAggregate{}
		byScore[bucket] = bagg
	}
	if t.NetPnL > 0 {
		bagg.Wins++
	} else {
		bagg.Losses++
	}
	bagg.TotalPnL += t.NetPnL
}

const scoreBucketWidth = 25

func scoreBucket(score float64) int {
	return int(score) / scoreBucketWidth * scoreBucketWidth
}

// LearnedFor returns the strategy's current learned threshold, zero
// value if not yet computed.
func (s *State) LearnedFor(strategy string) LearnedThreshold {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.learned[strategy]
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
