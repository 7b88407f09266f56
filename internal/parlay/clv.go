package parlay

import (
	"sync"
	"time"
)

// CLVRecord is one parlay's closing-line-value outcome: the change in
// implied probability between the time it was kept and the last
// observed pre-start line (spec glossary "CLV"); positive CLV is the
// long-run profitability indicator.
type CLVRecord struct {
	Legs         []Leg
	RecordedProb float64
	ClosingProb  float64
	CLV          float64
	RecordedAt   time.Time
	ClosedAt     time.Time
}

type pendingParlay struct {
	parlay     Parlay
	recordedAt time.Time
}

// CLVTracker holds kept parlays awaiting a closing-line reprice and the
// resulting CLV records — the parlay-side analogue of the
// paper-trader's open/resolved split.
type CLVTracker struct {
	mu      sync.Mutex
	pending map[string]pendingParlay // keyed by joined (eventID,sideLabel) pairs
	records []CLVRecord
}

func NewCLVTracker() *CLVTracker {
	return &CLVTracker{pending: make(map[string]pendingParlay)}
}

// Keep starts tracking a kept parlay's closing-line value.
func (t *CLVTracker) Keep(p Parlay, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[parlayKey(p)] = pendingParlay{parlay: p, recordedAt: now}
}

// Reprice re-prices every pending parlay whose legs are all present in
// latest (keyed by event ID) and whose events have all commenced,
// recording its CLV and moving it out of pending. Returns the records
// produced by this call.
func (t *CLVTracker) Reprice(latest map[string]Event, now time.Time) []CLVRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	var produced []CLVRecord
	for key, pend := range t.pending {
		closing, ok := closingProbability(pend.parlay, latest, now)
		if !ok {
			continue
		}
		rec := CLVRecord{
			Legs:         pend.parlay.Legs,
			RecordedProb: pend.parlay.TrueCombinedProb,
			ClosingProb:  closing,
			CLV:          closing - pend.parlay.TrueCombinedProb,
			RecordedAt:   pend.recordedAt,
			ClosedAt:     now,
		}
		t.records = append(t.records, rec)
		produced = append(produced, rec)
		delete(t.pending, key)
	}
	return produced
}

// Records returns every CLV record computed so far.
func (t *CLVTracker) Records() []CLVRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]CLVRecord{}, t.records...)
}

// SeedRecords restores previously persisted records on startup (spec §6
// "restore on startup"), ahead of whatever this process computes.
func (t *CLVTracker) SeedRecords(records []CLVRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(append([]CLVRecord{}, records...), t.records...)
}

// Pending reports how many kept parlays are still awaiting a closing
// line.
func (t *CLVTracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// ParlayKey exports the tracker's identity key for a parlay so callers
// can diff a freshly-selected kept set against what's already tracked
// without re-Keep()ing (and resetting the clock on) the same parlay.
func ParlayKey(p Parlay) string {
	return parlayKey(p)
}

func parlayKey(p Parlay) string {
	key := ""
	for _, leg := range p.Legs {
		key += leg.EventID + ":" + leg.SideLabel + "|"
	}
	return key
}

// closingProbability re-prices a parlay's legs against the latest odds
// once every leg's event has commenced (the pre-start line); returns
// ok=false while any leg's event is still upcoming or missing.
func closingProbability(p Parlay, latest map[string]Event, now time.Time) (float64, bool) {
	repriced := make([]Leg, 0, len(p.Legs))
	for _, leg := range p.Legs {
		ev, ok := latest[leg.EventID]
		if !ok || ev.CommenceAt.After(now) {
			return 0, false
		}
		idx := outcomeIndex(ev, leg.SideLabel)
		if idx < 0 {
			return 0, false
		}
		price := SharpProbability(ev, idx)
		if price.Prob <= 0 {
			return 0, false
		}
		closingLeg := leg
		closingLeg.TrueProb = price.Prob
		repriced = append(repriced, closingLeg)
	}
	combined, _ := CombinedProbability(repriced)
	return combined, true
}

func outcomeIndex(ev Event, label string) int {
	for i, o := range ev.Outcomes {
		if o.Label == label {
			return i
		}
	}
	return -1
}
