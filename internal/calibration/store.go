// Package calibration tracks how well past probability estimates matched
// resolved outcomes, and turns that history into an isotonic calibration
// map and per-signal accuracy records consumed by the Bayesian engine.
package calibration

import (
	"math"
	"sort"
	"sync"
)

const (
	bucketWidth        = 0.025 // 2.5% slices
	bucketCount        = 40
	minBucketSamples   = 5
	retrainEvery       = 25
	decayCheckEvery    = 10
	rollingWindowLimit = 30
)

// Bucket tracks resolution outcomes for one 2.5% price slice.
type Bucket struct {
	Count       int
	ResolvedYes int
}

// SignalOutcome is the matchedness/edge of one signal on one resolution,
// reported by the caller when a resolution is recorded.
type SignalOutcome struct {
	Name           string
	WasCorrect     bool
	EdgeContribution float64
}

// SignalPerformance is the running accuracy record for one named signal.
type SignalPerformance struct {
	Correct        int
	Total          int
	SumEdgeContrib float64
	RollingWindow  []bool // most recent outcomes, correct=true; capped at 30
	DecayFlag      bool
	DecayFactor    float64
}

// Accuracy is all-time correct/total, or 0 when there is no history.
func (r SignalPerformance) Accuracy() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Total)
}

// RollingAccuracy is the accuracy over the rolling window, or 0 when the
// window hasn't reached 10 outcomes.
func (r SignalPerformance) RollingAccuracy() float64 {
	if len(r.RollingWindow) < 10 {
		return 0
	}
	correct := 0
	for _, ok := range r.RollingWindow {
		if ok {
			correct++
		}
	}
	return float64(correct) / float64(len(r.RollingWindow))
}

// Store is the calibration store, Component D. A single writer (the
// resolution task) mutates it; estimation reads a consistent snapshot.
type Store struct {
	mu                sync.RWMutex
	buckets           [bucketCount]Bucket
	isotonic          []isotonicPoint // nil until ≥3 eligible buckets
	signals           map[string]*SignalPerformance
	totalResolutions  int
}

func NewStore() *Store {
	return &Store{signals: make(map[string]*SignalPerformance)}
}

func bucketIndex(p float64) int {
	if p < 0 {
		p = 0
	}
	if p > 0.999999 {
		p = 0.999999
	}
	idx := int(math.Floor(p * bucketCount))
	if idx >= bucketCount {
		idx = bucketCount - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

func bucketMidpoint(idx int) float64 {
	return float64(idx)*bucketWidth + bucketWidth/2
}

// RecordResolution writes one resolution: the market price at time of
// estimation, whether the outcome was YES, and the per-signal
// correctness/edge contributions observed.
func (s *Store) RecordResolution(marketPrice float64, outcomeYes bool, signals []SignalOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := bucketIndex(marketPrice)
	s.buckets[idx].Count++
	if outcomeYes {
		s.buckets[idx].ResolvedYes++
	}
	s.totalResolutions++

	for _, so := range signals {
		perf, ok := s.signals[so.Name]
		if !ok {
			perf = &SignalPerformance{DecayFactor: 1}
			s.signals[so.Name] = perf
		}
		perf.Total++
		if so.WasCorrect {
			perf.Correct++
		}
		perf.SumEdgeContrib += so.EdgeContribution
		perf.RollingWindow = append(perf.RollingWindow, so.WasCorrect)
		if len(perf.RollingWindow) > rollingWindowLimit {
			perf.RollingWindow = perf.RollingWindow[len(perf.RollingWindow)-rollingWindowLimit:]
		}
	}

	if s.totalResolutions%retrainEvery == 0 {
		s.retrainIsotonicLocked()
	}
	if s.totalResolutions%decayCheckEvery == 0 {
		s.detectDecayLocked()
	}
}

func (s *Store) detectDecayLocked() {
	for _, perf := range s.signals {
		if len(perf.RollingWindow) < 10 {
			continue
		}
		a := perf.Accuracy()
		r := perf.RollingAccuracy()
		perf.DecayFlag = a > 0 && r < 0.85*a
		if perf.DecayFlag {
			denom := math.Max(a, 0.01)
			perf.DecayFactor = r / denom
		} else {
			perf.DecayFactor = 1
		}
	}
}

// SignalPerformanceFor returns a copy of the performance record for a
// signal, or the zero value (DecayFactor 1) if none exists yet.
func (s *Store) SignalPerformanceFor(name string) SignalPerformance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if perf, ok := s.signals[name]; ok {
		return *perf
	}
	return SignalPerformance{DecayFactor: 1}
}

// TotalResolutions returns the all-time resolution count.
func (s *Store) TotalResolutions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalResolutions
}

// BucketFor returns a copy of the bucket covering price p.
func (s *Store) BucketFor(p float64) Bucket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buckets[bucketIndex(p)]
}

// RawBucketRate returns the resolved-YES rate for the bucket covering p,
// and the bucket's sample count, used as the calibration fallback.
func (s *Store) RawBucketRate(p float64) (rate float64, count int) {
	b := s.BucketFor(p)
	if b.Count == 0 {
		return p, 0
	}
	return float64(b.ResolvedYes) / float64(b.Count), b.Count
}

type isotonicPoint struct {
	midpoint float64
	value    float64
}

// IsotonicLookup returns the calibrated probability for p by linear
// interpolation between adjacent isotonic segments, and the total sample
// count backing the map. ok is false until the map has been trained.
func (s *Store) IsotonicLookup(p float64) (value float64, totalSamples int, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.isotonic) == 0 {
		return 0, 0, false
	}
	totalSamples = 0
	for i := 0; i < bucketCount; i++ {
		totalSamples += s.buckets[i].Count
	}

	pts := s.isotonic
	if p <= pts[0].midpoint {
		return pts[0].value, totalSamples, true
	}
	if p >= pts[len(pts)-1].midpoint {
		return pts[len(pts)-1].value, totalSamples, true
	}
	for i := 0; i < len(pts)-1; i++ {
		if p >= pts[i].midpoint && p <= pts[i+1].midpoint {
			span := pts[i+1].midpoint - pts[i].midpoint
			if span == 0 {
				return pts[i].value, totalSamples, true
			}
			t := (p - pts[i].midpoint) / span
			return pts[i].value + t*(pts[i+1].value-pts[i].value), totalSamples, true
		}
	}
	return pts[len(pts)-1].value, totalSamples, true
}

// retrainIsotonicLocked runs PAVA over buckets with ≥5 samples. Null (no
// map) until ≥3 such buckets exist. Caller must hold s.mu.
func (s *Store) retrainIsotonicLocked() {
	type block struct {
		midpoints []float64
		sum       float64
		count     int
	}
	var blocks []block
	for i := 0; i < bucketCount; i++ {
		b := s.buckets[i]
		if b.Count < minBucketSamples {
			continue
		}
		rate := float64(b.ResolvedYes) / float64(b.Count)
		blocks = append(blocks, block{
			midpoints: []float64{bucketMidpoint(i)},
			sum:       rate,
			count:     1,
		})
	}
	if len(blocks) < 3 {
		s.isotonic = nil
		return
	}

	// Pool-Adjacent-Violators: merge adjacent blocks whose averages
	// violate monotonicity until none remain.
	for {
		violation := -1
		for i := 0; i < len(blocks)-1; i++ {
			if blocks[i].sum/float64(blocks[i].count) > blocks[i+1].sum/float64(blocks[i+1].count) {
				violation = i
				break
			}
		}
		if violation == -1 {
			break
		}
		merged := block{
			midpoints: append(blocks[violation].midpoints, blocks[violation+1].midpoints...),
			sum:       blocks[violation].sum + blocks[violation+1].sum,
			count:     blocks[violation].count + blocks[violation+1].count,
		}
		blocks = append(blocks[:violation], append([]block{merged}, blocks[violation+2:]...)...)
	}

	points := make([]isotonicPoint, 0, len(blocks))
	for _, b := range blocks {
		avgMid := 0.0
		for _, m := range b.midpoints {
			avgMid += m
		}
		avgMid /= float64(len(b.midpoints))
		points = append(points, isotonicPoint{midpoint: avgMid, value: b.sum / float64(b.count)})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].midpoint < points[j].midpoint })
	s.isotonic = points
}
