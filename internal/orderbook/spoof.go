package orderbook

import (
	"math"

	"github.com/GoPolymarket/polymarket-trader/internal/venue"
)

// Side identifies which side of the book a candidate order rests on.
type Side string

const (
	SideBid Side = "BID"
	SideAsk Side = "ASK"
)

// Candidate is a large resting order considered for spoof classification.
type Candidate struct {
	Side  Side
	Price float64
	Size  float64
}

// Confidence is the spoof detector's confidence that a candidate is spoofed.
type Confidence string

const (
	ConfidenceNone   Confidence = ""
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
)

// Classification is the spoof verdict for one candidate order.
type Classification struct {
	Candidate  Candidate
	Suspicious bool
	Confidence Confidence
	H          int // count of older snapshots considered
	P          int // count of older snapshots containing a match
}

// DetectSpoofing classifies every candidate order ≥ SpoofMinSize in the
// latest recorded book for tokenID against the token's snapshot history,
// and returns the aggregate spoof score (spec §4.B: 2×HIGH + MEDIUM).
func (s *Store) DetectSpoofing(tokenID string) ([]Classification, int) {
	history := s.History(tokenID)
	if len(history) == 0 {
		return nil, 0
	}
	latest := history[len(history)-1]
	older := make([]venue.Orderbook, 0, len(history)-1)
	for _, snap := range history[:len(history)-1] {
		if latest.AcquiredAt.Sub(snap.AcquiredAt) > olderThan {
			older = append(older, snap)
		}
	}

	var classifications []Classification
	score := 0
	for _, cand := range candidatesIn(latest) {
		h := len(older)
		p := 0
		for _, snap := range older {
			if matches(cand, snap) {
				p++
			}
		}
		c := Classification{Candidate: cand, H: h, P: p}
		if h >= 2 && float64(p) < 0.3*float64(h) {
			c.Suspicious = true
			if p == 0 {
				c.Confidence = ConfidenceHigh
				score += 2
			} else {
				c.Confidence = ConfidenceMedium
				score++
			}
		}
		classifications = append(classifications, c)
	}
	return classifications, score
}

func candidatesIn(book venue.Orderbook) []Candidate {
	var out []Candidate
	for _, lvl := range book.Bids {
		if lvl.Size >= SpoofMinSize {
			out = append(out, Candidate{Side: SideBid, Price: lvl.Price, Size: lvl.Size})
		}
	}
	for _, lvl := range book.Asks {
		if lvl.Size >= SpoofMinSize {
			out = append(out, Candidate{Side: SideAsk, Price: lvl.Price, Size: lvl.Size})
		}
	}
	return out
}

func matches(cand Candidate, snap venue.Orderbook) bool {
	levels := snap.Bids
	if cand.Side == SideAsk {
		levels = snap.Asks
	}
	for _, lvl := range levels {
		if math.Abs(cand.Price-lvl.Price) < 0.005 && math.Abs(cand.Size-lvl.Size)/cand.Size < 0.2 {
			return true
		}
	}
	return false
}

// CleanBook returns the latest recorded book for tokenID with suspicious
// orders removed. All downstream consumers should read this, not the raw
// latest book, per spec §4.B.
func (s *Store) CleanBook(tokenID string) (venue.Orderbook, bool) {
	latest, ok := s.Latest(tokenID)
	if !ok {
		return venue.Orderbook{}, false
	}
	classifications, _ := s.DetectSpoofing(tokenID)
	suspect := make(map[Candidate]bool, len(classifications))
	for _, c := range classifications {
		if c.Suspicious {
			suspect[c.Candidate] = true
		}
	}
	clean := venue.Orderbook{TokenID: latest.TokenID, AcquiredAt: latest.AcquiredAt}
	for _, lvl := range latest.Bids {
		if !suspect[Candidate{Side: SideBid, Price: lvl.Price, Size: lvl.Size}] {
			clean.Bids = append(clean.Bids, lvl)
		}
	}
	for _, lvl := range latest.Asks {
		if !suspect[Candidate{Side: SideAsk, Price: lvl.Price, Size: lvl.Size}] {
			clean.Asks = append(clean.Asks, lvl)
		}
	}
	return clean, true
}

// ThinMarketAssessment is the result of evaluating liquidity near the
// current price over the clean book (spec §4.B).
type ThinMarketAssessment struct {
	NearVolume       float64
	DepthScore       float64
	DiversityScore   float64
	ConfidenceFactor float64
	Thin             bool
}

const thinMarketThreshold = 3000

// AssessThinness computes the thin-market assessment for a clean book near
// currentPrice, using a ±0.05 band.
func AssessThinness(book venue.Orderbook, currentPrice float64) ThinMarketAssessment {
	lo, hi := currentPrice-0.05, currentPrice+0.05
	var nearVolume float64
	var orderCount int
	for _, lvl := range book.Bids {
		if lvl.Price >= lo && lvl.Price <= hi {
			nearVolume += lvl.Size
			orderCount++
		}
	}
	for _, lvl := range book.Asks {
		if lvl.Price >= lo && lvl.Price <= hi {
			nearVolume += lvl.Size
			orderCount++
		}
	}

	depthScore := math.Min(nearVolume/50000, 1)
	var diversityScore float64
	if orderCount < 5 {
		diversityScore = math.Min(float64(orderCount)/10, 1)
	} else {
		diversityScore = math.Min(float64(orderCount)/20, 1)
	}

	return ThinMarketAssessment{
		NearVolume:       nearVolume,
		DepthScore:       depthScore,
		DiversityScore:   diversityScore,
		ConfidenceFactor: 0.6*depthScore + 0.4*diversityScore,
		Thin:             nearVolume < thinMarketThreshold,
	}
}
