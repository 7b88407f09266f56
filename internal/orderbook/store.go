// Package orderbook keeps a short ring of recent orderbook snapshots per
// token and classifies resting orders as spoofed, the way the teacher's
// feed package keeps a single latest-book-per-asset map, generalized here
// to a short history used only by the spoof detector.
package orderbook

import (
	"sync"
	"time"

	"github.com/GoPolymarket/polymarket-trader/internal/venue"
)

const (
	ringRetention = 2 * time.Minute
	ringCapacity  = 10
	topLevels     = 20

	// SpoofMinSize is the minimum resting size a candidate order must
	// have before it is considered for spoof classification (spec §4.B).
	SpoofMinSize = 5000
	olderThan    = 5 * time.Second
)

// Store is the per-token ring of simplified books, Component B.
type Store struct {
	mu   sync.RWMutex
	ring map[string][]venue.Orderbook
}

func NewStore() *Store {
	return &Store{ring: make(map[string][]venue.Orderbook)}
}

// Record appends a simplified book (top 20 levels/side), evicting entries
// older than 2 minutes and retaining at most 10 per token.
func (s *Store) Record(ob venue.Orderbook) {
	simplified := simplify(ob)

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.ring[ob.TokenID]
	entries = append(entries, simplified)
	entries = evictStale(entries, simplified.AcquiredAt)
	if len(entries) > ringCapacity {
		entries = entries[len(entries)-ringCapacity:]
	}
	s.ring[ob.TokenID] = entries
}

func simplify(ob venue.Orderbook) venue.Orderbook {
	bids := ob.Bids
	if len(bids) > topLevels {
		bids = bids[:topLevels]
	}
	asks := ob.Asks
	if len(asks) > topLevels {
		asks = asks[:topLevels]
	}
	return venue.Orderbook{TokenID: ob.TokenID, Bids: append([]venue.Level{}, bids...), Asks: append([]venue.Level{}, asks...), AcquiredAt: ob.AcquiredAt}
}

func evictStale(entries []venue.Orderbook, now time.Time) []venue.Orderbook {
	out := entries[:0]
	for _, e := range entries {
		if now.Sub(e.AcquiredAt) <= ringRetention {
			out = append(out, e)
		}
	}
	return out
}

// Latest returns the most recent recorded book for a token.
func (s *Store) Latest(tokenID string) (venue.Orderbook, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.ring[tokenID]
	if len(entries) == 0 {
		return venue.Orderbook{}, false
	}
	return entries[len(entries)-1], true
}

// History returns every recorded book for a token, oldest first.
func (s *Store) History(tokenID string) []venue.Orderbook {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.ring[tokenID]
	out := make([]venue.Orderbook, len(entries))
	copy(out, entries)
	return out
}
