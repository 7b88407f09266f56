// Package venue defines the normalized market/orderbook shapes this engine
// consumes from prediction-market venues (Polymarket, Kalshi) and the
// narrow client interfaces each venue adapter implements.
package venue

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Tag identifies which venue a market record came from.
type Tag string

const (
	Poly   Tag = "POLY"
	Kalshi Tag = "KALSHI"
)

// Market is the normalized, immutable-per-scan market snapshot (spec §3).
type Market struct {
	ID            string
	ConditionID   string // Gnosis Conditional Tokens conditionId, hex-encoded
	Question      string
	Slug          string
	Venue         Tag
	YesMid        float64
	NoMid         float64
	YesTokenID    string
	NoTokenID     string
	Volume24h     float64
	Liquidity     float64
	Spread        float64
	GroupSlug     string
	NegRisk       bool
	Deadline      time.Time
	HasDeadline   bool
	Resolution    string // "", "YES", "NO"
	FetchedAt     time.Time
}

// ConditionHash parses Market.ConditionID as a 32-byte Gnosis
// Conditional Tokens condition ID, returning ok=false when it isn't
// valid hex. It gives a canonical identity across markets (a Polymarket
// market and its mirrored group sub-markets can share a conditionId even
// when their IDs differ), the same typed-address idiom the teacher used
// in its portfolio tracker for wallet addresses. No dedup path in the
// engine calls it; dedup keys on market ID.
func (m Market) ConditionHash() (common.Hash, bool) {
	if !common.IsHex(m.ConditionID) || len(m.ConditionID) != 66 {
		return common.Hash{}, false
	}
	return common.HexToHash(m.ConditionID), true
}

// PricePoint is a single point in a token's price history.
type PricePoint struct {
	Timestamp time.Time
	Price     float64
}

// Level is one side of an orderbook: a resting price/size pair.
type Level struct {
	Price float64
	Size  float64
}

// Orderbook is an immutable-per-timestamp snapshot for one token.
type Orderbook struct {
	TokenID    string
	Bids       []Level // price descending
	Asks       []Level // price ascending
	AcquiredAt time.Time
}

// Stale reports whether the book is older than the given threshold.
func (o Orderbook) Stale(threshold time.Duration, now time.Time) bool {
	return now.Sub(o.AcquiredAt) > threshold
}

// Invert mirrors a YES-side book into the corresponding NO-side book:
// price ↦ 1-price, bids and asks swap.
func (o Orderbook) Invert() Orderbook {
	bids := make([]Level, len(o.Asks))
	for i, lvl := range o.Asks {
		bids[i] = Level{Price: 1 - lvl.Price, Size: lvl.Size}
	}
	asks := make([]Level, len(o.Bids))
	for i, lvl := range o.Bids {
		asks[i] = Level{Price: 1 - lvl.Price, Size: lvl.Size}
	}
	return Orderbook{TokenID: o.TokenID, Bids: bids, Asks: asks, AcquiredAt: o.AcquiredAt}
}

// Event is a normalized venue event grouping related markets for group
// (logic) arbitrage — e.g. a Polymarket "who will win" negRisk event.
type Event struct {
	Slug           string
	MarketIDs      []string
	TotalOutcomes  int
}
