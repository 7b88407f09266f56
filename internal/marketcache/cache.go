// Package marketcache holds the engine's view of all tracked markets: a
// periodically refreshed, read-mostly snapshot of every market the scan
// orchestrator considers on a cycle.
package marketcache

import (
	"context"
	"log"
	"sort"
	"sync/atomic"

	"github.com/GoPolymarket/polymarket-trader/internal/venue"
)

// snapshot is the immutable state swapped atomically on each refresh (spec
// §9 "lock-free reads via atomic snapshot pointer") — mirrors the teacher's
// feed.BookSnapshot, generalized from a single per-asset book map to a
// whole-cache snapshot.
type snapshot struct {
	byID map[string]venue.Market
	all  []venue.Market
}

// Cache is the market-data cache, Component A. A single writer calls
// Refresh; any number of readers call the accessor methods concurrently
// without blocking the writer.
type Cache struct {
	clients []venue.MarketClient
	ptr     atomic.Pointer[snapshot]
}

func New(clients ...venue.MarketClient) *Cache {
	c := &Cache{clients: clients}
	c.ptr.Store(&snapshot{byID: make(map[string]venue.Market)})
	return c
}

// Refresh fetches from every venue client and normalizes into the new
// snapshot, returning the count retained. Normalization failures are
// silently dropped (logged, not fatal) per spec §4.A.
func (c *Cache) Refresh(ctx context.Context) (int, error) {
	next := &snapshot{byID: make(map[string]venue.Market)}
	for _, cl := range c.clients {
		markets, err := cl.ListMarkets(ctx)
		if err != nil {
			log.Printf("marketcache: refresh: venue client failed: %v", err)
			continue
		}
		for _, m := range markets {
			if !validMarket(m) {
				log.Printf("marketcache: dropping invalid market %q", m.ID)
				continue
			}
			next.byID[m.ID] = m
		}
	}
	next.all = make([]venue.Market, 0, len(next.byID))
	for _, m := range next.byID {
		next.all = append(next.all, m)
	}
	c.ptr.Store(next)
	return len(next.all), nil
}

func validMarket(m venue.Market) bool {
	if m.ID == "" || m.YesTokenID == "" || m.NoTokenID == "" {
		return false
	}
	if m.YesMid < 0 || m.YesMid > 1 {
		return false
	}
	return true
}

// ByID returns the current snapshot of a single market.
func (c *Cache) ByID(id string) (venue.Market, bool) {
	snap := c.ptr.Load()
	m, ok := snap.byID[id]
	return m, ok
}

// All returns every market in the current snapshot.
func (c *Cache) All() []venue.Market {
	snap := c.ptr.Load()
	out := make([]venue.Market, len(snap.all))
	copy(out, snap.all)
	return out
}

// TopByVolume returns the n highest-24h-volume markets.
func (c *Cache) TopByVolume(n int) []venue.Market {
	return topBy(c.All(), n, func(m venue.Market) float64 { return m.Volume24h })
}

// TopByLiquidity returns the n highest-liquidity markets.
func (c *Cache) TopByLiquidity(n int) []venue.Market {
	return topBy(c.All(), n, func(m venue.Market) float64 { return m.Liquidity })
}

func topBy(markets []venue.Market, n int, key func(venue.Market) float64) []venue.Market {
	sort.Slice(markets, func(i, j int) bool { return key(markets[i]) > key(markets[j]) })
	if n > len(markets) {
		n = len(markets)
	}
	return markets[:n]
}
