// Package scan runs the periodic scan cycle: refresh market data, fan
// out across the strategy bank, dedup and rank opportunities, apply the
// persistence tracker, and hand the top results to the paper-trader.
// Grounded on the teacher's `internal/app/app.go` ticker-driven select
// loop, generalized from a single maker/taker tick to a multi-strategy
// scan.
package scan

import (
	"context"
	"log"
	"sort"
	"sync/atomic"
	"time"

	"github.com/GoPolymarket/polymarket-trader/internal/marketcache"
	"github.com/GoPolymarket/polymarket-trader/internal/orderbook"
	"github.com/GoPolymarket/polymarket-trader/internal/persistence"
	"github.com/GoPolymarket/polymarket-trader/internal/strategy"
)

const defaultInterval = 60 * time.Second

// SnapshotBuilder assembles a strategy.Snapshot from the current market
// cache and orderbook store state. Left to the caller so the
// orchestrator stays decoupled from bookmaker-odds/news wiring.
type SnapshotBuilder func(cache *marketcache.Cache, books *orderbook.Store) strategy.Snapshot

// TradeSink receives the top-N ranked opportunities for paper-trading.
type TradeSink func(ctx context.Context, opps []strategy.Opportunity)

// Orchestrator runs one non-reentrant scan cycle on a ticker (spec §4.J).
type Orchestrator struct {
	cache    *marketcache.Cache
	books    *orderbook.Store
	bank     *strategy.Bank
	tracker  *persistence.Tracker
	build    SnapshotBuilder
	sink     TradeSink
	interval time.Duration
	topN     int

	running atomic.Bool
}

func New(cache *marketcache.Cache, books *orderbook.Store, bank *strategy.Bank, tracker *persistence.Tracker, build SnapshotBuilder, sink TradeSink, interval time.Duration, topN int) *Orchestrator {
	if interval <= 0 {
		interval = defaultInterval
	}
	if topN <= 0 {
		topN = 20
	}
	return &Orchestrator{
		cache:    cache,
		books:    books,
		bank:     bank,
		tracker:  tracker,
		build:    build,
		sink:     sink,
		interval: interval,
		topN:     topN,
	}
}

// Run ticks at the configured interval until ctx is cancelled. A tick
// that arrives while a scan is still running is dropped (spec §4.J).
func (o *Orchestrator) Run(ctx context.Context, bankroll func() float64) {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !o.running.CompareAndSwap(false, true) {
				log.Printf("scan: tick dropped, previous scan still running")
				continue
			}
			o.tick(ctx, bankroll())
			o.running.Store(false)
		}
	}
}

func (o *Orchestrator) tick(ctx context.Context, bankroll float64) {
	if _, err := o.cache.Refresh(ctx); err != nil {
		log.Printf("scan: market cache refresh: %v", err)
	}

	snap := o.build(o.cache, o.books)
	raw := o.bank.Run(ctx, snap, bankroll)

	deduped := dedupByMarketAndStrategy(raw)
	ranked := rank(deduped)

	now := time.Now()
	for i, opp := range ranked {
		key := persistence.Key{MarketID: opp.MarketID, Strategy: opp.Strategy, Side: string(opp.Side)}
		boost := o.tracker.Observe(key, int(opp.Score), now)
		ranked[i].Score = float64(boost.Score)
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	top := ranked
	if len(top) > o.topN {
		top = top[:o.topN]
	}
	if o.sink != nil {
		o.sink(ctx, top)
	}
}

// dedupByMarketAndStrategy keeps the highest-score instance per
// (marketId, strategy) pair (spec §4.J step 3). Side is not part of the
// dedup key here because a single strategy never emits conflicting
// sides for the same market in one scan.
func dedupByMarketAndStrategy(opps []strategy.Opportunity) []strategy.Opportunity {
	best := make(map[string]strategy.Opportunity)
	for _, o := range opps {
		key := o.MarketID + "|" + o.Strategy
		if existing, ok := best[key]; !ok || o.Score > existing.Score {
			best[key] = o
		}
	}
	out := make([]strategy.Opportunity, 0, len(best))
	for _, o := range best {
		out = append(out, o)
	}
	return out
}

func rank(opps []strategy.Opportunity) []strategy.Opportunity {
	sort.SliceStable(opps, func(i, j int) bool { return opps[i].Score > opps[j].Score })
	return opps
}
