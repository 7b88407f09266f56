package papertrader

import (
	"context"
	"errors"
	"log"
	"time"
)

const (
	resolveInterval  = 60 * time.Second
	resolveBatchSize = 15
	rateLimitBackoff = 30 * time.Second
)

// ErrRateLimited lets a MarketStateFn signal a venue-side rate limit so
// the auto-resolution loop can back off instead of hammering the venue.
var ErrRateLimited = errors.New("papertrader: venue rate limited")

// MarketStateFn asks the venue for a market's current state: explicit
// resolution if settled, else the live mid price.
type MarketStateFn func(ctx context.Context, marketID string) (resolution string, mid float64, err error)

// Resolver runs the 60s auto-resolution loop (spec §4.G): batches up to
// 15 open trades, asks the venue for each market's state, and declares
// YES/NO when resolution is explicit or mid crosses 0.95/0.05.
type Resolver struct {
	state     *State
	fetch     MarketStateFn
	onSignal  func(name string, wasCorrect bool, absLLR float64)
	onResolve func(t Trade)
}

func NewResolver(state *State, fetch MarketStateFn, onSignal func(name string, wasCorrect bool, absLLR float64)) *Resolver {
	return &Resolver{state: state, fetch: fetch, onSignal: onSignal}
}

// OnResolve registers a callback invoked with each trade's final state
// immediately after it resolves, for downstream notification/SSE fan-out.
func (r *Resolver) OnResolve(fn func(t Trade)) {
	r.onResolve = fn
}

// Run ticks every 60s until ctx is cancelled.
func (r *Resolver) Run(ctx context.Context) {
	ticker := time.NewTicker(resolveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.resolveBatch(ctx)
		}
	}
}

func (r *Resolver) resolveBatch(ctx context.Context) {
	open := r.state.OpenTrades(resolveBatchSize)
	for _, t := range open {
		resolution, mid, err := r.fetch(ctx, t.MarketID)
		if err != nil {
			if errors.Is(err, ErrRateLimited) {
				log.Printf("papertrader: resolver rate limited, backing off %s", rateLimitBackoff)
				time.Sleep(rateLimitBackoff)
				return
			}
			log.Printf("papertrader: resolve %s: %v", t.MarketID, err)
			continue
		}

		outcome, settled := declareOutcome(resolution, mid)
		if !settled {
			continue
		}
		resolved, ok := r.state.ResolveTrade(t.ID, outcome, time.Now(), r.onSignal)
		if ok && r.onResolve != nil {
			r.onResolve(resolved)
		}
	}
}

// declareOutcome implements spec §4.G's resolution rule: explicit
// resolution wins; else mid ≥ 0.95 declares YES, mid ≤ 0.05 declares NO.
func declareOutcome(resolution string, mid float64) (Outcome, bool) {
	switch resolution {
	case "YES":
		return OutcomeYes, true
	case "NO":
		return OutcomeNo, true
	}
	if mid >= 0.95 {
		return OutcomeYes, true
	}
	if mid <= 0.05 {
		return OutcomeNo, true
	}
	return "", false
}
