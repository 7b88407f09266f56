package strategy

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"
)

// Bank fans a snapshot out across every registered strategy concurrently,
// bounded to the number of strategies, and flattens the results.
// Generalized from the teacher's single maker/taker pairing into an
// arbitrary-width strategy roster (`stadam23-Eve-flipper` uses errgroup
// the same way for its parallel engine scans).
type Bank struct {
	strategies []Strategy
}

func NewBank(strategies ...Strategy) *Bank {
	return &Bank{strategies: strategies}
}

// Run evaluates every strategy against snap concurrently. A strategy
// that panics on a single bad market is expected to have already
// recovered internally (spec §4.F failure policy); Run itself never
// fails the scan for a single strategy's zero-result return.
func (b *Bank) Run(ctx context.Context, snap Snapshot, bankroll float64) []Opportunity {
	results := make([][]Opportunity, len(b.strategies))

	g, _ := errgroup.WithContext(ctx)
	for i, strat := range b.strategies {
		i, strat := i, strat
		g.Go(func() error {
			results[i] = safeEvaluate(strat, snap, bankroll)
			return nil
		})
	}
	_ = g.Wait()

	var flat []Opportunity
	for _, r := range results {
		flat = append(flat, r...)
	}
	return flat
}

// safeEvaluate recovers from a strategy panic so one bad strategy never
// takes down the scan cycle.
func safeEvaluate(strat Strategy, snap Snapshot, bankroll float64) (out []Opportunity) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("strategy %s panicked: %v", strat.Name(), r)
			out = nil
		}
	}()
	return strat.Evaluate(snap, bankroll)
}
