package venue

import (
	"context"
	"time"
)

// MarketClient is the narrow capability the market-data cache needs from
// any venue. Concrete adapters (Polymarket, Kalshi) implement it; strategies
// and the cache depend on this interface only, never on a concrete SDK
// client (spec §9 "narrow capability interfaces").
type MarketClient interface {
	ListMarkets(ctx context.Context) ([]Market, error)
	GetMarketByID(ctx context.Context, id string) (Market, error)
	GetEventBySlug(ctx context.Context, slug string) (Event, error)
	GetOrderbook(ctx context.Context, tokenID string) (Orderbook, error)
	GetPriceHistory(ctx context.Context, tokenID string, fidelity time.Duration, count int) ([]PricePoint, error)
}

// ResolutionClient is consulted by the paper-trader auto-resolution loop.
type ResolutionClient interface {
	GetMarketByID(ctx context.Context, id string) (Market, error)
}
