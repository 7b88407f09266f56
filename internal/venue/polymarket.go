package venue

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/GoPolymarket/polymarket-go-sdk/pkg/clob"
	"github.com/GoPolymarket/polymarket-go-sdk/pkg/clob/clobtypes"
	"github.com/GoPolymarket/polymarket-go-sdk/pkg/gamma"
)

// PolymarketClient adapts the polymarket-go-sdk gamma+clob clients to the
// MarketClient capability interface, normalizing Gamma's market shape into
// venue.Market the way the teacher's GammaSelector/autoSelectMarkets did.
type PolymarketClient struct {
	gamma gamma.Client
	clob  clob.Client
}

func NewPolymarketClient(gammaClient gamma.Client, clobClient clob.Client) *PolymarketClient {
	return &PolymarketClient{gamma: gammaClient, clob: clobClient}
}

func (p *PolymarketClient) ListMarkets(ctx context.Context) ([]Market, error) {
	active, closed := true, false
	raw, err := p.gamma.Markets(ctx, &gamma.MarketsRequest{
		Active: &active,
		Closed: &closed,
		Order:  "volume",
		Limit:  intPtr(500),
	})
	if err != nil {
		return nil, fmt.Errorf("polymarket: list markets: %w", err)
	}
	out := make([]Market, 0, len(raw))
	for _, m := range raw {
		mk, ok := normalizeGammaMarket(m)
		if !ok {
			continue // data-integrity failure: dropped silently per spec §4.A
		}
		out = append(out, mk)
	}
	return out, nil
}

func (p *PolymarketClient) GetMarketByID(ctx context.Context, id string) (Market, error) {
	raw, err := p.gamma.Markets(ctx, &gamma.MarketsRequest{ConditionID: id, Limit: intPtr(1)})
	if err != nil {
		return Market{}, fmt.Errorf("polymarket: get market %s: %w", id, err)
	}
	if len(raw) == 0 {
		return Market{}, fmt.Errorf("polymarket: market %s not found", id)
	}
	mk, ok := normalizeGammaMarket(raw[0])
	if !ok {
		return Market{}, fmt.Errorf("polymarket: market %s: normalization failed", id)
	}
	return mk, nil
}

func (p *PolymarketClient) GetEventBySlug(ctx context.Context, slug string) (Event, error) {
	markets, err := p.gamma.Markets(ctx, &gamma.MarketsRequest{GroupSlug: slug, Limit: intPtr(50)})
	if err != nil {
		return Event{}, fmt.Errorf("polymarket: event %s: %w", slug, err)
	}
	ev := Event{Slug: slug}
	total := 0
	for _, m := range markets {
		if mk, ok := normalizeGammaMarket(m); ok {
			ev.MarketIDs = append(ev.MarketIDs, mk.ID)
		}
		total++
	}
	ev.TotalOutcomes = total
	return ev, nil
}

func (p *PolymarketClient) GetOrderbook(ctx context.Context, tokenID string) (Orderbook, error) {
	book, err := p.clob.OrderBook(ctx, &clobtypes.BookRequest{TokenID: tokenID})
	if err != nil {
		return Orderbook{}, fmt.Errorf("polymarket: orderbook %s: %w", tokenID, err)
	}
	ob := Orderbook{TokenID: tokenID, AcquiredAt: time.Now().UTC()}
	for _, lvl := range book.Bids {
		if l, ok := parseLevel(lvl.Price, lvl.Size); ok {
			ob.Bids = append(ob.Bids, l)
		}
	}
	for _, lvl := range book.Asks {
		if l, ok := parseLevel(lvl.Price, lvl.Size); ok {
			ob.Asks = append(ob.Asks, l)
		}
	}
	if len(ob.Bids) == 0 || len(ob.Asks) == 0 {
		return Orderbook{}, fmt.Errorf("polymarket: empty orderbook %s", tokenID)
	}
	return ob, nil
}

func (p *PolymarketClient) GetPriceHistory(ctx context.Context, tokenID string, fidelity time.Duration, count int) ([]PricePoint, error) {
	resp, err := p.clob.PricesHistory(ctx, &clobtypes.PricesHistoryRequest{
		Market:      tokenID,
		FidelityMin: int(fidelity.Minutes()),
	})
	if err != nil {
		return nil, fmt.Errorf("polymarket: price history %s: %w", tokenID, err)
	}
	points := make([]PricePoint, 0, len(resp.History))
	for _, h := range resp.History {
		p, ok := parseFloat(h.Price)
		if !ok {
			continue
		}
		points = append(points, PricePoint{Timestamp: time.Unix(h.T, 0).UTC(), Price: p})
	}
	if len(points) > count {
		points = points[len(points)-count:]
	}
	return points, nil
}

// normalizeGammaMarket maps a Gamma market record onto venue.Market.
// The spec's Open Question on resolution casing is resolved here: the
// engine always upper-cases the raw resolution field.
func normalizeGammaMarket(m gamma.Market) (Market, bool) {
	if m.ConditionID == "" || len(m.ParsedTokens()) < 2 {
		return Market{}, false // missing token ids: data-integrity drop
	}
	vol, _ := parseFloat(m.Volume24hr)
	liq, _ := parseFloat(m.Liquidity)
	spread, _ := parseFloat(m.Spread)

	tokens := m.ParsedTokens()
	yesTok, noTok := tokens[0].TokenID, tokens[1].TokenID

	yesMid, noMid := 0.5, 0.5
	prices := m.ParsedOutcomePrices()
	if len(prices) >= 2 {
		if y, ok := parseFloat(prices[0]); ok {
			yesMid = y
		}
		if n, ok := parseFloat(prices[1]); ok {
			noMid = n
		}
	}

	mk := Market{
		ID:          m.ConditionID,
		ConditionID: m.ConditionID,
		Question:   m.Question,
		Slug:       m.Slug,
		Venue:      Poly,
		YesMid:     yesMid,
		NoMid:      noMid,
		YesTokenID: yesTok,
		NoTokenID:  noTok,
		Volume24h:  vol,
		Liquidity:  liq,
		Spread:     spread,
		GroupSlug:  m.GroupSlug,
		NegRisk:    m.NegRisk,
		FetchedAt:  time.Now().UTC(),
	}
	if t, err := time.Parse(time.RFC3339, m.EndDate); err == nil {
		mk.Deadline, mk.HasDeadline = t, true
	}
	if res := strings.ToUpper(strings.TrimSpace(m.Resolution)); res == "YES" || res == "NO" {
		mk.Resolution = res
	}
	return mk, true
}

func parseLevel(priceStr, sizeStr string) (Level, bool) {
	price, ok1 := parseFloat(priceStr)
	size, ok2 := parseFloat(sizeStr)
	if !ok1 || !ok2 || size <= 0 {
		return Level{}, false
	}
	return Level{Price: price, Size: size}, true
}

func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func intPtr(v int) *int { return &v }
