// Package oddsapi wraps The Odds API's REST endpoints (h2h, spreads,
// totals, outrights) behind a resty client with header-based quota
// tracking and a disk cache, feeding the parlay builder's bookmaker
// odds. Grounded on `0xtitan6-polymarket-mm/internal/exchange/client.go`'s
// resty-client-plus-retry shape; quota tracking replaces that repo's
// token-bucket rate limiter since The Odds API quotes remaining calls via
// response headers rather than a fixed per-second budget.
package oddsapi

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultRegions = "us,uk"
	requestTimeout = 10 * time.Second
)

// MarketKey selects which odds markets to request.
type MarketKey string

const (
	H2H       MarketKey = "h2h"
	Spreads   MarketKey = "spreads"
	Totals    MarketKey = "totals"
	Outrights MarketKey = "outrights"
)

// Quota is the API's self-reported usage, read from
// x-requests-remaining / x-requests-used on every response.
type Quota struct {
	Remaining int
	Used      int
}

// Client is a rate-aware Odds API client.
type Client struct {
	http *resty.Client

	mu    sync.RWMutex
	quota Quota
}

func NewClient(baseURL, apiKey string) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(requestTimeout).
		SetRetryCount(2).
		SetRetryWaitTime(300*time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetQueryParam("apiKey", apiKey)

	return &Client{http: httpClient}
}

// Quota returns the most recently observed usage.
func (c *Client) Quota() Quota {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.quota
}

// Sport is one upcoming event's bookmaker odds, the shape The Odds API
// returns per market.
type Sport struct {
	ID          string       `json:"id"`
	SportKey    string       `json:"sport_key"`
	CommenceAt  time.Time    `json:"commence_time"`
	HomeTeam    string       `json:"home_team"`
	AwayTeam    string       `json:"away_team"`
	Bookmakers  []Bookmaker  `json:"bookmakers"`
}

type Bookmaker struct {
	Key        string   `json:"key"`
	Title      string   `json:"title"`
	LastUpdate time.Time `json:"last_update"`
	Markets    []Market `json:"markets"`
}

type Market struct {
	Key      string     `json:"key"`
	Outcomes []Outcome  `json:"outcomes"`
}

type Outcome struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Point float64 `json:"point,omitempty"`
}

// ListEvents fetches odds for a sport across the requested markets,
// region-filtered to us,uk per spec §9.
func (c *Client) ListEvents(ctx context.Context, sportKey string, markets []MarketKey) ([]Sport, error) {
	marketParam := joinMarkets(markets)

	var result []Sport
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("regions", defaultRegions).
		SetQueryParam("markets", marketParam).
		SetQueryParam("oddsFormat", "decimal").
		SetResult(&result).
		Get(fmt.Sprintf("/v4/sports/%s/odds", sportKey))
	if err != nil {
		return nil, fmt.Errorf("oddsapi: list events: %w", err)
	}
	c.recordQuota(resp)
	if resp.IsError() {
		return nil, fmt.Errorf("oddsapi: list events: status %d: %s", resp.StatusCode(), resp.String())
	}
	return result, nil
}

func (c *Client) recordQuota(resp *resty.Response) {
	remaining, _ := strconv.Atoi(resp.Header().Get("x-requests-remaining"))
	used, _ := strconv.Atoi(resp.Header().Get("x-requests-used"))

	c.mu.Lock()
	c.quota = Quota{Remaining: remaining, Used: used}
	c.mu.Unlock()
}

func joinMarkets(markets []MarketKey) string {
	out := ""
	for i, m := range markets {
		if i > 0 {
			out += ","
		}
		out += string(m)
	}
	return out
}
