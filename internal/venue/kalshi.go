package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
)

// Kalshi has no SDK in the pack, so its REST client is hand-wired on resty
// the same way the teacher's sibling repo wires its CLOB REST client, and
// its WebSocket feed is hand-wired on gorilla/websocket with the same
// exponential-backoff reconnect loop shape.
const (
	kalshiPingInterval     = 20 * time.Second
	kalshiReadTimeout      = 60 * time.Second
	kalshiMaxReconnectWait = 30 * time.Second
)

// KalshiClient implements MarketClient against the Kalshi trade-api.
type KalshiClient struct {
	http *resty.Client
	wsURL string

	mu   sync.RWMutex
	subs map[string]bool
}

// NewKalshiClient builds a read-only Kalshi market-data client. apiKeyID and
// signer are accepted for forward compatibility with authenticated endpoints
// (order placement) that this engine, being paper-trading only, never calls.
func NewKalshiClient(baseURL, wsURL, apiKeyID string, signer func(method, path string, ts int64) string) *KalshiClient {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json")

	return &KalshiClient{http: http, wsURL: wsURL, subs: make(map[string]bool)}
}

type kalshiMarket struct {
	Ticker       string  `json:"ticker"`
	EventTicker  string  `json:"event_ticker"`
	Title        string  `json:"title"`
	YesBid       int     `json:"yes_bid"`
	YesAsk       int     `json:"yes_ask"`
	NoBid        int     `json:"no_bid"`
	NoAsk        int     `json:"no_ask"`
	Volume24h    float64 `json:"volume_24h"`
	Liquidity    float64 `json:"liquidity"`
	CloseTime    string  `json:"close_time"`
	Result       string  `json:"result"`
}

type kalshiMarketsResponse struct {
	Markets []kalshiMarket `json:"markets"`
	Cursor  string         `json:"cursor"`
}

func (k *KalshiClient) ListMarkets(ctx context.Context) ([]Market, error) {
	var result kalshiMarketsResponse
	resp, err := k.http.R().
		SetContext(ctx).
		SetQueryParam("status", "open").
		SetQueryParam("limit", "200").
		SetResult(&result).
		Get("/trade-api/v2/markets")
	if err != nil {
		return nil, fmt.Errorf("kalshi: list markets: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("kalshi: list markets: status %d", resp.StatusCode())
	}
	out := make([]Market, 0, len(result.Markets))
	for _, m := range result.Markets {
		mk, ok := normalizeKalshiMarket(m)
		if !ok {
			continue
		}
		out = append(out, mk)
	}
	return out, nil
}

func (k *KalshiClient) GetMarketByID(ctx context.Context, id string) (Market, error) {
	var wrapper struct {
		Market kalshiMarket `json:"market"`
	}
	resp, err := k.http.R().
		SetContext(ctx).
		SetResult(&wrapper).
		Get("/trade-api/v2/markets/" + id)
	if err != nil {
		return Market{}, fmt.Errorf("kalshi: market %s: %w", id, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return Market{}, fmt.Errorf("kalshi: market %s: status %d", id, resp.StatusCode())
	}
	mk, ok := normalizeKalshiMarket(wrapper.Market)
	if !ok {
		return Market{}, fmt.Errorf("kalshi: market %s: normalization failed", id)
	}
	return mk, nil
}

func (k *KalshiClient) GetEventBySlug(ctx context.Context, slug string) (Event, error) {
	var wrapper struct {
		Markets []kalshiMarket `json:"markets"`
	}
	resp, err := k.http.R().
		SetContext(ctx).
		SetQueryParam("event_ticker", slug).
		SetResult(&wrapper).
		Get("/trade-api/v2/markets")
	if err != nil {
		return Event{}, fmt.Errorf("kalshi: event %s: %w", slug, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return Event{}, fmt.Errorf("kalshi: event %s: status %d", slug, resp.StatusCode())
	}
	ev := Event{Slug: slug, TotalOutcomes: len(wrapper.Markets)}
	for _, m := range wrapper.Markets {
		if mk, ok := normalizeKalshiMarket(m); ok {
			ev.MarketIDs = append(ev.MarketIDs, mk.ID)
		}
	}
	return ev, nil
}

type kalshiBookLevel struct {
	Price int `json:"price"`
	Count int `json:"count"`
}

type kalshiOrderbookResponse struct {
	Orderbook struct {
		Yes [][2]int `json:"yes"`
		No  [][2]int `json:"no"`
	} `json:"orderbook"`
}

// GetOrderbook fetches the YES-side book for ticker, and inverts the NO
// side internally per spec §6's bid/ask inversion so callers always see
// the YES-token-shaped book, exactly as GetOrderbook callers expect from
// Polymarket.
func (k *KalshiClient) GetOrderbook(ctx context.Context, ticker string) (Orderbook, error) {
	var result kalshiOrderbookResponse
	resp, err := k.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/trade-api/v2/markets/" + ticker + "/orderbook")
	if err != nil {
		return Orderbook{}, fmt.Errorf("kalshi: orderbook %s: %w", ticker, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return Orderbook{}, fmt.Errorf("kalshi: orderbook %s: status %d", ticker, resp.StatusCode())
	}

	ob := Orderbook{TokenID: ticker, AcquiredAt: time.Now().UTC()}
	for _, lvl := range result.Orderbook.Yes {
		if lvl[1] <= 0 {
			continue
		}
		ob.Bids = append(ob.Bids, Level{Price: centsToProb(lvl[0]), Size: float64(lvl[1])})
	}
	// Kalshi reports the NO book as resting bids too; mirror them into
	// YES asks via price ↦ 1-price so Bids/Asks both describe the YES token.
	for _, lvl := range result.Orderbook.No {
		if lvl[1] <= 0 {
			continue
		}
		ob.Asks = append(ob.Asks, Level{Price: 1 - centsToProb(lvl[0]), Size: float64(lvl[1])})
	}
	if len(ob.Bids) == 0 || len(ob.Asks) == 0 {
		return Orderbook{}, fmt.Errorf("kalshi: empty orderbook %s", ticker)
	}
	return ob, nil
}

func (k *KalshiClient) GetPriceHistory(ctx context.Context, ticker string, fidelity time.Duration, count int) ([]PricePoint, error) {
	var result struct {
		History []struct {
			Ts       int64 `json:"ts"`
			YesPrice int   `json:"yes_price"`
		} `json:"history"`
	}
	resp, err := k.http.R().
		SetContext(ctx).
		SetQueryParam("period_interval", fmt.Sprintf("%d", int(fidelity.Minutes()))).
		SetResult(&result).
		Get("/trade-api/v2/markets/" + ticker + "/history")
	if err != nil {
		return nil, fmt.Errorf("kalshi: history %s: %w", ticker, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("kalshi: history %s: status %d", ticker, resp.StatusCode())
	}
	points := make([]PricePoint, 0, len(result.History))
	for _, h := range result.History {
		points = append(points, PricePoint{Timestamp: time.Unix(h.Ts, 0).UTC(), Price: centsToProb(h.YesPrice)})
	}
	if len(points) > count {
		points = points[len(points)-count:]
	}
	return points, nil
}

func normalizeKalshiMarket(m kalshiMarket) (Market, bool) {
	if m.Ticker == "" {
		return Market{}, false
	}
	mk := Market{
		ID:         m.Ticker,
		Question:   m.Title,
		Slug:       m.EventTicker,
		Venue:      Kalshi,
		YesMid:     (centsToProb(m.YesBid) + centsToProb(m.YesAsk)) / 2,
		NoMid:      (centsToProb(m.NoBid) + centsToProb(m.NoAsk)) / 2,
		YesTokenID: m.Ticker + ":YES",
		NoTokenID:  m.Ticker + ":NO",
		Volume24h:  m.Volume24h,
		Liquidity:  m.Liquidity,
		Spread:     centsToProb(m.YesAsk) - centsToProb(m.YesBid),
		GroupSlug:  m.EventTicker,
		FetchedAt:  time.Now().UTC(),
	}
	if t, err := time.Parse(time.RFC3339, m.CloseTime); err == nil {
		mk.Deadline, mk.HasDeadline = t, true
	}
	switch m.Result {
	case "yes":
		mk.Resolution = "YES"
	case "no":
		mk.Resolution = "NO"
	}
	return mk, true
}

func centsToProb(cents int) float64 {
	return float64(cents) / 100.0
}

// kalshiWSFeed maintains the Kalshi orderbook-delta WebSocket with the same
// auto-reconnect/exponential-backoff shape used for Polymarket's own feed.
type kalshiWSFeed struct {
	url string

	connMu sync.Mutex
	conn   *websocket.Conn

	subsMu sync.RWMutex
	subs   map[string]bool

	deltaCh chan kalshiBookDelta
}

type kalshiBookDelta struct {
	Ticker string
	Side   string // "yes" or "no"
	Price  int
	Delta  int
}

func newKalshiWSFeed(url string) *kalshiWSFeed {
	return &kalshiWSFeed{
		url:     url,
		subs:    make(map[string]bool),
		deltaCh: make(chan kalshiBookDelta, 256),
	}
}

func (f *kalshiWSFeed) Deltas() <-chan kalshiBookDelta { return f.deltaCh }

func (f *kalshiWSFeed) Subscribe(tickers []string) {
	f.subsMu.Lock()
	for _, t := range tickers {
		f.subs[t] = true
	}
	f.subsMu.Unlock()
}

// Run blocks, maintaining the connection until ctx is cancelled.
func (f *kalshiWSFeed) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		err := f.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("kalshi ws: disconnected, reconnecting in %s: %v", backoff, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > kalshiMaxReconnectWait {
			backoff = kalshiMaxReconnectWait
		}
	}
}

func (f *kalshiWSFeed) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	f.connMu.Lock()
	f.conn = conn
	f.connMu.Unlock()
	defer func() {
		f.connMu.Lock()
		conn.Close()
		f.conn = nil
		f.connMu.Unlock()
	}()

	f.subsMu.RLock()
	tickers := make([]string, 0, len(f.subs))
	for t := range f.subs {
		tickers = append(tickers, t)
	}
	f.subsMu.RUnlock()
	sub := map[string]any{
		"id":  1,
		"cmd": "subscribe",
		"params": map[string]any{
			"channels":        []string{"orderbook_delta"},
			"market_tickers":  tickers,
		},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	pingCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go f.pingLoop(pingCtx)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn.SetReadDeadline(time.Now().Add(kalshiReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		f.dispatch(msg)
	}
}

func (f *kalshiWSFeed) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(kalshiPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.connMu.Lock()
			conn := f.conn
			f.connMu.Unlock()
			if conn == nil {
				continue
			}
			_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		}
	}
}

func (f *kalshiWSFeed) dispatch(data []byte) {
	var envelope struct {
		Type string `json:"type"`
		Msg  struct {
			MarketTicker string `json:"market_ticker"`
			Side         string `json:"side"`
			Price        int    `json:"price"`
			Delta        int    `json:"delta"`
		} `json:"msg"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return
	}
	if envelope.Type != "orderbook_delta" {
		return
	}
	f.deltaCh <- kalshiBookDelta{
		Ticker: envelope.Msg.MarketTicker,
		Side:   envelope.Msg.Side,
		Price:  envelope.Msg.Price,
		Delta:  envelope.Msg.Delta,
	}
}
