// Package newsfeed wraps the News-API REST collaborator that feeds the
// Bayesian engine's news-sentiment signal: {avgSentiment, headlineCount,
// confidence, LLR, headlines}, optionally absent for a given market
// (spec §4.C signal 6). Grounded on
// `0xtitan6-polymarket-mm/internal/exchange/client.go`'s resty-client
// shape, same as `internal/oddsapi`.
package newsfeed

import (
	"context"
	"fmt"
	"time"

	"github.com/GoPolymarket/polymarket-go-sdk/pkg/rtds"
	"github.com/go-resty/resty/v2"
)

const requestTimeout = 8 * time.Second

// Sentiment is the news-sentiment collaborator's response shape (spec
// §4.C / §9 "News sentiment").
type Sentiment struct {
	AvgSentiment  float64
	HeadlineCount int
	Confidence    float64
	LLR           float64
	Headlines     []string
}

// Client is a News-API REST adapter.
type Client struct {
	http *resty.Client
}

func NewClient(baseURL, apiKey string) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(requestTimeout).
		SetRetryCount(2).
		SetRetryWaitTime(300*time.Millisecond).
		SetQueryParam("apiKey", apiKey)
	return &Client{http: httpClient}
}

type headlineResponse struct {
	Articles []struct {
		Title       string  `json:"title"`
		SentimentRaw float64 `json:"sentiment"`
	} `json:"articles"`
}

// Sentiment fetches and scores headlines for a query (typically the
// market question or its key terms), returning ok=false when no
// headlines were found — the caller must then exclude this signal per
// spec §4.C.
func (c *Client) Sentiment(ctx context.Context, query string) (Sentiment, bool, error) {
	var resp headlineResponse
	r, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("q", query).
		SetQueryParam("sortBy", "publishedAt").
		SetResult(&resp).
		Get("/v2/everything")
	if err != nil {
		return Sentiment{}, false, fmt.Errorf("newsfeed: sentiment %q: %w", query, err)
	}
	if r.IsError() {
		return Sentiment{}, false, fmt.Errorf("newsfeed: sentiment %q: status %d", query, r.StatusCode())
	}
	if len(resp.Articles) == 0 {
		return Sentiment{}, false, nil
	}

	var sum float64
	headlines := make([]string, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		sum += a.SentimentRaw
		headlines = append(headlines, a.Title)
	}
	avg := sum / float64(len(resp.Articles))

	return Sentiment{
		AvgSentiment:  avg,
		HeadlineCount: len(resp.Articles),
		Confidence:    confidenceFromCount(len(resp.Articles)),
		LLR:           llrFromSentiment(avg),
		Headlines:     headlines,
	}, true, nil
}

// confidenceFromCount scales 0..1 with headline volume, saturating at
// 10 headlines — a thin sample shouldn't carry the same weight as a
// heavily covered story.
func confidenceFromCount(n int) float64 {
	c := float64(n) / 10
	if c > 1 {
		return 1
	}
	return c
}

// llrFromSentiment maps average sentiment linearly onto log-odds, scaled
// by a fixed factor so a maximally positive/negative average sentiment
// contributes a ±1.5 LLR, in the same range as the engine's other
// signals. The engine uses this LLR directly as the sentiment signal's
// rawLLR (SPEC_FULL §4).
func llrFromSentiment(avg float64) float64 {
	return avg * 1.5
}

// PriceMover is a push notification used as a proxy trigger to refetch
// sentiment for a symbol whose price just moved meaningfully — SDK's
// RTDS crypto feed, repurposed here from a trading signal into a
// "something changed, go re-poll the news" hint (SPEC_FULL §2 domain
// stack note on `rtds`).
type PriceMover struct {
	Symbol string
	Price  float64
	At     time.Time
}

// Watcher subscribes to RTDS crypto price pushes and forwards them as
// PriceMover hints, optional and absent when no RTDS client is wired.
type Watcher struct {
	rtds rtds.Client
}

func NewWatcher(client rtds.Client) *Watcher {
	return &Watcher{rtds: client}
}

// Watch subscribes to the given symbols and forwards every push as a
// PriceMover hint until ctx is cancelled.
func (w *Watcher) Watch(ctx context.Context, symbols []string, onMove func(PriceMover)) error {
	if w.rtds == nil || len(symbols) == 0 {
		return nil
	}
	ch, err := w.rtds.SubscribeCryptoPrices(ctx, symbols)
	if err != nil {
		return fmt.Errorf("newsfeed: rtds subscribe: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			price, _ := ev.Value.Float64()
			onMove(PriceMover{
				Symbol: ev.Symbol,
				Price:  price,
				At:     time.UnixMilli(ev.Timestamp).UTC(),
			})
		}
	}
}
