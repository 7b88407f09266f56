// Package engine wires every component into the running service: the
// market/odds/news collaborators, the Bayesian posterior, the strategy
// bank, the paper-trader, the parlay builder, persistence, and the API
// surface. Grounded on the teacher's `internal/app/app.go` — an App
// struct holding every tracker and a Run method that starts them as
// background goroutines plus a ticker-driven foreground loop — kept as
// the overall shape while every tracker's identity changes (maker/taker
// become the strategy bank; the portfolio/risk trackers become the
// paper-trader; RTDS becomes the news-sentiment watcher).
package engine

import (
	"context"
	"log"
	"time"

	"github.com/GoPolymarket/polymarket-trader/internal/bayes"
	"github.com/GoPolymarket/polymarket-trader/internal/calibration"
	"github.com/GoPolymarket/polymarket-trader/internal/marketcache"
	"github.com/GoPolymarket/polymarket-trader/internal/orderbook"
	"github.com/GoPolymarket/polymarket-trader/internal/venue"
)

// BuildPosterior assembles every active Bayesian signal for one market
// (spec §4.C) and combines them. Signals are skipped, not zeroed, when
// their preconditions don't hold (e.g. no history yet, single bookmaker),
// matching each signal function's own boundary behavior.
func BuildPosterior(
	m venue.Market,
	book venue.Orderbook,
	history []venue.PricePoint,
	calib *calibration.Store,
	consensusProb float64,
	bookmakerCount int,
	news NewsInput,
	totalResolutions int,
) bayes.Posterior {
	category := bayes.DetectCategory(m.Question)
	daysLeft := 0.0
	if m.HasDeadline {
		daysLeft = time.Until(m.Deadline).Hours() / 24
	}

	var signals []bayes.Signal
	addSignal := func(name string, llr, weight float64, data map[string]any) {
		if llr == 0 && weight == 0 {
			return
		}
		perf := calib.SignalPerformanceFor(name)
		signals = append(signals, bayes.Signal{
			Name:           name,
			RawLLR:         llr,
			Weight:         bayes.AdaptiveWeight(weight, perf),
			StructuredData: data,
		})
	}

	if llr, data := bayes.OrderbookImbalance(book, m.YesMid); llr != 0 {
		addSignal("orderbook_imbalance", llr, bayes.DefaultWeights["orderbook_imbalance"], data)
	}
	if llr, data := bayes.MultiTimeframeStability(history); llr != 0 {
		addSignal("timeframe_stability", llr, bayes.DefaultWeights["timeframe_stability"], data)
	}
	if llr, data := bayes.TimeDecay(daysLeft, m.YesMid); llr != 0 {
		addSignal("time_decay", llr, bayes.DefaultWeights["time_decay"], data)
	}
	if llr, data := bayes.HistoricalCalibration(calib, m.YesMid); llr != 0 {
		addSignal("historical_calibration", llr, bayes.DefaultWeights["historical_calibration"], data)
	}
	if llr, data := bayes.OrderbookDepthProfile(book, m.YesMid); llr != 0 {
		addSignal("orderbook_depth", llr, bayes.DefaultWeights["orderbook_depth"], data)
	}
	if llr, data := bayes.NewsSentiment(news.AvgSentiment, news.HeadlineCount, news.Confidence, news.LLR); llr != 0 {
		addSignal("news_sentiment", llr, bayes.DefaultWeights["news_sentiment"], data)
	}
	if llr, weight, data := bayes.BookmakerConsensus(consensusProb, m.YesMid, bookmakerCount); llr != 0 {
		addSignal("bookmaker_consensus", llr, weight, data)
	}

	damper := bayes.EfficiencyDamper(m.Volume24h, m.Liquidity, category)
	return bayes.Combine(m.YesMid, signals, damper, totalResolutions)
}

// NewsInput mirrors the newsfeed collaborator's response shape, zero
// valued when no headlines were found for a market (spec §4.C signal 6).
type NewsInput struct {
	AvgSentiment  float64
	HeadlineCount int
	Confidence    float64
	LLR           float64
}

// refreshOrderbooks pulls the latest book for every tracked market's YES
// token, routed to the client for that market's venue, feeding the spoof
// detector and the orderbook store (spec §4.B).
func refreshOrderbooks(ctx context.Context, cache *marketcache.Cache, books *orderbook.Store, clients map[venue.Tag]venue.MarketClient) {
	for _, m := range cache.All() {
		client, ok := clients[m.Venue]
		if !ok {
			continue
		}
		ob, err := client.GetOrderbook(ctx, m.YesTokenID)
		if err != nil {
			log.Printf("engine: orderbook refresh %s: %v", m.ID, err)
			continue
		}
		books.Record(ob)
	}
}
