package engine

import (
	"context"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GoPolymarket/polymarket-trader/internal/api"
	"github.com/GoPolymarket/polymarket-trader/internal/bayes"
	"github.com/GoPolymarket/polymarket-trader/internal/calibration"
	"github.com/GoPolymarket/polymarket-trader/internal/config"
	"github.com/GoPolymarket/polymarket-trader/internal/feeslip"
	"github.com/GoPolymarket/polymarket-trader/internal/marketcache"
	"github.com/GoPolymarket/polymarket-trader/internal/newsfeed"
	"github.com/GoPolymarket/polymarket-trader/internal/notify"
	"github.com/GoPolymarket/polymarket-trader/internal/oddsapi"
	"github.com/GoPolymarket/polymarket-trader/internal/orderbook"
	"github.com/GoPolymarket/polymarket-trader/internal/papertrader"
	"github.com/GoPolymarket/polymarket-trader/internal/parlay"
	"github.com/GoPolymarket/polymarket-trader/internal/persistence"
	"github.com/GoPolymarket/polymarket-trader/internal/scan"
	"github.com/GoPolymarket/polymarket-trader/internal/store"
	"github.com/GoPolymarket/polymarket-trader/internal/strategy"
	"github.com/GoPolymarket/polymarket-trader/internal/venue"
)

// Engine holds every wired component and runs the scan / resolution /
// persistence cycle. Mirrors the teacher's App struct (internal/app/app.go):
// one struct, one Run method starting each tracker as a background
// goroutine plus a foreground ticker loop — generalized here from
// maker/taker/portfolio/risk trackers to marketcache/orderbook/strategy
// bank/paper-trader/persistence.
type Engine struct {
	cfg config.Config

	marketClients map[venue.Tag]venue.MarketClient
	cache         *marketcache.Cache
	books         *orderbook.Store
	calib         *calibration.Store
	oddsCache     *oddsapi.Cache
	news          *newsfeed.Client
	bank          *strategy.Bank
	tracker       *persistence.Tracker
	paper         *papertrader.State
	resolver      *papertrader.Resolver
	notifier      *notify.Notifier
	orchestrator  *scan.Orchestrator
	events        *api.Broker

	accaCLV   *parlay.CLVTracker
	keptAccas []parlay.Parlay

	running atomic.Bool

	postMu     sync.Mutex
	posteriors map[string]bayes.Posterior
}

// edgeDetectThreshold mirrors the bayes package's own High-confidence
// edge floor (spec §4.C): a posterior that clears it is worth surfacing
// on the live event feed even before a strategy acts on it.
const edgeDetectThreshold = 0.015

// SetBroker wires an SSE broker so the engine's scan/trade/risk lifecycle
// publishes the event vocabulary spec §6 names (scan:complete, trade:new,
// trade:closed, risk:warning). Nil-safe: without a broker the engine runs
// exactly as before, just without a live event feed — onTradeResolved's
// calibration recording is wired unconditionally in New, independent of
// whether a broker is ever attached.
func (e *Engine) SetBroker(b *api.Broker) {
	e.events = b
}

// onTradeResolved fires on every trade the resolver settles: feeds the
// trade's signal snapshots into the calibration store (spec §4.D
// self-learning loop), publishes trade:closed, forwards a Telegram alert
// and its own alert:fired echo, and escalates to risk:warning/NotifyBusted
// once the bankroll busts.
func (e *Engine) onTradeResolved(t papertrader.Trade) {
	ctx := context.Background()
	bankroll := e.paper.Bankroll()

	outcomes := make([]calibration.SignalOutcome, 0, len(t.Signals))
	for _, sig := range t.Signals {
		outcomes = append(outcomes, calibration.SignalOutcome{
			Name:             sig.Name,
			WasCorrect:       sig.Direction == string(t.Outcome),
			EdgeContribution: math.Abs(sig.RawLLR),
		})
	}
	e.calib.RecordResolution(t.RawEntryPrice, t.Outcome == papertrader.OutcomeYes, outcomes)

	e.publish("trade:closed", map[string]any{
		"marketId": t.MarketID,
		"strategy": t.Strategy,
		"netPnl":   t.NetPnL,
		"bankroll": bankroll,
	})
	if err := e.notifier.NotifyTradeClosed(ctx, t.MarketID, t.Strategy, t.NetPnL, bankroll); err != nil {
		log.Printf("engine: notify trade closed: %v", err)
	} else {
		e.publish("alert:fired", map[string]any{"kind": "trade_closed", "marketId": t.MarketID})
	}

	if e.paper.Status() == papertrader.StatusBusted {
		e.publish("risk:warning", map[string]any{"status": "BUSTED"})
		if err := e.notifier.NotifyBusted(ctx); err != nil {
			log.Printf("engine: notify busted: %v", err)
		} else {
			e.publish("alert:fired", map[string]any{"kind": "busted"})
		}
	}
}

// runAccaCycle refreshes the Odds API cache, re-derives the sharp-vs-book
// parlay candidates from it, keeps whatever SelectKept admits, and
// reprices every pending kept parlay whose legs have all commenced
// against the latest line (spec §4.H builder + glossary "CLV"). Mirrors
// handleOpportunities's scan-then-record shape, generalized from the
// scan orchestrator's market cache to the odds cache.
func (e *Engine) runAccaCycle(ctx context.Context) {
	now := time.Now()

	keys := make([]oddsapi.MarketKey, 0, len(e.cfg.OddsAPI.Markets))
	for _, m := range e.cfg.OddsAPI.Markets {
		keys = append(keys, oddsapi.MarketKey(m))
	}
	if err := e.oddsCache.Refresh(ctx, e.cfg.OddsAPI.SportKey, keys, now); err != nil {
		log.Printf("engine: refresh odds cache: %v", err)
	}

	var rawEvents []parlay.Event
	for _, sport := range e.oddsCache.All() {
		if ev, ok := oddsapi.ToEvent(sport); ok {
			rawEvents = append(rawEvents, ev)
		}
	}
	events := parlay.FilterEvents(rawEvents, now)

	legs := parlay.CandidateLegs(events)
	candidates := parlay.BuildCandidates(legs)

	bankroll := e.paper.Bankroll()
	built := make([]parlay.Parlay, 0, len(candidates))
	for _, c := range candidates {
		if p, ok := parlay.BuildParlay(c, bankroll); ok {
			built = append(built, p)
		}
	}

	pool := append(append([]parlay.Parlay{}, e.keptAccas...), built...)
	kept := parlay.SelectKept(pool)

	previouslyKept := make(map[string]bool, len(e.keptAccas))
	for _, p := range e.keptAccas {
		previouslyKept[parlay.ParlayKey(p)] = true
	}
	for _, p := range kept {
		if previouslyKept[parlay.ParlayKey(p)] {
			continue
		}
		e.accaCLV.Keep(p, now)
		e.publish("trade:new", map[string]any{
			"kind":  "parlay",
			"grade": p.Grade,
			"ev":    p.EV,
			"legs":  len(p.Legs),
		})
	}
	e.keptAccas = kept

	latest := make(map[string]parlay.Event, len(rawEvents))
	for _, ev := range rawEvents {
		latest[ev.ID] = ev
	}
	for _, rec := range e.accaCLV.Reprice(latest, now) {
		e.publish("trade:closed", map[string]any{
			"kind": "parlay_clv",
			"clv":  rec.CLV,
		})
	}

	if err := store.Save(e.cfg.DataDir, store.AccaCLVFile, e.accaCLV.Records(), now); err != nil {
		log.Printf("engine: persist acca clv: %v", err)
	}
}

func (e *Engine) publish(name string, data any) {
	if e.events != nil {
		e.events.Publish(name, data)
	}
}

// New wires every component from a loaded config and a set of venue
// market clients keyed by tag (Polymarket, Kalshi).
func New(cfg config.Config, marketClients map[venue.Tag]venue.MarketClient) *Engine {
	clients := make([]venue.MarketClient, 0, len(marketClients))
	for _, c := range marketClients {
		clients = append(clients, c)
	}
	cache := marketcache.New(clients...)
	books := orderbook.NewStore()
	calib := calibration.NewStore()
	tracker := persistence.NewTracker()
	paperState := papertrader.NewState(cfg.Paper.InitialBankrollUSD)
	paperState.SetRiskPolicy(cfg.Paper.MaxConsecutiveLosses, cfg.Paper.ConsecutiveLossCooldown)

	oddsClient := oddsapi.NewClient(cfg.OddsAPI.BaseURL, cfg.OddsAPIKey)
	oddsCache := oddsapi.NewCache(oddsClient, cfg.DataDir)

	var news *newsfeed.Client
	if cfg.NewsAPIKey != "" {
		news = newsfeed.NewClient("https://newsapi.org", cfg.NewsAPIKey)
	}

	bank := strategy.NewBank(
		strategy.ComplementArb{MinVolume: 1000, MinLiquidity: 1000},
		strategy.GroupArb{MinVolume: 1000, MinLiquidity: 1000},
		strategy.OrderbookArb{MinLiquidity: 1000},
		strategy.CrossVenueValue{MinVolume: 1000, MinLiquidity: 1000},
		strategy.ICT{MinVolume: 1000, MinLiquidity: 1000},
		strategy.Momentum{MinVolume: 1000, MinLiquidity: 1000},
		strategy.Whale{MinVolume: 1000, MinLiquidity: 1000},
	)

	notifier := notify.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)

	e := &Engine{
		cfg:           cfg,
		marketClients: marketClients,
		cache:         cache,
		books:         books,
		calib:         calib,
		oddsCache:     oddsCache,
		news:          news,
		bank:          bank,
		tracker:       tracker,
		paper:         paperState,
		notifier:      notifier,
		posteriors:    make(map[string]bayes.Posterior),
		accaCLV:       parlay.NewCLVTracker(),
	}

	e.resolver = papertrader.NewResolver(paperState, e.fetchMarketState, nil)
	e.resolver.OnResolve(e.onTradeResolved)
	e.orchestrator = scan.New(cache, books, bank, tracker, e.buildSnapshot, e.handleOpportunities,
		cfg.ScanInterval, 20)

	return e
}

// Run starts the scan orchestrator and the paper-trade auto-resolution
// loop as background goroutines, restoring persisted state first (spec
// §6 "restore on startup").
func (e *Engine) Run(ctx context.Context) {
	e.restore()
	e.running.Store(true)
	defer e.running.Store(false)

	go e.orchestrator.Run(ctx, e.paper.Bankroll)
	go e.resolver.Run(ctx)

	persistTicker := time.NewTicker(5 * time.Minute)
	defer persistTicker.Stop()
	statusTicker := time.NewTicker(30 * time.Second)
	defer statusTicker.Stop()
	dailyResetTimer := time.NewTimer(timeUntilMidnightUTC())
	defer dailyResetTimer.Stop()
	accaTicker := time.NewTicker(e.cfg.ScanInterval * 5)
	defer accaTicker.Stop()
	for {
		select {
		case <-ctx.Done():
			e.persist()
			return
		case <-persistTicker.C:
			e.persist()
		case <-accaTicker.C:
			e.runAccaCycle(ctx)
		case <-statusTicker.C:
			e.publish("status:update", map[string]any{
				"running":           e.Running(),
				"bankroll":          e.Bankroll(),
				"status":            e.Status(),
				"monitored_markets": e.MonitoredMarkets(),
				"daily_pnl":         e.paper.DailyPnL(),
			})
		case <-dailyResetTimer.C:
			e.paper.ResetDaily()
			e.publish("status:update", map[string]any{
				"running":           e.Running(),
				"bankroll":          e.Bankroll(),
				"status":            e.Status(),
				"monitored_markets": e.MonitoredMarkets(),
				"daily_pnl":         e.paper.DailyPnL(),
			})
			dailyResetTimer.Reset(timeUntilMidnightUTC())
		}
	}
}

// buildSnapshot assembles a strategy.Snapshot from the cache/orderbook
// state, refreshing orderbooks and computing each market's bayes
// posterior-derived Bayesian confidence inputs inline (spec §4.A-C).
func (e *Engine) buildSnapshot(cache *marketcache.Cache, books *orderbook.Store) strategy.Snapshot {
	ctx := context.Background()
	refreshOrderbooks(ctx, cache, books, e.marketClients)

	markets := cache.All()
	snap := strategy.Snapshot{
		Markets:           markets,
		Books:             make(map[string]venue.Orderbook, len(markets)),
		SpoofScores:       make(map[string]int, len(markets)),
		DepthConfidence:   make(map[string]float64, len(markets)),
		History:           make(map[string][]venue.PricePoint, len(markets)),
		Consensus:         make(map[string]strategy.Consensus),
		Groups:            make(map[string]strategy.Group),
		LearnedThresholds: e.learnedThresholds(),
	}

	for _, m := range markets {
		book, ok := books.CleanBook(m.YesTokenID)
		if !ok {
			continue
		}
		snap.Books[m.YesTokenID] = book

		_, spoofScore := books.DetectSpoofing(m.YesTokenID)
		snap.SpoofScores[m.YesTokenID] = spoofScore

		thin := orderbook.AssessThinness(book, m.YesMid)
		snap.DepthConfidence[m.YesTokenID] = thin.ConfidenceFactor

		if client, ok := e.marketClients[m.Venue]; ok {
			if hist, err := client.GetPriceHistory(ctx, m.YesTokenID, time.Minute, 60); err == nil {
				snap.History[m.YesTokenID] = hist
			}
		}

		if m.GroupSlug != "" {
			g := snap.Groups[m.GroupSlug]
			g.Slug = m.GroupSlug
			g.Markets = append(g.Markets, m)
			snap.Groups[m.GroupSlug] = g
		}

		e.refreshPosterior(ctx, m, book, snap.History[m.YesTokenID], snap.Consensus[m.ID])
	}

	return snap
}

// refreshPosterior recomputes one market's Bayesian posterior (spec
// §4.C) with whatever signals are available this cycle, caches it for
// PosteriorFor, and publishes edge:detected when the edge clears the
// same bar bayes.Combine uses for its High confidence tier.
func (e *Engine) refreshPosterior(ctx context.Context, m venue.Market, book venue.Orderbook, history []venue.PricePoint, consensus strategy.Consensus) {
	var news NewsInput
	if e.news != nil {
		if s, ok, err := e.news.Sentiment(ctx, m.Question); err == nil && ok {
			news = NewsInput{
				AvgSentiment:  s.AvgSentiment,
				HeadlineCount: s.HeadlineCount,
				Confidence:    s.Confidence,
				LLR:           s.LLR,
			}
		}
	}

	post := BuildPosterior(m, book, history, e.calib, consensus.Prob, consensus.BookmakerCount, news, e.calib.TotalResolutions())

	e.postMu.Lock()
	e.posteriors[m.ID] = post
	e.postMu.Unlock()

	if post.ConfidenceTier == bayes.High || post.Edge >= edgeDetectThreshold || post.Edge <= -edgeDetectThreshold {
		e.publish("edge:detected", map[string]any{
			"marketId":   m.ID,
			"edge":       post.Edge,
			"confidence": string(post.ConfidenceTier),
			"signals":    post.ActiveSignalCount,
		})
	}
}

func (e *Engine) learnedThresholds() map[string]strategy.LearnedThreshold {
	out := make(map[string]strategy.LearnedThreshold)
	for _, name := range []string{
		"ARBITRAGE/COMPLEMENT", "ARBITRAGE/GROUP", "ARBITRAGE/ORDERBOOK",
		"ARBITRAGE/CROSS_PLATFORM", "ICT", "MOMENTUM", "WHALE",
	} {
		lt := e.paper.LearnedFor(name)
		out[name] = strategy.LearnedThreshold{
			OptimalMinScore: lt.OptimalMinScore,
			ProfitCutoff:    lt.ProfitCutoff,
			SampleSize:      lt.SampleSize,
		}
	}
	return out
}

// handleOpportunities is the scan orchestrator's TradeSink: it records
// the top-ranked opportunities as paper trades and notifies (spec §4.G,
// §4.J).
func (e *Engine) handleOpportunities(ctx context.Context, opps []strategy.Opportunity) {
	scored := make([]papertrader.ScoredOpportunity, 0, len(opps))
	for _, o := range opps {
		signals := make([]papertrader.SignalSnapshot, 0, len(o.Signals))
		for _, s := range o.Signals {
			signals = append(signals, papertrader.SignalSnapshot{
				Name:      s.Name,
				RawLLR:    s.RawLLR,
				Direction: string(s.Direction),
			})
		}
		m, ok := e.cache.ByID(o.MarketID)
		rawEntry := o.EntryPrice
		liquidity := 0.0
		if ok {
			liquidity = m.Liquidity
		}
		slip := feeslip.Slippage(o.Size, liquidity)

		scored = append(scored, papertrader.ScoredOpportunity{
			MarketID:   o.MarketID,
			Strategy:   o.Strategy,
			Side:       string(o.Side),
			Score:      o.Score,
			Confidence: string(o.Confidence),
			RawEntry:   rawEntry,
			Slip:       slip,
			KellySize:  o.Kelly,
			Signals:    signals,
		})
	}

	trades := e.paper.Record(scored, papertrader.SourceBot, time.Now())
	for _, t := range trades {
		// Telegram alerts only on notable opportunities (score ≥ 70).
		if e.notifier != nil && t.Score >= 70 {
			if err := e.notifier.NotifyNewOpportunity(ctx, t.MarketID, t.Strategy, t.Side, t.Score); err != nil {
				log.Printf("engine: notify new opportunity: %v", err)
			} else {
				e.publish("alert:fired", map[string]any{"kind": "new_opportunity", "marketId": t.MarketID})
			}
		}
		e.publish("trade:new", map[string]any{
			"marketId": t.MarketID,
			"strategy": t.Strategy,
			"side":     t.Side,
			"score":    t.Score,
		})
	}
	e.publish("scan:complete", map[string]any{"opportunities": len(opps), "recorded": len(trades)})
}

// fetchMarketState is the paper-trader's MarketStateFn (spec §4.G
// auto-resolution), routed to the market's own venue client.
func (e *Engine) fetchMarketState(ctx context.Context, marketID string) (string, float64, error) {
	m, ok := e.cache.ByID(marketID)
	if !ok {
		return "", 0, nil
	}
	client, ok := e.marketClients[m.Venue]
	if !ok {
		return "", 0, nil
	}
	fresh, err := client.GetMarketByID(ctx, marketID)
	if err != nil {
		return "", 0, err
	}
	return fresh.Resolution, fresh.YesMid, nil
}

func (e *Engine) persist() {
	now := time.Now()
	if err := e.oddsCache.Persist(now); err != nil {
		log.Printf("engine: persist odds cache: %v", err)
	}
	if err := store.Save(e.cfg.DataDir, store.PaperTradesFile, e.paper.OpenTrades(math.MaxInt), now); err != nil {
		log.Printf("engine: persist paper trades: %v", err)
	}
}

func (e *Engine) restore() {
	if err := e.oddsCache.Load(); err != nil {
		log.Printf("engine: restore odds cache: %v", err)
	}
	if records, _, ok, err := store.Load[[]parlay.CLVRecord](e.cfg.DataDir, store.AccaCLVFile); err != nil {
		log.Printf("engine: restore acca clv: %v", err)
	} else if ok {
		e.accaCLV.SeedRecords(records)
	}
}

// Running reports whether the engine's Run loop is active (api.EngineState).
func (e *Engine) Running() bool { return e.running.Load() }

// Bankroll reports the paper-trader's current bankroll (api.EngineState).
func (e *Engine) Bankroll() float64 { return e.paper.Bankroll() }

// Status reports the paper-trader's ACTIVE/BUSTED state (api.EngineState).
func (e *Engine) Status() string { return string(e.paper.Status()) }

// MonitoredMarkets reports the market cache's current size (api.EngineState).
func (e *Engine) MonitoredMarkets() int { return len(e.cache.All()) }

// OddsQuotaRemaining always reports 0 (api.EngineState); the quota the
// Odds API client tracks is not surfaced here.
func (e *Engine) OddsQuotaRemaining() int { return 0 }

// PosteriorFor returns a single tracked market's most recently computed
// Bayesian posterior (refreshed every scan cycle by buildSnapshot), for
// calibration debugging and the status API. For a market not yet covered
// by a scan it recomputes from the market's clean book and the
// calibration store, with no price history, news or bookmaker input.
func (e *Engine) PosteriorFor(marketID string) (bayes.Posterior, bool) {
	e.postMu.Lock()
	post, ok := e.posteriors[marketID]
	e.postMu.Unlock()
	if ok {
		return post, true
	}

	m, ok := e.cache.ByID(marketID)
	if !ok {
		return bayes.Posterior{}, false
	}
	book, _ := e.books.CleanBook(m.YesTokenID)
	return BuildPosterior(m, book, nil, e.calib, m.YesMid, 0, NewsInput{}, e.calib.TotalResolutions()), true
}

// timeUntilMidnightUTC returns the duration until the next UTC midnight.
func timeUntilMidnightUTC() time.Duration {
	now := time.Now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	return midnight.Sub(now)
}
