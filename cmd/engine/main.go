package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	polymarket "github.com/GoPolymarket/polymarket-go-sdk"

	"github.com/GoPolymarket/polymarket-trader/internal/api"
	"github.com/GoPolymarket/polymarket-trader/internal/config"
	"github.com/GoPolymarket/polymarket-trader/internal/engine"
	"github.com/GoPolymarket/polymarket-trader/internal/venue"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadFile(*cfgPath)
	if err != nil {
		log.Printf("warning: config file: %v, using defaults", err)
		cfg = config.Default()
	}
	cfg.ApplyEnv()

	log.Printf("trading-intelligence engine starting (mode=%s dry_run=%t)", cfg.TradingMode, cfg.DryRun)

	sdkClient := polymarket.NewClient()
	clients := map[venue.Tag]venue.MarketClient{
		venue.Poly: venue.NewPolymarketClient(sdkClient.Gamma, sdkClient.CLOB),
	}
	if cfg.Kalshi.Enabled {
		clients[venue.Kalshi] = venue.NewKalshiClient(cfg.Kalshi.BaseURL, cfg.Kalshi.WSURL, cfg.Kalshi.APIKeyID, nil)
		log.Println("kalshi venue enabled")
	}

	e := engine.New(cfg, clients)

	var server *api.Server
	if cfg.API.Enabled {
		broker := api.NewBroker()
		e.SetBroker(broker)
		server = api.NewServer(cfg.API.Addr, e, broker)
		if err := server.Start(context.Background()); err != nil {
			log.Fatalf("api server: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	<-sigCh
	log.Println("shutdown signal received")
	cancel()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		log.Println("engine did not shut down within timeout")
	}

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("api server shutdown: %v", err)
		}
	}

	log.Println("shutdown complete")
}
