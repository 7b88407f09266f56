package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level engine configuration.
type Config struct {
	OddsAPIKey string `yaml:"odds_api_key"`
	NewsAPIKey string `yaml:"news_api_key"`
	LLMAPIKey  string `yaml:"llm_api_key"`
	LLMModel   string `yaml:"llm_model"`

	ScanInterval      time.Duration `yaml:"scan_interval"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	DryRun            bool          `yaml:"dry_run"`
	TradingMode       string        `yaml:"trading_mode"` // paper|backtest
	LogLevel          string        `yaml:"log_level"`
	DataDir           string        `yaml:"data_dir"`

	Bayes       BayesConfig       `yaml:"bayes"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Strategy    StrategyConfig    `yaml:"strategy"`
	Fees        FeesConfig        `yaml:"fees"`
	Paper       PaperConfig       `yaml:"paper"`
	Parlay      ParlayConfig      `yaml:"parlay"`
	OddsAPI     OddsAPIConfig     `yaml:"odds_api"`
	Kalshi      KalshiConfig      `yaml:"kalshi"`
	Telegram    TelegramConfig    `yaml:"telegram"`
	API         APIConfig         `yaml:"api"`
}

type BayesConfig struct {
	TimeDecayTauDays float64 `yaml:"time_decay_tau_days"`
}

type CalibrationConfig struct {
	RetrainEvery  int `yaml:"retrain_every"`
	DecayCheckEvery int `yaml:"decay_check_every"`
	MinBucketSamples int `yaml:"min_bucket_samples"`
}

type StrategyConfig struct {
	MinScore        float64       `yaml:"min_score"`
	MaxExposurePct  float64       `yaml:"max_exposure_pct"`
	ScanConcurrency int           `yaml:"scan_concurrency"`
	DedupWindow     time.Duration `yaml:"dedup_window"`
}

type FeesConfig struct {
	FeeRate     float64 `yaml:"fee_rate"`
	KellyFrac   float64 `yaml:"kelly_frac"`
	SlippageBase float64 `yaml:"slippage_base"`
}

type PaperConfig struct {
	InitialBankrollUSD float64       `yaml:"initial_bankroll_usd"`
	MinScoreToRecord   float64       `yaml:"min_score_to_record"`
	ResolutionInterval time.Duration `yaml:"resolution_interval"`
	ResolutionBatch    int           `yaml:"resolution_batch"`
	MaxConsecutiveLosses    int           `yaml:"max_consecutive_losses"`
	ConsecutiveLossCooldown time.Duration `yaml:"consecutive_loss_cooldown"`
}

type ParlayConfig struct {
	MinLegs          int     `yaml:"min_legs"`
	MinBookmakers    int     `yaml:"min_bookmakers"`
	MaxLegReuse      int     `yaml:"max_leg_reuse"`
	MaxLegOverlapPct float64 `yaml:"max_leg_overlap_pct"`
}

type OddsAPIConfig struct {
	BaseURL  string        `yaml:"base_url"`
	SportKey string        `yaml:"sport_key"`
	Regions  string        `yaml:"regions"`
	Markets  []string      `yaml:"markets"`
	Timeout  time.Duration `yaml:"timeout"`
}

type KalshiConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BaseURL  string `yaml:"base_url"`
	WSURL    string `yaml:"ws_url"`
	APIKeyID string `yaml:"api_key_id"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns production-sane defaults.
func Default() Config {
	return Config{
		ScanInterval:      60 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		DryRun:            true,
		TradingMode:       "paper",
		LogLevel:          "info",
		DataDir:           "./data",
		Bayes: BayesConfig{
			TimeDecayTauDays: 3,
		},
		Calibration: CalibrationConfig{
			RetrainEvery:     25,
			DecayCheckEvery:  10,
			MinBucketSamples: 5,
		},
		Strategy: StrategyConfig{
			MinScore:        25,
			MaxExposurePct:  0.05,
			ScanConcurrency: 5,
			DedupWindow:     180 * time.Second,
		},
		Fees: FeesConfig{
			FeeRate:      0.02,
			KellyFrac:    0.25,
			SlippageBase: 0.003,
		},
		Paper: PaperConfig{
			InitialBankrollUSD:      1000,
			MinScoreToRecord:        25,
			ResolutionInterval:      60 * time.Second,
			ResolutionBatch:         15,
			MaxConsecutiveLosses:    5,
			ConsecutiveLossCooldown: 30 * time.Minute,
		},
		Parlay: ParlayConfig{
			MinLegs:          2,
			MinBookmakers:    3,
			MaxLegReuse:      3,
			MaxLegOverlapPct: 0.40,
		},
		OddsAPI: OddsAPIConfig{
			BaseURL:  "https://api.the-odds-api.com",
			SportKey: "upcoming",
			Regions:  "us,uk",
			Markets:  []string{"h2h", "spreads", "totals", "outrights"},
			Timeout:  10 * time.Second,
		},
		Kalshi: KalshiConfig{
			BaseURL: "https://trading-api.kalshi.com/trade-api/v2",
			WSURL:   "wss://trading-api.kalshi.com/trade-api/ws/v2",
		},
		API: APIConfig{
			Addr: ":8090",
		},
	}
}

// LoadFile loads YAML config layered over Default().
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overlays well-known environment variables onto cfg.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("ODDS_API_KEY"); v != "" {
		c.OddsAPIKey = v
	}
	if v := os.Getenv("NEWS_API_KEY"); v != "" {
		c.NewsAPIKey = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		c.LLMAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("TRADER_TRADING_MODE")); v != "" {
		c.TradingMode = strings.ToLower(v)
	}
	if v := os.Getenv("TRADER_DRY_RUN"); v != "" {
		c.DryRun = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
		c.Telegram.Enabled = true
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
}
