package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // competition timezone must resolve on hosts without zoneinfo

	"gopkg.in/yaml.v3"

	"bursa/internal/domain"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the bursa client.
type Config struct {
	Backend     Backend     `yaml:"backend"`
	Market      Market      `yaml:"market"`
	Competition Competition `yaml:"competition"`
	UI          UI          `yaml:"ui"`
	Chat        Chat        `yaml:"chat"`
	Journal     Journal     `yaml:"journal"`
	Logging     Logging     `yaml:"logging"`
}

// Backend locates the game server.
type Backend struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Market controls polling and the static asset catalog.
type Market struct {
	PollInterval time.Duration                  `yaml:"poll_interval"`
	DefaultAsset string                         `yaml:"default_asset"`
	Catalog      map[string]domain.CatalogEntry `yaml:"catalog"`
}

// Competition holds the countdown target.
type Competition struct {
	EndsAt   string `yaml:"ends_at"` // 2006-01-02T15:04:05 in Timezone
	Timezone string `yaml:"timezone"`
}

// UI sizes the bounded views.
type UI struct {
	FeedSize        int           `yaml:"feed_size"`
	LeaderboardSize int           `yaml:"leaderboard_size"`
	TimerInterval   time.Duration `yaml:"timer_interval"`
}

// Chat configures the text-generation endpoint backing the asset chat.
type Chat struct {
	BaseURL         string        `yaml:"base_url"`
	Model           string        `yaml:"model"`
	APIKey          string        `yaml:"api_key"`
	Timeout         time.Duration `yaml:"timeout"`
	RateLimitPerMin int           `yaml:"rate_limit_per_min"`
}

// Journal enables the local SQLite record of trades and chat exchanges.
// An empty Path disables it.
type Journal struct {
	Path string `yaml:"path"`
}

// Logging configures the application logger.
type Logging struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ---------------------------------------------------------------------------
// Defaults
// ---------------------------------------------------------------------------

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Backend: Backend{
			URL:     "http://localhost:8000",
			Timeout: 15 * time.Second,
		},
		Market: Market{
			PollInterval: 10 * time.Second,
			DefaultAsset: "GGAL",
			Catalog: map[string]domain.CatalogEntry{
				"GGAL": {Name: "Grupo Galicia", Sector: "Financiero", ChartSymbol: "NASDAQ:GGAL"},
				"YPFD": {Name: "YPF S.A.", Sector: "Energía", ChartSymbol: "NYSE:YPF"},
				"MELI": {Name: "Mercado Libre", Sector: "E-Commerce", ChartSymbol: "NASDAQ:MELI"},
				"MSFT": {Name: "Microsoft", Sector: "Tecnología", ChartSymbol: "NASDAQ:MSFT"},
				"AAPL": {Name: "Apple Inc.", Sector: "Tecnología", ChartSymbol: "NASDAQ:AAPL"},
				"TSLA": {Name: "Tesla", Sector: "Automotriz", ChartSymbol: "NASDAQ:TSLA"},
				"BTC":  {Name: "Bitcoin", Sector: "Cripto", ChartSymbol: "BINANCE:BTCUSDT"},
			},
		},
		Competition: Competition{
			EndsAt:   "2026-01-27T00:00:00",
			Timezone: "America/Argentina/Buenos_Aires",
		},
		UI: UI{
			FeedSize:        8,
			LeaderboardSize: 8,
			TimerInterval:   time.Second,
		},
		Chat: Chat{
			BaseURL:         "https://generativelanguage.googleapis.com/v1beta",
			Model:           "gemini-2.5-flash",
			Timeout:         45 * time.Second,
			RateLimitPerMin: 20,
		},
		Logging: Logging{
			Level: "info",
			File:  "/tmp/bursa-client.log",
		},
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path over the
// defaults, then applies environment variable overrides. A missing file is
// not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Defaults only.
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EndsAt resolves the competition end in its configured timezone.
func (c *Config) EndsAt() (time.Time, error) {
	loc, err := time.LoadLocation(c.Competition.Timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("loading timezone %q: %w", c.Competition.Timezone, err)
	}
	t, err := time.ParseInLocation("2006-01-02T15:04:05", c.Competition.EndsAt, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing competition.ends_at: %w", err)
	}
	return t, nil
}

func (c *Config) validate() error {
	if c.Backend.URL == "" {
		return errors.New("backend.url is required")
	}
	if c.Market.PollInterval <= 0 {
		return fmt.Errorf("market.poll_interval must be positive, got %s", c.Market.PollInterval)
	}
	if c.UI.FeedSize <= 0 || c.UI.LeaderboardSize <= 0 {
		return errors.New("ui.feed_size and ui.leaderboard_size must be positive")
	}
	if c.UI.TimerInterval <= 0 {
		c.UI.TimerInterval = time.Second
	}
	if _, err := c.EndsAt(); err != nil {
		return err
	}
	return nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BURSA_BACKEND_URL"); v != "" {
		cfg.Backend.URL = v
	}

	if v := os.Getenv("BURSA_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Market.PollInterval = d
		} else if secs, err := strconv.Atoi(v); err == nil {
			cfg.Market.PollInterval = time.Duration(secs) * time.Second
		}
	}

	if v := os.Getenv("BURSA_JOURNAL_PATH"); v != "" {
		cfg.Journal.Path = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// GOOGLE_API_KEY is the name the Gemini SDKs read; GEMINI_API_KEY wins.
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		cfg.Chat.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Chat.APIKey = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.Chat.Model = v
	}
}
