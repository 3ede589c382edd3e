// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Feed configures the market data source the engine polls or streams from.
type Feed struct {
	Provider       string `yaml:"provider"`
	BaseURL        string `yaml:"base_url"`
	PollIntervalMs int    `yaml:"poll_interval_ms"`
}

// Trading groups the strategy windows, risk thresholds, and sizing knobs for
// the single traded pair. All values are read once at startup and immutable
// for the run.
type Trading struct {
	Pair             string  `yaml:"pair"`
	Interval         string  `yaml:"interval"`
	ShortWindow      int     `yaml:"short_window"`
	LongWindow       int     `yaml:"long_window"`
	StopLossPct      float64 `yaml:"stop_loss_pct"`
	TakeProfitPct    float64 `yaml:"take_profit_pct"`
	InitialBalance   float64 `yaml:"initial_balance"`
	MinOrderNotional float64 `yaml:"min_order_notional"`
	BuyFraction      float64 `yaml:"buy_fraction"`
}

// Paper captures paper-trading bookkeeping settings.
type Paper struct {
	FillsPath       string `yaml:"fills_path"`
	JournalCapacity int    `yaml:"journal_capacity"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App     App     `yaml:"app"`
	Feed    Feed    `yaml:"feed"`
	Trading Trading `yaml:"trading"`
	Paper   Paper   `yaml:"paper"`
}

// Default returns the built-in configuration the bot runs with when no file
// overrides it.
func Default() *Config {
	return &Config{
		App: App{
			Name:        "crossbot",
			Env:         "dev",
			MetricsAddr: ":9100",
			LogLevel:    "info",
		},
		Feed: Feed{
			Provider:       "binance",
			BaseURL:        "https://api.binance.com",
			PollIntervalMs: 10000,
		},
		Trading: Trading{
			Pair:             "BTCUSDT",
			Interval:         "1m",
			ShortWindow:      10,
			LongWindow:       50,
			StopLossPct:      0.02,
			TakeProfitPct:    0.05,
			InitialBalance:   10000,
			MinOrderNotional: 10,
			BuyFraction:      0.5,
		},
		Paper: Paper{
			FillsPath:       "data/fills.jsonl",
			JournalCapacity: 256,
		},
	}
}

// Load reads a YAML file from disk and hydrates a Config struct on top of the
// defaults, so omitted keys keep their built-in values.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	config := Default()
	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Feed.Provider {
	case "stub", "binance", "binance-ws":
	default:
		return fmt.Errorf("unknown feed provider: %s", c.Feed.Provider)
	}
	if c.Feed.PollIntervalMs <= 0 {
		return fmt.Errorf("poll_interval_ms must be > 0")
	}
	if c.Trading.Pair == "" {
		return fmt.Errorf("pair must not be empty")
	}
	if c.Trading.ShortWindow <= 0 {
		return fmt.Errorf("short_window must be > 0")
	}
	if c.Trading.LongWindow <= c.Trading.ShortWindow {
		return fmt.Errorf("long_window must be > short_window")
	}
	if c.Trading.StopLossPct <= 0 || c.Trading.StopLossPct >= 1 {
		return fmt.Errorf("stop_loss_pct must be in (0,1)")
	}
	if c.Trading.TakeProfitPct <= 0 || c.Trading.TakeProfitPct >= 1 {
		return fmt.Errorf("take_profit_pct must be in (0,1)")
	}
	if c.Trading.InitialBalance <= 0 {
		return fmt.Errorf("initial_balance must be > 0")
	}
	if c.Trading.MinOrderNotional < 0 {
		return fmt.Errorf("min_order_notional must be >= 0")
	}
	if c.Trading.BuyFraction <= 0 || c.Trading.BuyFraction > 1 {
		return fmt.Errorf("buy_fraction must be in (0,1]")
	}
	if c.Paper.JournalCapacity < 0 {
		return fmt.Errorf("journal_capacity must be >= 0")
	}
	return nil
}
