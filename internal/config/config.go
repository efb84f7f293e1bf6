// Package config provides configuration management for the analysis
// pipeline.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Store         StoreConfig        `mapstructure:"store"`
	Watchlist     []string           `mapstructure:"watchlist"`
	Engine        EngineConfig       `mapstructure:"engine"`
	Alerts        AlertConfig        `mapstructure:"alerts"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Narrative     NarrativeConfig    `mapstructure:"narrative"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// StoreConfig holds persistence configuration.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// EngineConfig groups the analysis engine tunables. Every constant the
// engine consumes is passed down from here; nothing is read from the
// environment inside the engine itself.
type EngineConfig struct {
	Tail      TailConfig      `mapstructure:"tail"`
	Pattern   PatternConfig   `mapstructure:"pattern"`
	Backtest  BacktestConfig  `mapstructure:"backtest"`
	VolBucket VolBucketConfig `mapstructure:"vol_bucket"`
}

// TailConfig holds tail scan tunables.
type TailConfig struct {
	DropPct              float64 `mapstructure:"drop_pct"`
	MaxDurationMinutes   float64 `mapstructure:"max_duration_minutes"`
	ReboundWindowMinutes float64 `mapstructure:"rebound_window_minutes"`
	BarIntervalMinutes   float64 `mapstructure:"bar_interval_minutes"`
}

// PatternConfig holds doppelganger search tunables.
type PatternConfig struct {
	WindowSize int `mapstructure:"window_size"`
	TopN       int `mapstructure:"top_n"`
}

// BacktestConfig holds backtest tunables.
type BacktestConfig struct {
	HorizonDays int `mapstructure:"horizon_days"`
}

// VolBucketConfig holds volatility bucketing tunables.
type VolBucketConfig struct {
	WindowDays int     `mapstructure:"window_days"`
	Period     int     `mapstructure:"period"`
	MinSamples int     `mapstructure:"min_samples"`
	LowPct     float64 `mapstructure:"low_pct"`
	HighPct    float64 `mapstructure:"high_pct"`
}

// AlertConfig gates alert emission.
type AlertConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	MinWinRate      float64 `mapstructure:"min_win_rate"`
	MinTrades       int     `mapstructure:"min_trades"`
	CooldownMinutes int     `mapstructure:"cooldown_minutes"`
}

// NotificationConfig holds notification channel configuration.
type NotificationConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// WebhookConfig holds webhook notification configuration.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// NarrativeConfig holds LLM commentary configuration. With no API key the
// pipeline falls back to template commentary.
type NarrativeConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	File    bool   `mapstructure:"file"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/wheelstrat"
	}
	return filepath.Join(home, ".config", "wheelstrat")
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Store:     StoreConfig{Path: filepath.Join(DefaultConfigDir(), "wheelstrat.db")},
		Watchlist: []string{"SPY", "QQQ", "AAPL", "MSFT", "NVDA", "TSLA", "AMD"},
		Engine: EngineConfig{
			Tail: TailConfig{
				DropPct:              0.05,
				MaxDurationMinutes:   5 * 1440,
				ReboundWindowMinutes: 10 * 1440,
				BarIntervalMinutes:   1440,
			},
			Pattern: PatternConfig{
				WindowSize: 20,
				TopN:       10,
			},
			Backtest: BacktestConfig{
				HorizonDays: 30,
			},
			VolBucket: VolBucketConfig{
				WindowDays: 252,
				Period:     20,
				MinSamples: 30,
				LowPct:     33,
				HighPct:    66,
			},
		},
		Alerts: AlertConfig{
			Enabled:         true,
			MinWinRate:      0.70,
			MinTrades:       10,
			CooldownMinutes: 24 * 60,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			File:    true,
		},
	}
}

// Load loads configuration from the specified directory. If configDir is
// empty, the default config directory is used; a missing config file is not
// an error, the defaults apply.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.SetEnvPrefix("WHEELSTRAT")
	v.AutomaticEnv()
	registerDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		return Default(), nil
	}

	// Unmarshal into a zero struct with defaults registered in viper, so a
	// file value replaces the default wholesale. Decoding onto a
	// pre-populated struct merges slices element-wise and keeps trailing
	// defaults, which turns a shortened watchlist into a longer one.
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// registerDefaults mirrors Default() into viper so absent keys fall back to
// the built-in values during Unmarshal.
func registerDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("watchlist", d.Watchlist)
	v.SetDefault("engine.tail.drop_pct", d.Engine.Tail.DropPct)
	v.SetDefault("engine.tail.max_duration_minutes", d.Engine.Tail.MaxDurationMinutes)
	v.SetDefault("engine.tail.rebound_window_minutes", d.Engine.Tail.ReboundWindowMinutes)
	v.SetDefault("engine.tail.bar_interval_minutes", d.Engine.Tail.BarIntervalMinutes)
	v.SetDefault("engine.pattern.window_size", d.Engine.Pattern.WindowSize)
	v.SetDefault("engine.pattern.top_n", d.Engine.Pattern.TopN)
	v.SetDefault("engine.backtest.horizon_days", d.Engine.Backtest.HorizonDays)
	v.SetDefault("engine.vol_bucket.window_days", d.Engine.VolBucket.WindowDays)
	v.SetDefault("engine.vol_bucket.period", d.Engine.VolBucket.Period)
	v.SetDefault("engine.vol_bucket.min_samples", d.Engine.VolBucket.MinSamples)
	v.SetDefault("engine.vol_bucket.low_pct", d.Engine.VolBucket.LowPct)
	v.SetDefault("engine.vol_bucket.high_pct", d.Engine.VolBucket.HighPct)
	v.SetDefault("alerts.enabled", d.Alerts.Enabled)
	v.SetDefault("alerts.min_win_rate", d.Alerts.MinWinRate)
	v.SetDefault("alerts.min_trades", d.Alerts.MinTrades)
	v.SetDefault("alerts.cooldown_minutes", d.Alerts.CooldownMinutes)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.console", d.Logging.Console)
	v.SetDefault("logging.file", d.Logging.File)
}

// Validate checks cross-field constraints the engine depends on.
func (c *Config) Validate() error {
	if c.Engine.Tail.DropPct <= 0 {
		return fmt.Errorf("engine.tail.drop_pct must be positive")
	}
	if c.Engine.Pattern.WindowSize <= 0 || c.Engine.Pattern.TopN <= 0 {
		return fmt.Errorf("engine.pattern window_size and top_n must be positive")
	}
	if c.Engine.Backtest.HorizonDays <= 0 {
		return fmt.Errorf("engine.backtest.horizon_days must be positive")
	}
	if c.Engine.VolBucket.LowPct > c.Engine.VolBucket.HighPct {
		return fmt.Errorf("engine.vol_bucket.low_pct must not exceed high_pct")
	}
	return nil
}
