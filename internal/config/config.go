// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, metrics address, and logging level.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Exchange describes Bitget connectivity parameters.
type Exchange struct {
	BaseURL    string `yaml:"base_url"`
	WsURL      string `yaml:"ws_url"`
	APIKey     string `yaml:"api_key"`
	APISecret  string `yaml:"api_secret"`
	Passphrase string `yaml:"passphrase"`
	Demo       bool   `yaml:"demo"`
}

// Trading groups the decision-engine knobs: sizing, thresholds, and cadence.
type Trading struct {
	Leverage          float64 `yaml:"leverage"`
	MaxPositions      int     `yaml:"max_positions"`
	Timeframe         string  `yaml:"timeframe"`
	MinVolumeUSD      float64 `yaml:"min_volume_usd"`
	MaxATRPct         float64 `yaml:"max_atr_pct"`
	MinStopPct        float64 `yaml:"min_stop_pct"`
	MinTPPct          float64 `yaml:"min_tp_pct"`
	DailyLossLimitPct float64 `yaml:"daily_loss_limit_pct"`
	BTCBullLimitPct   float64 `yaml:"btc_bull_limit_pct"`
	CycleMinutes      int     `yaml:"cycle_minutes"`
	MinSignals        int     `yaml:"min_signals"`
	DryRun            bool    `yaml:"dry_run"`
}

// Trailing configures the trailing-stop controller for open shorts.
type Trailing struct {
	StartPct    float64 `yaml:"start_pct"`
	LockPct     float64 `yaml:"lock_pct"`
	DistancePct float64 `yaml:"distance_pct"`
}

// NewsEvent is one scheduled macro event around which entries are forbidden.
type NewsEvent struct {
	Name string `yaml:"name"`
	Date string `yaml:"date"` // 2006-01-02, UTC
	Time string `yaml:"time"` // 15:04, UTC
}

// News configures the entry blackout around macro events.
type News struct {
	BlackoutMinutes int         `yaml:"blackout_minutes"`
	Events          []NewsEvent `yaml:"events"`
}

// State points at the snapshot file used for crash-safe recovery.
type State struct {
	Path string `yaml:"path"`
}

// Database points at the SQLite trade-history database. Empty disables recording.
type Database struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App      App      `yaml:"app"`
	Exchange Exchange `yaml:"exchange"`
	Trading  Trading  `yaml:"trading"`
	Trailing Trailing `yaml:"trailing"`
	News     News     `yaml:"news"`
	State    State    `yaml:"state"`
	Database Database `yaml:"database"`
}

// Load reads a YAML file from disk, hydrates a Config struct, applies
// environment overrides for secrets, and validates the result.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	dec := yaml.NewDecoder(file)
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	if v := os.Getenv("BITGET_API_KEY"); v != "" {
		config.Exchange.APIKey = v
	}
	if v := os.Getenv("BITGET_API_SECRET"); v != "" {
		config.Exchange.APISecret = v
	}
	if v := os.Getenv("BITGET_PASSPHRASE"); v != "" {
		config.Exchange.Passphrase = v
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate applies defaults and rejects values the engine cannot run with.
func (c *Config) Validate() error {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.MetricsAddr == "" {
		c.App.MetricsAddr = ":9090"
	}
	if c.Exchange.BaseURL == "" {
		c.Exchange.BaseURL = "https://api.bitget.com"
	}
	if c.Exchange.WsURL == "" {
		c.Exchange.WsURL = "wss://ws.bitget.com/v2/ws/public"
	}

	t := &c.Trading
	if t.Leverage == 0 {
		t.Leverage = 10
	}
	if t.MaxPositions == 0 {
		t.MaxPositions = 5
	}
	if t.Timeframe == "" {
		t.Timeframe = "15m"
	}
	if t.MinVolumeUSD == 0 {
		t.MinVolumeUSD = 5_000_000
	}
	if t.MaxATRPct == 0 {
		t.MaxATRPct = 15.0
	}
	if t.MinStopPct == 0 {
		t.MinStopPct = 2.0
	}
	if t.MinTPPct == 0 {
		t.MinTPPct = 5.0
	}
	if t.DailyLossLimitPct == 0 {
		t.DailyLossLimitPct = 5.0
	}
	if t.BTCBullLimitPct == 0 {
		t.BTCBullLimitPct = 5.0
	}
	if t.CycleMinutes == 0 {
		t.CycleMinutes = 15
	}
	if t.MinSignals == 0 {
		t.MinSignals = 3
	}

	if c.Trailing.StartPct == 0 {
		c.Trailing.StartPct = 3.0
	}
	if c.Trailing.LockPct == 0 {
		c.Trailing.LockPct = 4.0
	}
	if c.Trailing.DistancePct == 0 {
		c.Trailing.DistancePct = 2.0
	}
	if c.News.BlackoutMinutes == 0 {
		c.News.BlackoutMinutes = 30
	}
	if c.State.Path == "" {
		c.State.Path = "data/state.json"
	}

	switch {
	case t.Leverage < 1 || t.Leverage > 125:
		return fmt.Errorf("trading.leverage %.1f out of range [1,125]", t.Leverage)
	case t.MaxPositions < 1:
		return fmt.Errorf("trading.max_positions must be at least 1")
	case t.CycleMinutes < 1:
		return fmt.Errorf("trading.cycle_minutes must be at least 1")
	case t.MinSignals < 1 || t.MinSignals > 4:
		return fmt.Errorf("trading.min_signals %d out of range [1,4]", t.MinSignals)
	case t.DailyLossLimitPct <= 0:
		return fmt.Errorf("trading.daily_loss_limit_pct must be positive")
	}
	if c.Trailing.DistancePct <= 0 || c.Trailing.DistancePct >= c.Trailing.StartPct {
		return fmt.Errorf("trailing.distance_pct must be positive and below trailing.start_pct")
	}
	return nil
}
