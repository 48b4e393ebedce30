package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "bitget-bot-test" {
		t.Fatalf("unexpected App.Name: %s", cfg.App.Name)
	}
	if !cfg.Exchange.Demo {
		t.Fatalf("expected demo mode")
	}
	if cfg.Trading.Leverage != 10 {
		t.Fatalf("unexpected leverage: %.1f", cfg.Trading.Leverage)
	}
	if cfg.Trading.MaxPositions != 5 {
		t.Fatalf("unexpected max positions: %d", cfg.Trading.MaxPositions)
	}
	if cfg.Trading.Timeframe != "15m" {
		t.Fatalf("unexpected timeframe: %s", cfg.Trading.Timeframe)
	}
	if cfg.Trading.MinVolumeUSD != 5_000_000 {
		t.Fatalf("unexpected min volume: %.0f", cfg.Trading.MinVolumeUSD)
	}
	if !cfg.Trading.DryRun {
		t.Fatalf("expected dry run enabled")
	}
	if cfg.Trailing.StartPct != 3.0 || cfg.Trailing.LockPct != 4.0 || cfg.Trailing.DistancePct != 2.0 {
		t.Fatalf("unexpected trailing config: %+v", cfg.Trailing)
	}
	if len(cfg.News.Events) != 1 || cfg.News.Events[0].Name != "FOMC" {
		t.Fatalf("unexpected news events: %+v", cfg.News.Events)
	}
	if cfg.News.BlackoutMinutes != 30 {
		t.Fatalf("unexpected blackout minutes: %d", cfg.News.BlackoutMinutes)
	}
	if cfg.State.Path != "testdata/state.json" {
		t.Fatalf("unexpected state path: %s", cfg.State.Path)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minimal.yaml")
	if err := os.WriteFile(path, []byte("app:\n  name: minimal\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Trading.Leverage != 10 || cfg.Trading.MaxPositions != 5 || cfg.Trading.CycleMinutes != 15 {
		t.Fatalf("defaults not applied: %+v", cfg.Trading)
	}
	if cfg.Trading.MinSignals != 3 {
		t.Fatalf("expected default min_signals 3, got %d", cfg.Trading.MinSignals)
	}
	if cfg.Exchange.BaseURL == "" {
		t.Fatalf("expected default exchange base URL")
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unknown.yaml")
	if err := os.WriteFile(path, []byte("app:\n  nme: typo\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidateRejectsBadLeverage(t *testing.T) {
	cfg := &Config{}
	cfg.Trading.Leverage = 300
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for out-of-range leverage")
	}
}

func TestEnvOverridesSecrets(t *testing.T) {
	t.Setenv("BITGET_API_KEY", "env-key")
	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Exchange.APIKey != "env-key" {
		t.Fatalf("expected env override, got %s", cfg.Exchange.APIKey)
	}
}
