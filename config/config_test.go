package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"stockpulse/internal/indicator"
)

const testYAML = `
symbols: [AAPL, MSFT]
indicators: ["sma:10", "vol:5"]
lookback_days: 90
schedule:
  cron: "0 0 23 * * 1-5"
  run_on_start: true
data_source:
  base_url: "http://localhost:9000"
database:
  sqlite_path: "/tmp/test-bars.db"
redis:
  addr: "localhost:6379"
  ttl_minutes: 15
cache:
  capacity: 8
log_level: debug
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFromYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, testYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(cfg.Symbols) != 2 || cfg.Symbols[0] != "AAPL" || cfg.Symbols[1] != "MSFT" {
		t.Errorf("symbols: got %v", cfg.Symbols)
	}
	if cfg.LookbackDays != 90 {
		t.Errorf("lookback_days: got %d, want 90", cfg.LookbackDays)
	}
	if !cfg.Schedule.RunOnStart {
		t.Error("run_on_start should be true")
	}
	if cfg.DataSource.BaseURL != "http://localhost:9000" {
		t.Errorf("base_url: got %q", cfg.DataSource.BaseURL)
	}
	if cfg.Database.SQLitePath != "/tmp/test-bars.db" {
		t.Errorf("sqlite_path: got %q", cfg.Database.SQLitePath)
	}
	if got := cfg.RedisTTL(); got != 15*time.Minute {
		t.Errorf("redis ttl: got %v, want 15m", got)
	}
	if cfg.Cache.Capacity != 8 {
		t.Errorf("cache capacity: got %d, want 8", cfg.Cache.Capacity)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(cfg.Symbols) != 1 || cfg.Symbols[0] != "AAPL" {
		t.Errorf("default symbols: got %v", cfg.Symbols)
	}
	if cfg.LookbackDays != 365 {
		t.Errorf("default lookback: got %d", cfg.LookbackDays)
	}
	if cfg.Schedule.Cron != "0 30 22 * * 1-5" {
		t.Errorf("default cron: got %q", cfg.Schedule.Cron)
	}
	if cfg.MetricsAddr != ":9091" || cfg.GatewayAddr != ":8080" {
		t.Errorf("default addrs: got %q %q", cfg.MetricsAddr, cfg.GatewayAddr)
	}
	if got := cfg.RedisTTL(); got != time.Hour {
		t.Errorf("default ttl: got %v", got)
	}
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	t.Setenv("SYMBOLS", "TSLA, NVDA")
	t.Setenv("LOOKBACK_DAYS", "30")
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(writeConfig(t, testYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(cfg.Symbols) != 2 || cfg.Symbols[0] != "TSLA" || cfg.Symbols[1] != "NVDA" {
		t.Errorf("env symbols: got %v", cfg.Symbols)
	}
	if cfg.LookbackDays != 30 {
		t.Errorf("env lookback: got %d", cfg.LookbackDays)
	}
	if cfg.Redis.Addr != "redis:6380" {
		t.Errorf("env redis addr: got %q", cfg.Redis.Addr)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("env log level: got %q", cfg.LogLevel)
	}
	// YAML values without env overrides survive.
	if cfg.Cache.Capacity != 8 {
		t.Errorf("cache capacity: got %d, want 8", cfg.Cache.Capacity)
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "symbols: [unclosed")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestIndicatorConfigs(t *testing.T) {
	cfg, err := Load(writeConfig(t, testYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	configs, err := cfg.IndicatorConfigs()
	if err != nil {
		t.Fatalf("IndicatorConfigs: %v", err)
	}
	want := []indicator.Config{
		{Kind: indicator.KindSMA, Window: 10},
		{Kind: indicator.KindVolatility, Window: 5},
	}
	if len(configs) != len(want) {
		t.Fatalf("got %d configs, want %d", len(configs), len(want))
	}
	for i := range want {
		if configs[i] != want[i] {
			t.Errorf("config %d: got %+v, want %+v", i, configs[i], want[i])
		}
	}

	cfg.Indicators = []string{"sma:20", "macd:9"}
	if _, err := cfg.IndicatorConfigs(); err == nil {
		t.Error("expected error for unknown indicator kind")
	}
}
