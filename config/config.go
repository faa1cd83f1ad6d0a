// Package config loads application configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"stockpulse/internal/indicator"
)

// Config holds all application configuration.
type Config struct {
	// Symbols to analyze each run.
	Symbols []string `yaml:"symbols"`

	// Indicator specs of the form "kind:window", e.g. "sma:20".
	Indicators []string `yaml:"indicators"`

	// LookbackDays bounds the fetched date range, ending today.
	LookbackDays int `yaml:"lookback_days"`

	Schedule struct {
		// Cron is a 6-field (seconds-resolution) cron expression.
		Cron       string `yaml:"cron"`
		RunOnStart bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`

	DataSource struct {
		BaseURL string `yaml:"base_url"`
		Proxy   string `yaml:"proxy"`
	} `yaml:"data_source"`

	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`

	Redis struct {
		Addr       string `yaml:"addr"`
		Password   string `yaml:"password"`
		DB         int    `yaml:"db"`
		TTLMinutes int    `yaml:"ttl_minutes"`
	} `yaml:"redis"`

	Cache struct {
		Capacity int `yaml:"capacity"`
	} `yaml:"cache"`

	MetricsAddr string `yaml:"metrics_addr"`
	GatewayAddr string `yaml:"gateway_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Load reads config from a YAML file, applies environment variable
// overrides, then fills unset fields with defaults. A missing file is not an
// error; env vars and defaults still apply.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if v := os.Getenv("SYMBOLS"); v != "" {
		cfg.Symbols = splitList(v)
	}
	if v := os.Getenv("INDICATORS"); v != "" {
		cfg.Indicators = splitList(v)
	}
	if v := os.Getenv("LOOKBACK_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LookbackDays = n
		}
	}
	if v := os.Getenv("SCHEDULE_CRON"); v != "" {
		cfg.Schedule.Cron = v
	}
	if v := os.Getenv("DATA_SOURCE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("GATEWAY_ADDR"); v != "" {
		cfg.GatewayAddr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if len(c.Symbols) == 0 {
		c.Symbols = []string{"AAPL"}
	}
	if len(c.Indicators) == 0 {
		c.Indicators = []string{"sma:20", "ema:12", "ret:5", "vol:10"}
	}
	if c.LookbackDays <= 0 {
		c.LookbackDays = 365
	}
	if c.Schedule.Cron == "" {
		// Weekdays at 22:30 UTC, after US market close.
		c.Schedule.Cron = "0 30 22 * * 1-5"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/bars.db"
	}
	if c.Redis.TTLMinutes <= 0 {
		c.Redis.TTLMinutes = 60
	}
	if c.Cache.Capacity <= 0 {
		c.Cache.Capacity = 64
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = ":9091"
	}
	if c.GatewayAddr == "" {
		c.GatewayAddr = ":8080"
	}
}

// IndicatorConfigs parses the configured indicator specs into the closed
// config set, failing fast on the first malformed spec.
func (c *Config) IndicatorConfigs() ([]indicator.Config, error) {
	return indicator.ParseConfigs(c.Indicators)
}

// RedisTTL returns the configured series-cache TTL.
func (c *Config) RedisTTL() time.Duration {
	return time.Duration(c.Redis.TTLMinutes) * time.Minute
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
