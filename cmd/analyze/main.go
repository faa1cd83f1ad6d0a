// Command analyze fetches daily bars for one symbol, computes the requested
// indicators, and prints a text report.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"stockpulse/config"
	"stockpulse/internal/fetcher"
	"stockpulse/internal/indicator"
	"stockpulse/internal/logger"
	"stockpulse/internal/model"
	"stockpulse/internal/report"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML config")
	symbol := flag.String("symbol", "", "ticker symbol to analyze (required)")
	startDate := flag.String("start-date", "", "range start, 2006-01-02 (overrides --days)")
	days := flag.Int("days", 365, "lookback in calendar days when --start-date is unset")
	indicators := flag.String("indicators", "", "comma-separated kind:window specs, e.g. sma:20,ema:12 (default from config)")
	flag.Parse()

	if *symbol == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[analyze] config: %v", err)
	}

	// Keep stdout clean for the report; only surface warnings and errors.
	logger.Init("analyze", slog.LevelWarn)

	specs := cfg.Indicators
	if *indicators != "" {
		specs = strings.Split(*indicators, ",")
	}
	configs, err := indicator.ParseConfigs(specs)
	if err != nil {
		log.Fatalf("[analyze] %v", err)
	}

	to := model.Day(time.Now())
	from := to.AddDate(0, 0, -*days)
	if *startDate != "" {
		from, err = time.Parse("2006-01-02", *startDate)
		if err != nil {
			log.Fatalf("[analyze] bad --start-date %q: %v", *startDate, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	source := fetcher.NewYahoo(cfg.DataSource.BaseURL, cfg.DataSource.Proxy)
	series, err := source.FetchDaily(ctx, *symbol, from, to)
	if err != nil {
		log.Fatalf("[analyze] %v", err)
	}

	results := indicator.NewEngine().ComputeAll(series, configs)
	fmt.Print(report.FormatAnalysis(series, results))

	// Indicator-level failures are reported in the output; only a fully
	// failed run exits non-zero.
	allFailed := len(results) > 0
	for _, r := range results {
		if r.Err == nil {
			allFailed = false
		}
	}
	if allFailed {
		os.Exit(1)
	}
}
