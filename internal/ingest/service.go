// Package ingest runs the scheduled analysis pipeline: fetch daily bars for
// every configured symbol, persist them, compute the configured indicators,
// and publish the resulting snapshots.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"stockpulse/config"
	"stockpulse/internal/cache"
	"stockpulse/internal/fetcher"
	"stockpulse/internal/indicator"
	"stockpulse/internal/metrics"
	"stockpulse/internal/model"
	redisstore "stockpulse/internal/store/redis"
	sqlitestore "stockpulse/internal/store/sqlite"
)

// Service is the top-level orchestrator for the ingest daemon. It wires all
// dependencies, manages lifecycle, and owns the series caches.
type Service struct {
	cfg     *config.Config
	configs []indicator.Config

	source fetcher.DataSource
	store  *sqlitestore.Store
	rstore *redisstore.Store // optional; nil degrades to fetch-through
	lru    *cache.LRU
	engine *indicator.Engine

	prom   *metrics.Metrics
	health *metrics.HealthStatus
}

// New creates a Service from the given Config. SQLite is required; Redis is
// optional and a connection failure only disables the cross-run cache.
func New(cfg *config.Config) (*Service, error) {
	configs, err := cfg.IndicatorConfigs()
	if err != nil {
		return nil, fmt.Errorf("indicator configs: %w", err)
	}

	svc := &Service{
		cfg:     cfg,
		configs: configs,
		source:  fetcher.NewYahoo(cfg.DataSource.BaseURL, cfg.DataSource.Proxy),
		lru:     cache.NewLRU(cfg.Cache.Capacity),
		engine:  indicator.NewEngine(),
		prom:    metrics.NewMetrics(),
		health:  metrics.NewHealthStatus(),
	}

	os.MkdirAll(filepath.Dir(cfg.Database.SQLitePath), 0o755)
	svc.store, err = sqlitestore.Open(cfg.Database.SQLitePath)
	if err != nil {
		return nil, err
	}

	if cfg.Redis.Addr != "" {
		svc.rstore, err = redisstore.New(redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.RedisTTL(),
		})
		if err != nil {
			slog.Warn("redis unavailable, continuing without cross-run cache", "err", err)
			svc.rstore = nil
		}
	}

	return svc, nil
}

// Run starts the metrics server and the cron schedule, then blocks until ctx
// is cancelled.
func (s *Service) Run(ctx context.Context) error {
	srv := metrics.NewServer(s.cfg.MetricsAddr, s.health)
	srv.Start()

	if s.rstore != nil {
		s.health.StartLivenessChecker(ctx, s.rstore.Client(), s.store.DB(), 15*time.Second)
	} else {
		s.health.StartLivenessChecker(ctx, nil, s.store.DB(), 15*time.Second)
	}

	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(s.cfg.Schedule.Cron, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("register schedule %q: %w", s.cfg.Schedule.Cron, err)
	}

	if s.cfg.Schedule.RunOnStart {
		s.RunOnce(ctx)
	}

	c.Start()
	slog.Info("ingest scheduler started", "cron", s.cfg.Schedule.Cron, "symbols", s.cfg.Symbols)

	<-ctx.Done()

	c.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Stop(shutdownCtx)
	s.Close()
	return nil
}

// RunOnce runs the pipeline for every configured symbol. A symbol failure is
// logged and counted; the remaining symbols still run.
func (s *Service) RunOnce(ctx context.Context) {
	for _, symbol := range s.cfg.Symbols {
		snap, err := s.runSymbol(ctx, symbol)
		if err != nil {
			slog.Error("symbol run failed", "symbol", symbol, "err", err)
			s.prom.RunFailures.WithLabelValues(symbol).Inc()
			continue
		}
		slog.Info("symbol analyzed",
			"symbol", symbol, "as_of", snap.AsOf.Format("2006-01-02"),
			"close", snap.Close, "bars", snap.Bars)
	}
	s.prom.RunsTotal.Inc()
	s.health.MarkRun()
}

// runSymbol fetches (or recalls) the series for one symbol, persists it,
// computes all configured indicators, and publishes the snapshot.
func (s *Service) runSymbol(ctx context.Context, symbol string) (*model.AnalysisSnapshot, error) {
	to := model.Day(time.Now())
	from := to.AddDate(0, 0, -s.cfg.LookbackDays)

	series, err := s.loadSeries(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	results := s.engine.ComputeAll(series, s.configs)
	s.prom.ComputeDur.Observe(time.Since(start).Seconds())

	snap := s.buildSnapshot(series, results)

	if s.rstore != nil {
		if err := s.rstore.SetLatest(ctx, snap); err != nil {
			slog.Warn("store latest snapshot", "symbol", symbol, "err", err)
		}
		if err := s.rstore.PublishSnapshot(ctx, snap); err != nil {
			slog.Warn("publish snapshot", "symbol", symbol, "err", err)
		}
	}

	return snap, nil
}

// staleAfter is how far the stored series may trail the requested end before
// a refetch. Covers weekends and single holidays.
const staleAfter = 3 * 24 * time.Hour

// loadSeries resolves a series through the recall layers: LRU, Redis, then
// SQLite when its bars already reach the requested end, then the data source.
// Fetched series are stored and back-filled into both cache layers.
func (s *Service) loadSeries(ctx context.Context, symbol string, from, to time.Time) (*model.PriceSeries, error) {
	key := cache.SeriesKey(symbol, from, to)

	if series, ok := s.lru.Get(key); ok {
		s.prom.CacheHits.WithLabelValues("lru").Inc()
		return series, nil
	}
	s.prom.CacheMisses.WithLabelValues("lru").Inc()

	if s.rstore != nil {
		if series, ok := s.rstore.GetSeries(ctx, key); ok {
			s.prom.CacheHits.WithLabelValues("redis").Inc()
			s.lru.Put(key, series)
			return series, nil
		}
		s.prom.CacheMisses.WithLabelValues("redis").Inc()
	}

	if last, err := s.store.LastDate(ctx, symbol); err == nil && !last.IsZero() && to.Sub(last) < staleAfter {
		if series, err := s.store.ReadRange(ctx, symbol, from, to); err == nil && series != nil {
			s.prom.CacheHits.WithLabelValues("sqlite").Inc()
			s.lru.Put(key, series)
			if s.rstore != nil {
				s.rstore.PutSeries(ctx, key, series)
			}
			return series, nil
		}
	}
	s.prom.CacheMisses.WithLabelValues("sqlite").Inc()

	start := time.Now()
	series, err := s.source.FetchDaily(ctx, symbol, from, to)
	s.prom.FetchDur.Observe(time.Since(start).Seconds())
	if err != nil {
		s.prom.FetchErrors.WithLabelValues(s.source.Name()).Inc()
		return nil, err
	}

	commitStart := time.Now()
	if err := s.store.UpsertBars(ctx, series.Bars); err != nil {
		return nil, err
	}
	s.prom.SQLiteCommitDur.Observe(time.Since(commitStart).Seconds())
	s.prom.BarsIngested.Add(float64(series.Len()))

	s.lru.Put(key, series)
	if s.rstore != nil {
		s.rstore.PutSeries(ctx, key, series)
	}
	return series, nil
}

// buildSnapshot reduces full indicator series to their latest defined values.
func (s *Service) buildSnapshot(series *model.PriceSeries, results []indicator.Result) *model.AnalysisSnapshot {
	last := series.Last()
	snap := &model.AnalysisSnapshot{
		Symbol:     series.Symbol,
		AsOf:       last.Date,
		Close:      last.Close,
		Bars:       series.Len(),
		Indicators: make([]model.IndicatorValue, 0, len(results)),
		ComputedAt: time.Now().UTC(),
	}

	for _, r := range results {
		iv := model.IndicatorValue{Name: r.Config.Name()}
		if r.Err != nil {
			iv.Error = errorReason(r.Err)
			s.prom.IndicatorErrors.WithLabelValues(iv.Name).Inc()
		} else if point, ok := r.Series.LastDefined(); ok {
			iv.Value = point.Value
			iv.Ready = true
			iv.Defined = r.Series.DefinedCount()
		}
		snap.Indicators = append(snap.Indicators, iv)
	}
	return snap
}

// errorReason keeps published error strings short but taxonomy-preserving.
func errorReason(err error) string {
	var arith *indicator.ArithmeticError
	switch {
	case errors.As(err, &arith):
		return arith.Error()
	default:
		return err.Error()
	}
}

// Close releases the service's stores.
func (s *Service) Close() {
	if s.store != nil {
		s.store.Close()
	}
	if s.rstore != nil {
		s.rstore.Close()
	}
}
