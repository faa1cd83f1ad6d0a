// Package metrics exposes Prometheus metrics and a health endpoint for the
// ingest pipeline.
package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the analysis pipeline.
type Metrics struct {
	FetchDur    prometheus.Histogram
	FetchErrors *prometheus.CounterVec // labels: source

	BarsIngested    prometheus.Counter
	SQLiteCommitDur prometheus.Histogram

	ComputeDur      prometheus.Histogram
	IndicatorErrors *prometheus.CounterVec // labels: indicator

	CacheHits   *prometheus.CounterVec // labels: layer = lru|redis
	CacheMisses *prometheus.CounterVec // labels: layer

	RunsTotal   prometheus.Counter
	RunFailures *prometheus.CounterVec // labels: symbol
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		FetchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stockpulse_fetch_duration_seconds",
			Help:    "Data source fetch latency per symbol",
			Buckets: prometheus.DefBuckets,
		}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockpulse_fetch_errors_total",
			Help: "Failed data source fetches",
		}, []string{"source"}),
		BarsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stockpulse_bars_ingested_total",
			Help: "Daily bars written to the store",
		}),
		SQLiteCommitDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stockpulse_sqlite_commit_duration_seconds",
			Help:    "SQLite batch commit latency",
			Buckets: prometheus.DefBuckets,
		}),
		ComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stockpulse_indicator_compute_duration_seconds",
			Help:    "Indicator computation latency per symbol run",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),
		IndicatorErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockpulse_indicator_errors_total",
			Help: "Indicator configurations that failed to compute",
		}, []string{"indicator"}),
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockpulse_cache_hits_total",
			Help: "Series cache hits by layer",
		}, []string{"layer"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockpulse_cache_misses_total",
			Help: "Series cache misses by layer",
		}, []string{"layer"}),
		RunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stockpulse_runs_total",
			Help: "Completed analysis runs (all symbols)",
		}),
		RunFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockpulse_run_failures_total",
			Help: "Per-symbol run failures",
		}, []string{"symbol"}),
	}

	prometheus.MustRegister(
		m.FetchDur,
		m.FetchErrors,
		m.BarsIngested,
		m.SQLiteCommitDur,
		m.ComputeDur,
		m.IndicatorErrors,
		m.CacheHits,
		m.CacheMisses,
		m.RunsTotal,
		m.RunFailures,
	)

	return m
}

// HealthStatus tracks dependency health for the /healthz endpoint.
type HealthStatus struct {
	mu sync.RWMutex

	StartedAt       time.Time
	RedisConnected  bool
	RedisLatencyMs  float64
	SQLiteOK        bool
	SQLiteLatencyMs float64
	LastRunAt       time.Time
	LastCheckAt     time.Time
}

// NewHealthStatus creates a HealthStatus with the start time recorded.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

// MarkRun records a completed analysis run.
func (h *HealthStatus) MarkRun() {
	h.mu.Lock()
	h.LastRunAt = time.Now()
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + health.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite pings the database and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks until ctx is done.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK
	if !h.SQLiteOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}

	lastRun := ""
	if !h.LastRunAt.IsZero() {
		lastRun = h.LastRunAt.Format(time.RFC3339)
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastRunAt       string  `json:"last_run_at"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastRunAt:       lastRun,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		slog.Info("metrics server listening", "addr", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("metrics server error", "err", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
