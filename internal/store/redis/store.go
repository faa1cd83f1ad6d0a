// Package redis provides a best-effort cross-run cache of fetched price
// series and the pub/sub transport carrying analysis snapshots from the
// ingest service to the gateway.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"stockpulse/internal/model"
)

// UpdatesChannel is the pub/sub channel carrying analysis snapshots.
const UpdatesChannel = "analysis.updates"

const (
	seriesKeyPrefix = "bars:"
	latestKeyPrefix = "analysis:latest:"
)

// Config configures the Redis store.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration // series cache TTL
}

// Store caches price series and publishes analysis snapshots.
// All cache operations are best effort: a failure degrades to fetch-through.
type Store struct {
	client *goredis.Client
	ttl    time.Duration
}

// New creates a Store and pings the server.
func New(cfg Config) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	slog.Info("connected to redis", "addr", cfg.Addr)
	return &Store{client: client, ttl: ttl}, nil
}

// Client returns the underlying Redis client for health checks and pub/sub.
func (s *Store) Client() *goredis.Client { return s.client }

// GetSeries returns the cached series under key, if present and decodable.
// Corrupted entries are deleted.
func (s *Store) GetSeries(ctx context.Context, key string) (*model.PriceSeries, bool) {
	b, err := s.client.Get(ctx, seriesKeyPrefix+key).Bytes()
	if err != nil || len(b) == 0 {
		return nil, false
	}
	var series model.PriceSeries
	if err := json.Unmarshal(b, &series); err != nil {
		s.client.Del(ctx, seriesKeyPrefix+key)
		return nil, false
	}
	return &series, true
}

// PutSeries caches a series under key with the configured TTL. Best effort.
func (s *Store) PutSeries(ctx context.Context, key string, series *model.PriceSeries) {
	b, err := json.Marshal(series)
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, seriesKeyPrefix+key, b, s.ttl).Err(); err != nil {
		slog.Warn("redis series cache write failed", "key", key, "err", err)
	}
}

// SetLatest stores the latest snapshot for a symbol.
func (s *Store) SetLatest(ctx context.Context, snap *model.AnalysisSnapshot) error {
	if err := s.client.Set(ctx, latestKeyPrefix+snap.Symbol, snap.JSON(), 0).Err(); err != nil {
		return fmt.Errorf("redis set latest: %w", err)
	}
	return nil
}

// GetLatest returns the latest snapshot for a symbol, or nil when absent.
func (s *Store) GetLatest(ctx context.Context, symbol string) (*model.AnalysisSnapshot, error) {
	b, err := s.client.Get(ctx, latestKeyPrefix+symbol).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get latest: %w", err)
	}
	var snap model.AnalysisSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("redis decode latest: %w", err)
	}
	return &snap, nil
}

// PublishSnapshot publishes a snapshot on the updates channel.
func (s *Store) PublishSnapshot(ctx context.Context, snap *model.AnalysisSnapshot) error {
	if err := s.client.Publish(ctx, UpdatesChannel, snap.JSON()).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Close closes the client.
func (s *Store) Close() error { return s.client.Close() }
