package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockpulse/config"
	"stockpulse/internal/cache"
	"stockpulse/internal/fetcher"
	"stockpulse/internal/indicator"
	"stockpulse/internal/metrics"
	"stockpulse/internal/model"
	sqlitestore "stockpulse/internal/store/sqlite"
)

// The default Prometheus registry rejects duplicate registration, so all
// tests share one Metrics instance.
var testProm = metrics.NewMetrics()

// fakeSource serves canned series and counts fetches.
type fakeSource struct {
	series map[string]*model.PriceSeries
	calls  int
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) FetchDaily(ctx context.Context, symbol string, from, to time.Time) (*model.PriceSeries, error) {
	f.calls++
	s, ok := f.series[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: no data for %s", fetcher.ErrDataUnavailable, symbol)
	}
	return s, nil
}

func seriesFor(t *testing.T, symbol string, closes []float64) *model.PriceSeries {
	t.Helper()
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]model.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = model.PriceBar{
			Symbol: symbol,
			Date:   base.AddDate(0, 0, i),
			Open:   c, High: c + 1, Low: c - 1, Close: c,
			Volume: 1000,
		}
	}
	s, err := model.NewPriceSeries(symbol, bars)
	require.NoError(t, err)
	return s
}

func newTestService(t *testing.T, src fetcher.DataSource, symbols []string, specs []string) *Service {
	t.Helper()
	cfg := &config.Config{Symbols: symbols, Indicators: specs, LookbackDays: 30}
	configs, err := cfg.IndicatorConfigs()
	require.NoError(t, err)

	store, err := sqlitestore.Open(filepath.Join(t.TempDir(), "bars.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return &Service{
		cfg:     cfg,
		configs: configs,
		source:  src,
		store:   store,
		lru:     cache.NewLRU(8),
		engine:  indicator.NewEngine(),
		prom:    testProm,
		health:  metrics.NewHealthStatus(),
	}
}

func TestRunSymbol(t *testing.T) {
	src := &fakeSource{series: map[string]*model.PriceSeries{
		"AAPL": seriesFor(t, "AAPL", []float64{100, 102, 104, 106, 108}),
	}}
	svc := newTestService(t, src, []string{"AAPL"}, []string{"sma:3", "ret:2"})

	snap, err := svc.runSymbol(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", snap.Symbol)
	assert.Equal(t, 108.0, snap.Close)
	assert.Equal(t, 5, snap.Bars)
	require.Len(t, snap.Indicators, 2)

	sma := snap.Indicators[0]
	assert.Equal(t, "SMA_3", sma.Name)
	assert.True(t, sma.Ready)
	assert.InDelta(t, 106.0, sma.Value, 1e-9)
	assert.Equal(t, 3, sma.Defined)

	ret := snap.Indicators[1]
	assert.Equal(t, "RET_2", ret.Name)
	assert.True(t, ret.Ready)
	assert.InDelta(t, (108.0-104.0)/104.0, ret.Value, 1e-9)
}

func TestRunSymbolIndicatorErrorDoesNotFailRun(t *testing.T) {
	src := &fakeSource{series: map[string]*model.PriceSeries{
		"AAPL": seriesFor(t, "AAPL", []float64{100, 102, 104}),
	}}
	svc := newTestService(t, src, []string{"AAPL"}, []string{"sma:2", "vol:10"})

	snap, err := svc.runSymbol(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Len(t, snap.Indicators, 2)

	assert.True(t, snap.Indicators[0].Ready)
	assert.False(t, snap.Indicators[1].Ready)
	assert.NotEmpty(t, snap.Indicators[1].Error)
}

func TestLoadSeriesCachesAndPersists(t *testing.T) {
	src := &fakeSource{series: map[string]*model.PriceSeries{
		"AAPL": seriesFor(t, "AAPL", []float64{100, 102, 104}),
	}}
	svc := newTestService(t, src, []string{"AAPL"}, []string{"sma:2"})
	ctx := context.Background()

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	first, err := svc.loadSeries(ctx, "AAPL", from, to)
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)

	// Second load for the same range comes from the LRU.
	second, err := svc.loadSeries(ctx, "AAPL", from, to)
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)
	assert.Same(t, first, second)

	// Fetched bars were persisted.
	stored, err := svc.store.ReadRange(ctx, "AAPL", from, to)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 3, stored.Len())
}

func TestLoadSeriesReusesStoredBars(t *testing.T) {
	src := &fakeSource{series: map[string]*model.PriceSeries{}}
	svc := newTestService(t, src, []string{"AAPL"}, []string{"sma:2"})
	ctx := context.Background()

	stored := seriesFor(t, "AAPL", []float64{100, 102, 104}) // last bar 2026-03-04
	require.NoError(t, svc.store.UpsertBars(ctx, stored.Bars))

	// Stored data trails the requested end by one day, close enough to skip
	// the fetch even though the source has nothing to serve.
	series, err := svc.loadSeries(ctx, "AAPL",
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 0, src.calls)
	assert.Equal(t, 3, series.Len())

	// A request well past the stored range goes back to the source.
	_, err = svc.loadSeries(ctx, "AAPL",
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Equal(t, 1, src.calls)
}

func TestLoadSeriesFetchError(t *testing.T) {
	src := &fakeSource{series: map[string]*model.PriceSeries{}}
	svc := newTestService(t, src, []string{"MSFT"}, []string{"sma:2"})

	_, err := svc.loadSeries(context.Background(), "MSFT",
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fetcher.ErrDataUnavailable))
}

func TestRunOnceContinuesPastFailedSymbol(t *testing.T) {
	src := &fakeSource{series: map[string]*model.PriceSeries{
		"AAPL": seriesFor(t, "AAPL", []float64{100, 102, 104}),
	}}
	// BADSYM has no data; AAPL still gets processed.
	svc := newTestService(t, src, []string{"BADSYM", "AAPL"}, []string{"sma:2"})

	svc.RunOnce(context.Background())

	assert.Equal(t, 2, src.calls)
	stored, err := svc.store.ReadRange(context.Background(),
		"AAPL",
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 3, stored.Len())
}

func TestErrorReason(t *testing.T) {
	arith := &indicator.ArithmeticError{Index: 4}
	wrapped := fmt.Errorf("compute: %w", arith)
	assert.Equal(t, arith.Error(), errorReason(wrapped))

	plain := errors.New("boom")
	assert.Equal(t, "boom", errorReason(plain))
}
