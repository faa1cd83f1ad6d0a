// Package fetcher retrieves historical daily price series from external
// market data providers.
package fetcher

import (
	"context"
	"errors"
	"time"

	"stockpulse/internal/model"
)

// ErrDataUnavailable marks a failed retrieval: unknown symbol, empty range,
// or a provider/network failure.
var ErrDataUnavailable = errors.New("data unavailable")

// DataSource fetches daily bars for a symbol over a closed date range.
// Returned series have already passed model validation.
type DataSource interface {
	Name() string
	FetchDaily(ctx context.Context, symbol string, from, to time.Time) (*model.PriceSeries, error)
}
