package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrMalformedInput marks a PriceSeries that violates the data-model
// invariants: unsorted or duplicate dates, high < low, a price outside the
// low..high range, non-positive prices, or negative volume. It is detected
// at the boundary, before any indicator runs.
var ErrMalformedInput = errors.New("malformed price series")

// PriceSeries is an ordered sequence of daily bars for a single symbol,
// ascending by date. Construct it with NewPriceSeries; it is read-only
// afterwards and safe to share across goroutines.
type PriceSeries struct {
	Symbol string     `json:"symbol"`
	Bars   []PriceBar `json:"bars"`
}

// NewPriceSeries validates bars against the data-model invariants and
// returns an immutable series. The input slice is copied.
func NewPriceSeries(symbol string, bars []PriceBar) (*PriceSeries, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s: empty series", ErrMalformedInput, symbol)
	}

	copied := make([]PriceBar, len(bars))
	copy(copied, bars)

	var prev time.Time
	for i, b := range copied {
		if i > 0 && !b.Date.After(prev) {
			return nil, fmt.Errorf("%w: %s: bar %d date %s not after previous %s",
				ErrMalformedInput, symbol, i, b.Date.Format("2006-01-02"), prev.Format("2006-01-02"))
		}
		prev = b.Date

		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			return nil, fmt.Errorf("%w: %s: bar %d has non-positive price", ErrMalformedInput, symbol, i)
		}
		if b.High < b.Low {
			return nil, fmt.Errorf("%w: %s: bar %d high %.4f < low %.4f", ErrMalformedInput, symbol, i, b.High, b.Low)
		}
		if b.Open < b.Low || b.Open > b.High {
			return nil, fmt.Errorf("%w: %s: bar %d open %.4f outside [%.4f, %.4f]",
				ErrMalformedInput, symbol, i, b.Open, b.Low, b.High)
		}
		if b.Close < b.Low || b.Close > b.High {
			return nil, fmt.Errorf("%w: %s: bar %d close %.4f outside [%.4f, %.4f]",
				ErrMalformedInput, symbol, i, b.Close, b.Low, b.High)
		}
		if b.Volume < 0 {
			return nil, fmt.Errorf("%w: %s: bar %d has negative volume %d", ErrMalformedInput, symbol, i, b.Volume)
		}
	}

	return &PriceSeries{Symbol: symbol, Bars: copied}, nil
}

// Len returns the number of bars in the series.
func (s *PriceSeries) Len() int { return len(s.Bars) }

// Closes extracts the close prices in date order.
func (s *PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// First returns the earliest bar. Panics on an empty series; NewPriceSeries
// never produces one.
func (s *PriceSeries) First() PriceBar { return s.Bars[0] }

// Last returns the most recent bar.
func (s *PriceSeries) Last() PriceBar { return s.Bars[len(s.Bars)-1] }
