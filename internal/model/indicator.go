package model

import (
	"encoding/json"
	"time"
)

// Point is one dated indicator observation. Valid is false inside the
// leading stretch where the indicator's lookback window is not yet satisfied.
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
	Valid bool      `json:"valid"`
}

// IndicatorSeries is a derived series aligned 1:1 by date with the bars of
// the PriceSeries it was computed from.
type IndicatorSeries struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// DefinedCount returns the number of valid points.
func (s IndicatorSeries) DefinedCount() int {
	n := 0
	for _, p := range s.Points {
		if p.Valid {
			n++
		}
	}
	return n
}

// LastDefined returns the most recent valid point, if any.
func (s IndicatorSeries) LastDefined() (Point, bool) {
	for i := len(s.Points) - 1; i >= 0; i-- {
		if s.Points[i].Valid {
			return s.Points[i], true
		}
	}
	return Point{}, false
}

// IndicatorValue is the latest state of one configured indicator inside an
// analysis snapshot. Error carries the reason when the configuration failed;
// the remaining indicators of the run are unaffected.
type IndicatorValue struct {
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	Ready   bool    `json:"ready"`
	Defined int     `json:"defined"`
	Error   string  `json:"error,omitempty"`
}

// AnalysisSnapshot is what the ingest service publishes after each run:
// the latest bar plus the latest value of every configured indicator.
type AnalysisSnapshot struct {
	Symbol     string           `json:"symbol"`
	AsOf       time.Time        `json:"as_of"`
	Close      float64          `json:"close"`
	Bars       int              `json:"bars"`
	Indicators []IndicatorValue `json:"indicators"`
	ComputedAt time.Time        `json:"computed_at"`
}

// JSON returns the JSON-encoded snapshot (ignoring errors for publish paths).
func (a *AnalysisSnapshot) JSON() []byte {
	buf, _ := json.Marshal(a)
	return buf
}
