package model

import (
	"encoding/json"
	"time"
)

// PriceBar represents one trading day's OHLCV observation for a single symbol.
// Date is the calendar day of the session, UTC-midnight aligned.
type PriceBar struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Day truncates a timestamp to UTC midnight, the canonical bar date.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// JSON returns the JSON-encoded bar (ignoring errors for publish paths).
func (b *PriceBar) JSON() []byte {
	buf, _ := json.Marshal(b)
	return buf
}
