package indicator

import "stockpulse/internal/model"

// SMA computes the simple moving average of close prices over a rolling
// window. Uses a running sum so the pass stays O(n) regardless of window.
func SMA(series *model.PriceSeries, window int) (model.IndicatorSeries, error) {
	cfg := Config{Kind: KindSMA, Window: window}
	if err := cfg.Validate(series.Len()); err != nil {
		return model.IndicatorSeries{}, err
	}

	out := model.IndicatorSeries{
		Name:   cfg.Name(),
		Points: make([]model.Point, series.Len()),
	}

	sum := 0.0
	for i, bar := range series.Bars {
		sum += bar.Close
		if i >= window {
			sum -= series.Bars[i-window].Close
		}

		out.Points[i].Date = bar.Date
		if i >= window-1 {
			out.Points[i].Value = sum / float64(window)
			out.Points[i].Valid = true
		}
	}
	return out, nil
}
