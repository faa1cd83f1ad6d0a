package indicator

import "stockpulse/internal/model"

// EMA computes the exponential moving average of close prices with smoothing
// factor 2/(window+1). The first defined value is the SMA over the first
// window bars, so EMA and SMA agree at index window-1 for the same window.
func EMA(series *model.PriceSeries, window int) (model.IndicatorSeries, error) {
	cfg := Config{Kind: KindEMA, Window: window}
	if err := cfg.Validate(series.Len()); err != nil {
		return model.IndicatorSeries{}, err
	}

	out := model.IndicatorSeries{
		Name:   cfg.Name(),
		Points: make([]model.Point, series.Len()),
	}

	alpha := 2.0 / float64(window+1)
	sum := 0.0
	current := 0.0
	for i, bar := range series.Bars {
		out.Points[i].Date = bar.Date

		if i < window-1 {
			sum += bar.Close
			continue
		}
		if i == window-1 {
			// SMA seed
			sum += bar.Close
			current = sum / float64(window)
		} else {
			current = alpha*bar.Close + (1-alpha)*current
		}
		out.Points[i].Value = current
		out.Points[i].Valid = true
	}
	return out, nil
}
