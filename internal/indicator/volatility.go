package indicator

import (
	"math"

	"stockpulse/internal/model"
)

// Volatility computes the sample standard deviation (unbiased, n-1) of
// one-day returns over a trailing window. The first defined index is window,
// since window returns need window+1 bars. Zero closes in the underlying
// return computation raise an ArithmeticError with the denominator index.
func Volatility(series *model.PriceSeries, window int) (model.IndicatorSeries, error) {
	cfg := Config{Kind: KindVolatility, Window: window}
	if err := cfg.Validate(series.Len()); err != nil {
		return model.IndicatorSeries{}, err
	}

	n := series.Len()

	// One-day returns; returns[i] is the return ending at bar i, defined
	// for i >= 1.
	returns := make([]float64, n)
	for i := 1; i < n; i++ {
		base := series.Bars[i-1].Close
		if base == 0 {
			return model.IndicatorSeries{}, &ArithmeticError{Index: i - 1}
		}
		returns[i] = (series.Bars[i].Close - base) / base
	}

	out := model.IndicatorSeries{
		Name:   cfg.Name(),
		Points: make([]model.Point, n),
	}

	for i, bar := range series.Bars {
		out.Points[i].Date = bar.Date
		if i < window {
			continue
		}

		sum := 0.0
		for j := i - window + 1; j <= i; j++ {
			sum += returns[j]
		}
		mean := sum / float64(window)

		ss := 0.0
		for j := i - window + 1; j <= i; j++ {
			d := returns[j] - mean
			ss += d * d
		}

		out.Points[i].Value = math.Sqrt(ss / float64(window-1))
		out.Points[i].Valid = true
	}
	return out, nil
}
