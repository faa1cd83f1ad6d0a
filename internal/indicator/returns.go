package indicator

import "stockpulse/internal/model"

// PeriodReturn computes the percentage change of the close price over window
// trading days: (close[i] - close[i-window]) / close[i-window]. A zero close
// acting as denominator raises an ArithmeticError naming its index; the
// configuration produces no partial output in that case.
func PeriodReturn(series *model.PriceSeries, window int) (model.IndicatorSeries, error) {
	cfg := Config{Kind: KindPeriodReturn, Window: window}
	if err := cfg.Validate(series.Len()); err != nil {
		return model.IndicatorSeries{}, err
	}

	out := model.IndicatorSeries{
		Name:   cfg.Name(),
		Points: make([]model.Point, series.Len()),
	}

	for i, bar := range series.Bars {
		out.Points[i].Date = bar.Date
		if i < window {
			continue
		}
		base := series.Bars[i-window].Close
		if base == 0 {
			return model.IndicatorSeries{}, &ArithmeticError{Index: i - window}
		}
		out.Points[i].Value = (bar.Close - base) / base
		out.Points[i].Valid = true
	}
	return out, nil
}
