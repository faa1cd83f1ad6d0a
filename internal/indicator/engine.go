package indicator

import (
	"sync"

	"stockpulse/internal/model"
)

// Result pairs one requested configuration with its computed series or the
// error that halted it. A failed configuration never affects the others.
type Result struct {
	Config Config
	Series model.IndicatorSeries
	Err    error
}

// Engine computes a set of indicator configurations over one price series.
// It is stateless; a single engine can serve any number of runs.
type Engine struct{}

// NewEngine creates an indicator engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Compute runs a single configuration against the series.
func (e *Engine) Compute(series *model.PriceSeries, cfg Config) (model.IndicatorSeries, error) {
	if err := cfg.Validate(series.Len()); err != nil {
		return model.IndicatorSeries{}, err
	}
	switch cfg.Kind {
	case KindSMA:
		return SMA(series, cfg.Window)
	case KindEMA:
		return EMA(series, cfg.Window)
	case KindPeriodReturn:
		return PeriodReturn(series, cfg.Window)
	default:
		return Volatility(series, cfg.Window)
	}
}

// ComputeAll runs every configuration against the series. Configurations are
// independent, so they fan out across goroutines; each writes only its own
// result slot. Results come back in request order.
func (e *Engine) ComputeAll(series *model.PriceSeries, configs []Config) []Result {
	results := make([]Result, len(configs))

	var wg sync.WaitGroup
	for i, cfg := range configs {
		results[i].Config = cfg
		wg.Add(1)
		go func(i int, cfg Config) {
			defer wg.Done()
			results[i].Series, results[i].Err = e.Compute(series, cfg)
		}(i, cfg)
	}
	wg.Wait()

	return results
}
