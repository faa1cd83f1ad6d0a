// Package report renders analysis results as plain text for CLI output.
package report

import (
	"fmt"
	"strings"

	"stockpulse/internal/indicator"
	"stockpulse/internal/model"
)

// FormatAnalysis renders a per-symbol summary: series range, latest close,
// and one line per requested indicator. Failed configurations are reported
// inline without suppressing the rest.
func FormatAnalysis(series *model.PriceSeries, results []indicator.Result) string {
	var b strings.Builder

	first, last := series.First(), series.Last()
	b.WriteString(fmt.Sprintf("%s  %s .. %s  (%d bars)\n",
		series.Symbol, first.Date.Format("2006-01-02"), last.Date.Format("2006-01-02"), series.Len()))
	b.WriteString(fmt.Sprintf("close %.2f  high %.2f  low %.2f  volume %d\n\n",
		last.Close, last.High, last.Low, last.Volume))

	for _, r := range results {
		name := r.Config.Name()
		if r.Err != nil {
			b.WriteString(fmt.Sprintf("  %-10s error: %v\n", name, r.Err))
			continue
		}
		point, ok := r.Series.LastDefined()
		if !ok {
			b.WriteString(fmt.Sprintf("  %-10s no defined values\n", name))
			continue
		}
		b.WriteString(fmt.Sprintf("  %-10s %s  %s  (%d/%d defined)\n",
			name,
			formatValue(r.Config.Kind, point.Value),
			point.Date.Format("2006-01-02"),
			r.Series.DefinedCount(), len(r.Series.Points)))
	}

	return b.String()
}

// FormatSnapshot renders a published analysis snapshot in the same layout.
func FormatSnapshot(snap *model.AnalysisSnapshot) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s  as of %s  close %.2f  (%d bars)\n",
		snap.Symbol, snap.AsOf.Format("2006-01-02"), snap.Close, snap.Bars))
	for _, iv := range snap.Indicators {
		if iv.Error != "" {
			b.WriteString(fmt.Sprintf("  %-10s error: %s\n", iv.Name, iv.Error))
			continue
		}
		if !iv.Ready {
			b.WriteString(fmt.Sprintf("  %-10s no defined values\n", iv.Name))
			continue
		}
		b.WriteString(fmt.Sprintf("  %-10s %.4f  (%d defined)\n", iv.Name, iv.Value, iv.Defined))
	}
	return b.String()
}

// Returns and volatility are small ratios; print them as percentages.
func formatValue(kind indicator.Kind, v float64) string {
	switch kind {
	case indicator.KindPeriodReturn, indicator.KindVolatility:
		return fmt.Sprintf("%+.2f%%", v*100)
	default:
		return fmt.Sprintf("%.4f", v)
	}
}
