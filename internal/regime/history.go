package regime

import (
	"gonum.org/v1/gonum/stat"

	"github.com/quantfolio/quantfolio/internal/schema"
)

// HistorySummary condenses the historical volatility table for the risk
// monitor view. Display-only: nothing in alerting or aggregation reads it.
type HistorySummary struct {
	Observations   int     `json:"observations"`
	Mean           float64 `json:"mean"`
	Min            float64 `json:"min"`
	Max            float64 `json:"max"`
	StdDev         float64 `json:"std_dev"`
	DaysAbove      int     `json:"days_above_threshold"`
	ThresholdLevel float64 `json:"threshold_level"`
}

// SummarizeHistory computes summary statistics over a VIX history against the
// evaluator's threshold. An empty history yields a zero-valued summary with
// Observations == 0, which callers treat as "nothing to display".
func (e *Evaluator) SummarizeHistory(history []schema.VixRecord) HistorySummary {
	summary := HistorySummary{ThresholdLevel: e.threshold}
	if len(history) == 0 {
		return summary
	}

	readings := make([]float64, len(history))
	summary.Min, summary.Max = history[0].VIX, history[0].VIX
	for i, rec := range history {
		readings[i] = rec.VIX
		if rec.VIX < summary.Min {
			summary.Min = rec.VIX
		}
		if rec.VIX > summary.Max {
			summary.Max = rec.VIX
		}
		if rec.VIX > e.threshold {
			summary.DaysAbove++
		}
	}

	summary.Observations = len(readings)
	summary.Mean = stat.Mean(readings, nil)
	if len(readings) > 1 {
		summary.StdDev = stat.StdDev(readings, nil)
	}

	return summary
}
