package pipeline

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/quantfolio/quantfolio/internal/config"
	"github.com/quantfolio/quantfolio/internal/metrics"
	"github.com/quantfolio/quantfolio/internal/portfolio"
	"github.com/quantfolio/quantfolio/internal/regime"
	"github.com/quantfolio/quantfolio/internal/schema"
)

// Aggregates carries the portfolio-level statistics. It is nil on the report
// when the batch had no valid rows, which is the "no data" display case
// rather than a zero mean.
type Aggregates struct {
	AverageScore      float64 `json:"average_score"`
	RiskAdjustedRatio float64 `json:"risk_adjusted_ratio"`
}

// Report is the outcome of one evaluation pass: a fresh batch computation
// over a newly supplied snapshot, never mutated afterwards.
type Report struct {
	ID               string               `json:"id"`
	Timestamp        time.Time            `json:"timestamp"`
	Records          []schema.ScoreRecord `json:"records"` // overview order: score descending
	Alerts           []portfolio.Alert    `json:"alerts"`
	SectorAllocation map[string]float64   `json:"sector_allocation"`
	Aggregates       *Aggregates          `json:"aggregates,omitempty"`
	VIX              float64              `json:"vix"`
	Regime           regime.Regime        `json:"regime"`
	Invalid          []schema.RowError    `json:"invalid_records,omitempty"`
}

// Stable reports whether the pass produced no alerts.
func (r *Report) Stable() bool {
	return len(r.Alerts) == 0
}

// Engine runs the evaluation pass: normalize, derive deltas, then classify
// alerts and compute aggregates over the same normalized table, with the
// regime evaluated from the supplied volatility reading.
type Engine struct {
	cfg        *config.Config
	classifier *portfolio.Classifier
	evaluator  *regime.Evaluator
	metrics    *metrics.Registry
}

// New builds an engine from configuration. The metrics registry may be nil
// when no observation surface is wanted (one-shot CLI runs).
func New(cfg *config.Config, m *metrics.Registry) *Engine {
	return &Engine{
		cfg:        cfg,
		classifier: portfolio.NewClassifier(cfg.Thresholds),
		evaluator:  regime.NewEvaluator(cfg.Thresholds.CircuitBreakerVIX),
		metrics:    m,
	}
}

// Regime exposes the engine's regime evaluator for history summaries.
func (e *Engine) Regime() *regime.Evaluator {
	return e.evaluator
}

// Evaluate runs one pass over a raw snapshot. Invalid rows are excluded and
// reported on the result; they never abort the batch.
func (e *Engine) Evaluate(rows []schema.RawRow, vix float64) *Report {
	started := time.Now()

	records, invalid := schema.Normalize(rows)
	records = portfolio.ComputeDeltas(records)

	report := &Report{
		ID:               uuid.NewString(),
		Timestamp:        started.UTC(),
		Records:          portfolio.OverviewOrder(records),
		Alerts:           e.classifier.Classify(records),
		SectorAllocation: portfolio.SectorAllocation(records),
		VIX:              vix,
		Regime:           e.evaluator.Observe(started, vix),
		Invalid:          invalid,
	}

	if avg, err := portfolio.AverageScore(records); err == nil {
		ratio, _ := portfolio.RiskAdjustedRatio(records, e.cfg.Thresholds.RiskFloor)
		report.Aggregates = &Aggregates{
			AverageScore:      avg,
			RiskAdjustedRatio: ratio,
		}
	}

	e.observe(report, len(records))

	log.Info().
		Str("report_id", report.ID).
		Int("records", len(records)).
		Int("invalid", len(invalid)).
		Int("alerts", len(report.Alerts)).
		Str("regime", report.Regime.String()).
		Dur("elapsed", time.Since(started)).
		Msg("evaluation pass complete")

	return report
}

// Breakdown reshapes the normalized records of a report into the component
// matrix. Callers fall back to portfolio.FallbackList when unavailable.
func (e *Engine) Breakdown(records []schema.ScoreRecord) portfolio.BreakdownResult {
	return portfolio.BuildBreakdown(records)
}

func (e *Engine) observe(report *Report, validRows int) {
	if e.metrics == nil {
		return
	}
	e.metrics.Evaluations.Inc()
	e.metrics.InvalidRecords.Add(float64(len(report.Invalid)))
	e.metrics.RecordsInBatch.Set(float64(validRows))
	e.metrics.ObserveAlerts(report.Alerts)
	e.metrics.ObserveRegime(report.Regime)
	if report.Aggregates != nil {
		e.metrics.AverageScore.Set(report.Aggregates.AverageScore)
		e.metrics.RiskAdjusted.Set(report.Aggregates.RiskAdjustedRatio)
	}
}
