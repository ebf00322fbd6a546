package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/quantfolio/quantfolio/internal/portfolio"
	"github.com/quantfolio/quantfolio/internal/regime"
)

// Registry holds the Prometheus metrics for the evaluation pipeline and the
// serving surface.
type Registry struct {
	reg *prometheus.Registry

	Evaluations    prometheus.Counter
	InvalidRecords prometheus.Counter
	AlertsEmitted  *prometheus.CounterVec
	AverageScore   prometheus.Gauge
	RiskAdjusted   prometheus.Gauge
	CircuitBreaker prometheus.Gauge
	RecordsInBatch prometheus.Gauge
}

// NewRegistry creates and registers all quantfolio metrics on a dedicated
// Prometheus registry.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		Evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quantfolio_evaluations_total",
			Help: "Number of completed evaluation passes",
		}),
		InvalidRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quantfolio_invalid_records_total",
			Help: "Rows excluded from evaluation as uninterpretable",
		}),
		AlertsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quantfolio_alerts_total",
			Help: "Alerts emitted per classification kind",
		}, []string{"kind"}),
		AverageScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "quantfolio_average_score",
			Help: "Mean composite score of the latest evaluation",
		}),
		RiskAdjusted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "quantfolio_risk_adjusted_ratio",
			Help: "Risk-adjusted score ratio of the latest evaluation",
		}),
		CircuitBreaker: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "quantfolio_circuit_breaker_active",
			Help: "1 when the volatility circuit breaker is active, else 0",
		}),
		RecordsInBatch: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "quantfolio_records_in_batch",
			Help: "Valid records in the latest evaluation batch",
		}),
	}

	r.reg.MustRegister(
		r.Evaluations,
		r.InvalidRecords,
		r.AlertsEmitted,
		r.AverageScore,
		r.RiskAdjusted,
		r.CircuitBreaker,
		r.RecordsInBatch,
	)

	return r
}

// Prometheus exposes the underlying registry for the /metrics handler.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.reg
}

// ObserveAlerts counts the emitted alerts by kind.
func (r *Registry) ObserveAlerts(alerts []portfolio.Alert) {
	for _, a := range alerts {
		r.AlertsEmitted.WithLabelValues(a.Kind.String()).Inc()
	}
}

// ObserveRegime reflects the current regime on the circuit-breaker gauge.
func (r *Registry) ObserveRegime(current regime.Regime) {
	if current == regime.CircuitBreakerActive {
		r.CircuitBreaker.Set(1)
		return
	}
	r.CircuitBreaker.Set(0)
}
