// Package telemetry holds the Prometheus collectors exported on /metrics.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Plan transaction outcomes.
const (
	OutcomeCommitted      = "committed"
	OutcomeRolledBack     = "rolled_back"
	OutcomeRollbackFailed = "rollback_failed"
	OutcomeJournalFailed  = "journal_failed"
)

// Metrics holds all Prometheus metrics for positionbook. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	PlanTransactions *prometheus.CounterVec // labels: outcome
	TradesRecorded   *prometheus.CounterVec // labels: direction
	PriceMisses      prometheus.Counter
	MetricsDuration  prometheus.Histogram

	gatherer prometheus.Gatherer
}

// NewMetrics creates the collectors and registers them with reg. When reg is
// nil a private registry is used.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		PlanTransactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "positionbook_plan_transactions_total",
			Help: "Position+journal create transactions by outcome",
		}, []string{"outcome"}),
		TradesRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "positionbook_trades_recorded_total",
			Help: "Trades appended to position logs (by direction)",
		}, []string{"direction"}),
		PriceMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "positionbook_price_snapshot_misses_total",
			Help: "Symbols requested in a price snapshot with no known price",
		}),
		MetricsDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "positionbook_metrics_compute_duration_seconds",
			Help:    "Time to recompute status and metrics for one position",
			Buckets: []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001},
		}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.PlanTransactions,
		m.TradesRecorded,
		m.PriceMisses,
		m.MetricsDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// PlanOutcome counts one finished plan transaction.
func (m *Metrics) PlanOutcome(outcome string) {
	if m == nil {
		return
	}
	m.PlanTransactions.WithLabelValues(outcome).Inc()
}

// TradeRecorded counts one appended trade.
func (m *Metrics) TradeRecorded(direction string) {
	if m == nil {
		return
	}
	m.TradesRecorded.WithLabelValues(direction).Inc()
}

// PriceMissed adds n snapshot misses.
func (m *Metrics) PriceMissed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.PriceMisses.Add(float64(n))
}

// ObserveMetrics records how long a metrics projection took since start.
func (m *Metrics) ObserveMetrics(start time.Time) {
	if m == nil {
		return
	}
	m.MetricsDuration.Observe(time.Since(start).Seconds())
}
