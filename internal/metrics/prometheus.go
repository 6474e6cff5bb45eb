// Package metrics exposes Prometheus metrics for ledger audit runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ruralpay/ledger-audit/internal/models"
)

var violationKinds = []models.ViolationKind{
	models.KindBalanceMismatch,
	models.KindTeamBalanceNonZero,
	models.KindOrphanIdentity,
	models.KindOrphanWithActivePledge,
	models.KindDuplicatePledge,
}

// Metrics holds the audit metrics and the registry they live in.
type Metrics struct {
	RunsTotal      *prometheus.CounterVec
	Violations     *prometheus.GaugeVec
	RunDuration    prometheus.Histogram
	LastRunUnix    prometheus.Gauge
	SettlementOpen prometheus.Gauge

	registry *prometheus.Registry
}

// New creates the audit metrics on a private registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledger_audit",
			Name:      "runs_total",
			Help:      "Audit runs by outcome",
		},
		[]string{"result"}, // "ok", "violations", "error"
	)

	m.Violations = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "ledger_audit",
			Name:      "violations",
			Help:      "Violations found by the last completed run, by kind",
		},
		[]string{"kind"},
	)

	m.RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ledger_audit",
			Name:      "run_duration_seconds",
			Help:      "Time to read the snapshot and run every check",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	m.LastRunUnix = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ledger_audit",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed run",
		},
	)

	m.SettlementOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ledger_audit",
			Name:      "settlement_in_progress",
			Help:      "1 when the last run saw a settlement batch running",
		},
	)

	m.registry.MustRegister(
		m.RunsTotal,
		m.Violations,
		m.RunDuration,
		m.LastRunUnix,
		m.SettlementOpen,
	)
	m.registry.MustRegister(prometheus.NewGoCollector())

	return m
}

// Handler returns an HTTP handler for the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordReport stores the outcome of a completed run.
func (m *Metrics) RecordReport(report *models.Report, took time.Duration) {
	result := "ok"
	if !report.OK() {
		result = "violations"
	}
	m.RunsTotal.WithLabelValues(result).Inc()
	m.RunDuration.Observe(took.Seconds())
	m.LastRunUnix.Set(float64(report.FinishedAt.Unix()))

	counts := report.CountByKind()
	for _, kind := range violationKinds {
		m.Violations.WithLabelValues(string(kind)).Set(float64(counts[kind]))
	}

	if report.Settlement.IsInProgress() {
		m.SettlementOpen.Set(1)
	} else {
		m.SettlementOpen.Set(0)
	}
}

// RecordError counts a run that could not complete.
func (m *Metrics) RecordError(took time.Duration) {
	m.RunsTotal.WithLabelValues("error").Inc()
	m.RunDuration.Observe(took.Seconds())
}
