// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rowflow"

// Metrics holds every collector on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	// EntriesAppended counts ledger appends by session type.
	EntriesAppended *prometheus.CounterVec

	// RowsSkipped counts stored rows the aggregator could not date.
	RowsSkipped prometheus.Counter

	// Registrations counts registration attempts by outcome.
	Registrations *prometheus.CounterVec

	// RequestDuration observes RPC latency by procedure and code.
	RequestDuration *prometheus.HistogramVec
}

// New creates and registers all collectors, plus the Go and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		EntriesAppended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_entries_appended_total",
			Help:      "Training entries appended to the ledger.",
		}, []string{"session_type"}),
		RowsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregation_rows_skipped_total",
			Help:      "Stored rows skipped during aggregation because their date did not parse.",
		}),
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Account registration attempts.",
		}, []string{"result"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "RPC handling latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure", "code"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.EntriesAppended,
		m.RowsSkipped,
		m.Registrations,
		m.RequestDuration,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
