// Package metrics exposes Prometheus counters for the delay pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run outcomes used as the "outcome" label.
const (
	OutcomeWritten       = "written"
	OutcomeEmpty         = "empty"
	OutcomeProviderError = "provider_error"
	OutcomeUpstreamError = "upstream_error"
	OutcomeStorageError  = "storage_error"
)

type Metrics struct {
	registry *prometheus.Registry

	FetchRuns      *prometheus.CounterVec
	RecordsWritten *prometheus.CounterVec
	ItemsDropped   *prometheus.CounterVec
	FetchDuration  *prometheus.HistogramVec
}

// New creates the pipeline metrics on a private registry, so several
// instances can coexist in tests.
func New() (*Metrics, error) {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.FetchRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flight_delays_fetch_runs_total",
		Help: "Pipeline runs partitioned by flight type and outcome.",
	}, []string{"flight_type", "outcome"})

	m.RecordsWritten = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flight_delays_records_written_total",
		Help: "Delay records upserted, partitioned by flight type and operation.",
	}, []string{"flight_type", "op"})

	m.ItemsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flight_delays_items_dropped_total",
		Help: "Provider items discarded, partitioned by flight type and reason.",
	}, []string{"flight_type", "reason"})

	m.FetchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flight_delays_fetch_duration_seconds",
		Help:    "Duration of pipeline runs.",
		Buckets: prometheus.DefBuckets,
	}, []string{"flight_type"})

	for _, c := range []prometheus.Collector{
		m.FetchRuns,
		m.RecordsWritten,
		m.ItemsDropped,
		m.FetchDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun records one finished pipeline run. Safe on a nil receiver.
func (m *Metrics) ObserveRun(flightType, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.FetchRuns.WithLabelValues(flightType, outcome).Inc()
	m.FetchDuration.WithLabelValues(flightType).Observe(seconds)
}

// AddWritten records inserted and updated rows. Safe on a nil receiver.
func (m *Metrics) AddWritten(flightType string, inserted, updated int) {
	if m == nil {
		return
	}
	m.RecordsWritten.WithLabelValues(flightType, "insert").Add(float64(inserted))
	m.RecordsWritten.WithLabelValues(flightType, "update").Add(float64(updated))
}

// AddDropped records discarded items. Safe on a nil receiver.
func (m *Metrics) AddDropped(flightType, reason string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.ItemsDropped.WithLabelValues(flightType, reason).Add(float64(n))
}
