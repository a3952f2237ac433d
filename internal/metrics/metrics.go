// Package metrics exposes Prometheus counters for oracle calls, searches and
// reservations. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "staymatch"

// Outcome labels
const (
	OutcomeOK          = "ok"
	OutcomeEmpty       = "empty"
	OutcomeError       = "error"
	OutcomeNoMatch     = "no_match"
	OutcomeMatched     = "matched"
	OutcomeRejected    = "rejected"
	OutcomeUnavailable = "unavailable"
)

// Reservation action labels
const (
	ActionCommitted = "committed"
	ActionCancelled = "cancelled"
	ActionImported  = "imported"
	ActionConflict  = "conflict"
)

// Metrics holds the service's collectors and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	oracleCalls   *prometheus.CounterVec   // by kind and outcome
	oracleLatency *prometheus.HistogramVec // by kind
	searches      *prometheus.CounterVec   // by outcome
	reservations  *prometheus.CounterVec   // by action
	catalogSize   prometheus.Gauge
	httpRequests  *prometheus.CounterVec   // by method, route and status
	httpLatency   *prometheus.HistogramVec // by route
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		oracleCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "calls_total",
			Help:      "Oracle calls by kind (term, date, extract) and outcome",
		}, []string{"kind", "outcome"}),

		oracleLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "call_duration_seconds",
			Help:      "Oracle round-trip latency",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"kind"}),

		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Searches by outcome (matched, no_match, rejected, unavailable, error)",
		}, []string{"outcome"}),

		reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "reservations_total",
			Help:      "Reservation lifecycle actions (committed, cancelled, imported, conflict)",
		}, []string{"action"}),

		catalogSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "properties",
			Help:      "Number of properties in the loaded catalog",
		}),

		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route template and status code",
		}, []string{"method", "route", "status"}),

		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route template",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		m.oracleCalls,
		m.oracleLatency,
		m.searches,
		m.reservations,
		m.catalogSize,
		m.httpRequests,
		m.httpLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveOracle records one oracle call.
func (m *Metrics) ObserveOracle(kind, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.oracleCalls.WithLabelValues(kind, outcome).Inc()
	m.oracleLatency.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// Search records the outcome of one search.
func (m *Metrics) Search(outcome string) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(outcome).Inc()
}

// Reservation records a reservation lifecycle action.
func (m *Metrics) Reservation(action string) {
	if m == nil {
		return
	}
	m.reservations.WithLabelValues(action).Inc()
}

// SetCatalogSize records the number of loaded properties.
func (m *Metrics) SetCatalogSize(n int) {
	if m == nil {
		return
	}
	m.catalogSize.Set(float64(n))
}

// ObserveHTTP records one served request. Route is the matched template,
// not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(route).Observe(elapsed.Seconds())
}
