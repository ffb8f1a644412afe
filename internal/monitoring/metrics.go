// Package monitoring exposes Prometheus metrics for snapshot refreshes and
// request handling.
package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "account_intel"

// Metrics holds every collector on its own registry, so tests and multiple
// servers in one process never collide on the default registry.
type Metrics struct {
	registry *prometheus.Registry

	refreshTotal    *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	snapshotClients prometheus.Gauge
	snapshotSkipped prometheus.Gauge
	snapshotAge     prometheus.Gauge

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	cacheLookups    *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors. A nil *Metrics is valid
// and records nothing.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		refreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "snapshot", Name: "refresh_total",
			Help: "Snapshot refresh attempts by result.",
		}, []string{"result"}),
		refreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "snapshot", Name: "refresh_duration_seconds",
			Help:    "Time to load and build a snapshot.",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		snapshotClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "snapshot", Name: "clients",
			Help: "Clients in the current snapshot.",
		}),
		snapshotSkipped: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "snapshot", Name: "skipped_records",
			Help: "Raw records excluded from the current snapshot.",
		}),
		snapshotAge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "snapshot", Name: "built_timestamp_seconds",
			Help: "Unix time the current snapshot was built.",
		}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "lookups_total",
			Help: "Response cache lookups by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		m.refreshTotal, m.refreshDuration,
		m.snapshotClients, m.snapshotSkipped, m.snapshotAge,
		m.requestTotal, m.requestDuration, m.cacheLookups,
		prometheus.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveRefresh records one refresh attempt. clients and skipped are only
// recorded on success.
func (m *Metrics) ObserveRefresh(d time.Duration, err error, clients, skipped int, builtAt time.Time) {
	if m == nil {
		return
	}
	m.refreshDuration.Observe(d.Seconds())
	if err != nil {
		m.refreshTotal.WithLabelValues("error").Inc()
		return
	}
	m.refreshTotal.WithLabelValues("ok").Inc()
	m.snapshotClients.Set(float64(clients))
	m.snapshotSkipped.Set(float64(skipped))
	m.snapshotAge.Set(float64(builtAt.Unix()))
}

// ObserveCoalesced records a refresh request that joined one in flight.
func (m *Metrics) ObserveCoalesced() {
	if m == nil {
		return
	}
	m.refreshTotal.WithLabelValues("coalesced").Inc()
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveCache records a response cache hit or miss.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}
