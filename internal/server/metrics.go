package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics backs the /metrics surface of spec §6: total connections, active
// connections, errors, and uptime seconds, registered on a private registry
// so tests can construct isolated instances.
type Metrics struct {
	registry    *prometheus.Registry
	connections prometheus.Counter
	active      prometheus.Gauge
	errors      prometheus.Counter
	startTime   time.Time
}

// NewMetrics constructs and registers the counters this gateway exposes.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		connections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pgwire_gateway_connections_total",
			Help: "Total number of accepted client connections",
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pgwire_gateway_active_connections",
			Help: "Number of currently active client connections",
		}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pgwire_gateway_errors_total",
			Help: "Total number of connection-handling errors",
		}),
		startTime: time.Now(),
	}

	registry.MustRegister(m.connections, m.active, m.errors)
	registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "pgwire_gateway_uptime_seconds",
		Help: "Seconds since the metrics were initialized",
	}, m.UptimeSeconds))
	return m
}

// ConnectionOpened records a newly accepted connection.
func (m *Metrics) ConnectionOpened() {
	m.connections.Inc()
	m.active.Inc()
}

// ConnectionClosed records a connection's teardown.
func (m *Metrics) ConnectionClosed() {
	m.active.Dec()
}

// RecordError increments the error counter.
func (m *Metrics) RecordError() {
	m.errors.Inc()
}

// UptimeSeconds reports the number of seconds since NewMetrics was called.
func (m *Metrics) UptimeSeconds() float64 {
	return time.Since(m.startTime).Seconds()
}

// Handler returns the HTTP handler that serves the Prometheus exposition
// format for this Metrics instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
