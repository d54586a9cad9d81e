package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Routing outcome labels.
const (
	RoutingOutcomeAssigned = "assigned"
	RoutingOutcomeNoop     = "noop"
	RoutingOutcomeError    = "error"
)

// Metrics exposes Prometheus collectors for the service.
type Metrics struct {
	registry        *prometheus.Registry
	requestTotal    *prometheus.CounterVec
	errorTotal      *prometheus.CounterVec
	routingTotal    *prometheus.CounterVec
	routingDuration prometheus.Histogram
}

// NewMetrics initializes and registers collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_http_requests_total",
			Help: "HTTP requests by path, method and status.",
		}, []string{"path", "method", "status"}),
		errorTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_http_errors_total",
			Help: "Request errors by path, method and error code.",
		}, []string{"path", "method", "code"}),
		routingTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_routing_total",
			Help: "Auto-routing passes by outcome.",
		}, []string{"outcome"}),
		routingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "helpdesk_routing_duration_seconds",
			Help:    "Duration of an auto-routing pass.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	registry.MustRegister(m.requestTotal, m.errorTotal, m.routingTotal, m.routingDuration)
	return m
}

// Registry returns the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestTotal.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errorTotal.WithLabelValues(path, method, code).Inc()
}

// RecordRouting records one routing pass.
func (m *Metrics) RecordRouting(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.routingTotal.WithLabelValues(outcome).Inc()
	m.routingDuration.Observe(duration.Seconds())
}
