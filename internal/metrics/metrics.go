// Package metrics owns the Prometheus registry and the collectors recorded by
// the HTTP layer, the shipping service and the event publisher. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "logistics"

type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	ShipmentOperations *prometheus.CounterVec
	ShipmentsCreated   *prometheus.CounterVec
	DiscountsGranted   *prometheus.CounterVec

	EventsPublished     *prometheus.CounterVec
	CircuitBreakerState *prometheus.GaugeVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: registry}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	m.HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path"})

	m.HTTPRequestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "http_requests_in_flight",
		Help:      "HTTP requests currently being served",
	})

	m.ShipmentOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "shipment_operations_total",
		Help:      "Shipment lifecycle operations by outcome",
	}, []string{"operation", "outcome"})

	m.ShipmentsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "shipments_created_total",
		Help:      "Shipments created by mode",
	}, []string{"mode"})

	m.DiscountsGranted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "shipment_discounts_granted_total",
		Help:      "Shipments priced with a volume discount, by mode",
	}, []string{"mode"})

	m.EventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Shipment events handed to the broker, by outcome",
	}, []string{"type", "outcome"})

	m.CircuitBreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
	}, []string{"name"})

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.ShipmentOperations,
		m.ShipmentsCreated,
		m.DiscountsGranted,
		m.EventsPublished,
		m.CircuitBreakerState,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) InFlight(delta float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsInFlight.Add(delta)
}

func (m *Metrics) RecordShipmentOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.ShipmentOperations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) RecordShipmentCreated(mode string, discounted bool) {
	if m == nil {
		return
	}
	m.ShipmentsCreated.WithLabelValues(mode).Inc()
	if discounted {
		m.DiscountsGranted.WithLabelValues(mode).Inc()
	}
}

func (m *Metrics) RecordEventPublished(eventType string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.EventsPublished.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}
