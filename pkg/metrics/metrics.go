// Package metrics exposes Prometheus metrics for the HTTP API and the
// permission resolver.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/doodlesbykumbi/orgperm/pkg/permission"
)

var _ permission.Observer = (*Metrics)(nil)

// Metrics owns a registry so tests and multiple servers do not collide on
// the global one.
type Metrics struct {
	registry *prometheus.Registry

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	resolverOperationsTotal *prometheus.CounterVec
	resolverDuration        *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "orgperm_http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orgperm_http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orgperm_http_request_duration_seconds",
				Help:    "HTTP request latencies in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		resolverOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orgperm_resolver_operations_total",
				Help: "Resolver operations by outcome.",
			},
			[]string{"operation", "target_type", "result"},
		),
		resolverDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orgperm_resolver_duration_seconds",
				Help:    "Resolver operation latencies in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "target_type"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpInFlight,
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.resolverOperationsTotal,
		m.resolverDuration,
	)
	return m
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Observe records a resolver operation.
func (m *Metrics) Observe(operation string, targetType permission.TargetType, err error, seconds float64) {
	m.resolverOperationsTotal.WithLabelValues(operation, targetType.String(), result(err)).Inc()
	m.resolverDuration.WithLabelValues(operation, targetType.String()).Observe(seconds)
}

func result(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, permission.ErrInvalidTarget), errors.Is(err, permission.ErrUnknownPermission):
		return "rejected"
	default:
		return "error"
	}
}

// Instrument measures requests, labelled by route template rather than raw
// path so ids do not become label values. Use it as mux middleware.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}

		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		status := strconv.Itoa(sw.code)
		m.httpRequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		m.httpRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
