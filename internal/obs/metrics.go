// Package obs exposes Prometheus metrics for the API and the ledger service.
package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its registry so tests can build as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	entriesWritten  *prometheus.CounterVec
	settlementOps   *prometheus.CounterVec
	statementBuilds *prometheus.CounterVec
	publishFailures prometheus.Counter
	rateLimited     prometheus.Counter
	buildInfo       *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		entriesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_entries_written_total",
			Help: "Ledger entries persisted, by operation.",
		}, []string{"operation"}),
		settlementOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_settlement_operations_total",
			Help: "Settlement operations, by operation and outcome.",
		}, []string{"operation", "outcome"}),
		statementBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_statement_requests_total",
			Help: "Income statement requests, by cache result.",
		}, []string{"cache"}),
		publishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_event_publish_failures_total",
			Help: "Ledger events that could not be published.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "build_info",
			Help: "solarbooks build information.",
		}, []string{"version", "commit"}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpInFlight, m.httpRequestsTotal, m.httpRequestDuration,
		m.entriesWritten, m.settlementOps, m.statementBuilds,
		m.publishFailures, m.rateLimited, m.buildInfo,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SetBuildInfo(version, commit string) {
	m.buildInfo.WithLabelValues(version, commit).Set(1)
}

func (m *Metrics) EntriesWritten(op string, n int) {
	m.entriesWritten.WithLabelValues(op).Add(float64(n))
}

// Settlement records one settlement operation. outcome is ok, partial or error.
func (m *Metrics) Settlement(op, outcome string) {
	m.settlementOps.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) StatementRequest(hit bool) {
	label := "miss"
	if hit {
		label = "hit"
	}
	m.statementBuilds.WithLabelValues(label).Inc()
}

func (m *Metrics) PublishFailed() { m.publishFailures.Inc() }

func (m *Metrics) RateLimited() { m.rateLimited.Inc() }

// Instrument records RPS, latency and in-flight requests. It must wrap the
// ServeMux directly so the matched route pattern is visible after serving.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
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
