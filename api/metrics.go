package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors. Each Metrics owns its
// registry so tests can build several handlers side by side.
type Metrics struct {
	Registry *prometheus.Registry

	TransactionsSaved  prometheus.Counter
	TransactionsLinked *prometheus.CounterVec
	SessionTransitions *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
}

// NewMetrics registers every collector on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{Registry: reg}
	m.TransactionsSaved = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "kermes",
		Name:      "transactions_saved_total",
		Help:      "Checkouts written to the ledger.",
	})
	m.TransactionsLinked = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kermes",
		Name:      "transactions_linked_total",
		Help:      "Transactions assigned to a session by date range.",
	}, []string{"kind"})
	m.SessionTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kermes",
		Name:      "session_transitions_total",
		Help:      "Session lifecycle changes by target status.",
	}, []string{"status"})
	m.RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "kermes",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	reg.MustRegister(
		m.TransactionsSaved,
		m.TransactionsLinked,
		m.SessionTransitions,
		m.RequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// Instrument records request latency labelled by the chi route pattern.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.RequestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) linked(res int, kind string) {
	if m == nil || res == 0 {
		return
	}
	m.TransactionsLinked.WithLabelValues(kind).Add(float64(res))
}

func (m *Metrics) transition(status string) {
	if m == nil {
		return
	}
	m.SessionTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) saved() {
	if m == nil {
		return
	}
	m.TransactionsSaved.Inc()
}
