// Package metrics exposes Prometheus instrumentation for the proxy, the
// client and the indexing worker.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns every metric registered by this module.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	upstreamFailures *prometheus.CounterVec

	searchFallbacks  prometheus.Counter
	searchSuperseded prometheus.Counter

	indexJobs        *prometheus.CounterVec
	indexJobDuration prometheus.Histogram
}

type Option func(*Manager)

func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// WithRegistry registers metrics on r instead of a fresh registry.
func WithRegistry(r *prometheus.Registry) Option {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "cvsearch",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.init()
	return m
}

func (m *Manager) init() {
	auto := promauto.With(m.registry)

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Requests served, by method, route and status",
	}, []string{"method", "route", "status"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Request latency by method and route",
		Buckets:   m.histogramBuckets,
	}, []string{"method", "route"})

	m.upstreamRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "upstream",
		Name:      "requests_total",
		Help:      "Calls forwarded to the candidate backend, by route and status",
	}, []string{"route", "status"})

	m.upstreamDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "upstream",
		Name:      "request_duration_seconds",
		Help:      "Latency of calls to the candidate backend",
		Buckets:   m.histogramBuckets,
	}, []string{"route"})

	m.upstreamFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "upstream",
		Name:      "transport_failures_total",
		Help:      "Calls that never produced an upstream response",
	}, []string{"route"})

	m.searchFallbacks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "client",
		Name:      "search_post_fallbacks_total",
		Help:      "Searches retried with POST after a failed GET",
	})

	m.searchSuperseded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "client",
		Name:      "search_superseded_total",
		Help:      "Searches cancelled by a newer search from the same visitor",
	})

	m.indexJobs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "indexer",
		Name:      "jobs_total",
		Help:      "Indexing jobs finished, by outcome",
	}, []string{"outcome"})

	m.indexJobDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "indexer",
		Name:      "job_duration_seconds",
		Help:      "Time spent indexing one CV",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
	})
}

func (m *Manager) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveUpstream records one upstream call. status 0 means no response.
func (m *Manager) ObserveUpstream(route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.upstreamDuration.WithLabelValues(route).Observe(elapsed.Seconds())
	if status == 0 {
		m.upstreamFailures.WithLabelValues(route).Inc()
		return
	}
	m.upstreamRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

func (m *Manager) IncSearchFallback() {
	if m != nil {
		m.searchFallbacks.Inc()
	}
}

func (m *Manager) IncSearchSuperseded() {
	if m != nil {
		m.searchSuperseded.Inc()
	}
}

func (m *Manager) ObserveIndexJob(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.indexJobs.WithLabelValues(outcome).Inc()
	m.indexJobDuration.Observe(elapsed.Seconds())
}

// Middleware records request count and latency per matched route.
func (m *Manager) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}
		route := c.Route().Path
		method := c.Method()

		m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		m.httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		return err
	}
}
