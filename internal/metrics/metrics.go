// Package metrics holds the Prometheus collectors for the server.
// A nil *Metrics is valid and records nothing.
package metrics

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

// Metrics holds all Prometheus collectors for the server
type Metrics struct {
	registry *prometheus.Registry

	RatingsTotal      *prometheus.CounterVec
	RatingConflicts   prometheus.Counter
	RatingResets      prometheus.Counter
	LiveStateMerges   *prometheus.CounterVec
	StreamSubscribers *prometheus.GaugeVec
	RequestDuration   *prometheus.HistogramVec
	RequestsInFlight  prometheus.Gauge
}

// New creates the collectors and registers them on a private registry
// together with the Go runtime and process collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RatingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pitchvote_ratings_total",
				Help: "Total ratings accepted, by category.",
			},
			[]string{"category"},
		),
		RatingConflicts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pitchvote_rating_conflicts_total",
				Help: "Full-array rating writes rejected because the stored ratings moved on.",
			},
		),
		RatingResets: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pitchvote_rating_resets_total",
				Help: "Total bulk rating resets.",
			},
		),
		LiveStateMerges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pitchvote_livestate_merges_total",
				Help: "Live state merges, by resulting mode.",
			},
			[]string{"mode"},
		),
		StreamSubscribers: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pitchvote_stream_subscribers",
				Help: "Connected live-state stream clients, by transport.",
			},
			[]string{"transport"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pitchvote_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds, by route, method and status.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method", "status"},
		),
		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pitchvote_http_requests_in_flight",
				Help: "Number of HTTP requests currently being served.",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RatingsTotal,
		m.RatingConflicts,
		m.RatingResets,
		m.LiveStateMerges,
		m.StreamSubscribers,
		m.RequestDuration,
		m.RequestsInFlight,
	)
	return m
}

// Registry exposes the registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RatingAccepted counts one accepted rating
func (m *Metrics) RatingAccepted(category string) {
	if m == nil {
		return
	}
	m.RatingsTotal.WithLabelValues(category).Inc()
}

// RatingConflict counts one rejected full-array write
func (m *Metrics) RatingConflict() {
	if m == nil {
		return
	}
	m.RatingConflicts.Inc()
}

// RatingsReset counts one bulk reset
func (m *Metrics) RatingsReset() {
	if m == nil {
		return
	}
	m.RatingResets.Inc()
}

// LiveStateMerged counts one successful merge
func (m *Metrics) LiveStateMerged(mode string) {
	if m == nil {
		return
	}
	m.LiveStateMerges.WithLabelValues(mode).Inc()
}

// SubscriberAdded and SubscriberRemoved track stream clients per transport
func (m *Metrics) SubscriberAdded(transport string) {
	if m == nil {
		return
	}
	m.StreamSubscribers.WithLabelValues(transport).Inc()
}

func (m *Metrics) SubscriberRemoved(transport string) {
	if m == nil {
		return
	}
	m.StreamSubscribers.WithLabelValues(transport).Dec()
}

// Middleware records request duration and in-flight count. Routes are
// labelled by their chi pattern to keep cardinality bounded.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Don't instrument the /metrics endpoint itself
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		m.RequestsInFlight.Inc()
		defer m.RequestsInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.RequestDuration.WithLabelValues(route, r.Method, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
