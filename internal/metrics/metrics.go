// Package metrics exposes Prometheus collectors for the data service and the
// visualization host.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chronos"

// Registry owns a private Prometheus registry and the collectors on it.
type Registry struct {
	reg *prometheus.Registry

	fetchTotal    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	playback      *prometheus.CounterVec
	viewSwitches  *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	ingested      prometheus.Counter
}

// NewRegistry registers every collector plus the Go and process collectors.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "fetch_total",
			Help:      "Data client requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "fetch_duration_seconds",
			Help:      "Data client request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		playback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "view",
			Name:      "playback_events_total",
			Help:      "Timeline playback transitions.",
		}, []string{"event"}),
		viewSwitches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "view",
			Name:      "switches_total",
			Help:      "Active view changes by target view.",
		}, []string{"view"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served by route, method and status code.",
		}, []string{"route", "method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		ingested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "ingested_transactions_total",
			Help:      "Transactions written to the store.",
		}),
	}
	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.fetchTotal, r.fetchDuration,
		r.playback, r.viewSwitches,
		r.httpRequests, r.httpDuration,
		r.ingested,
	)
	return r
}

// ObserveFetch records one data client request.
func (r *Registry) ObserveFetch(endpoint, outcome string, elapsed time.Duration) {
	r.fetchTotal.WithLabelValues(endpoint, outcome).Inc()
	r.fetchDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// PlaybackEvent counts a playback transition such as "started" or "completed".
func (r *Registry) PlaybackEvent(event string) {
	r.playback.WithLabelValues(event).Inc()
}

// ViewSwitched counts activation of view.
func (r *Registry) ViewSwitched(view string) {
	r.viewSwitches.WithLabelValues(view).Inc()
}

// ObserveHTTP records a served request.
func (r *Registry) ObserveHTTP(route, method string, code int, elapsed time.Duration) {
	r.httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	r.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Ingested adds n stored transactions.
func (r *Registry) Ingested(n int) {
	if n > 0 {
		r.ingested.Add(float64(n))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}
