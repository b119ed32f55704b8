// Package metrics exposes gateway counters and latencies to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is what the gateway records.
type Metrics interface {
	ObserveRequest(method, route, status string, durationSeconds float64)
	IncDecision(method string)
	IncVerification(class, outcome string)
	ObserveQuery(mode, outcome string, durationSeconds float64)
}

// Verification outcomes.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Noop implements Metrics without emitting anything.
type Noop struct{}

func (Noop) ObserveRequest(string, string, string, float64) {}
func (Noop) IncDecision(string)                             {}
func (Noop) IncVerification(string, string)                 {}
func (Noop) ObserveQuery(string, string, float64)           {}

// Prom implements Metrics backed by Prometheus collectors.
type Prom struct {
	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	decisions     *prometheus.CounterVec
	verifications *prometheus.CounterVec
	queries       *prometheus.HistogramVec
}

// NewProm creates the collectors and registers them with reg.
func NewProm(namespace string, reg prometheus.Registerer) *Prom {
	p := &Prom{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method/route/status",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method/route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_decisions_total",
			Help:      "Credential selections by method",
		}, []string{"method"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identity_verifications_total",
			Help:      "Identity verifications by token class and outcome",
		}, []string{"class", "outcome"}),
		queries: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Warehouse query latency by auth mode and outcome",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"mode", "outcome"}),
	}
	reg.MustRegister(p.requests, p.latency, p.decisions, p.verifications, p.queries)
	return p
}

func (p *Prom) ObserveRequest(method, route, status string, durationSeconds float64) {
	p.requests.WithLabelValues(method, route, status).Inc()
	p.latency.WithLabelValues(method, route).Observe(durationSeconds)
}

func (p *Prom) IncDecision(method string) {
	p.decisions.WithLabelValues(method).Inc()
}

func (p *Prom) IncVerification(class, outcome string) {
	p.verifications.WithLabelValues(class, outcome).Inc()
}

func (p *Prom) ObserveQuery(mode, outcome string, durationSeconds float64) {
	p.queries.WithLabelValues(mode, outcome).Observe(durationSeconds)
}

// Handler returns an HTTP handler serving the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
