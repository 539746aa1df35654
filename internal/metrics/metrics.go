// Package metrics provides Prometheus metrics for RankView.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	ProviderRequests *prometheus.CounterVec
	ProviderDuration *prometheus.HistogramVec
	PagesRendered    *prometheus.CounterVec
	ErrorsTotal      *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		ProviderRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rankview_provider_requests_total",
				Help: "Total provider API calls by action and outcome.",
			},
			[]string{"action", "status"},
		),
		ProviderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rankview_provider_request_duration_seconds",
				Help:    "Provider API call duration by action.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"action"},
		),
		PagesRendered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rankview_pages_rendered_total",
				Help: "Pages served by page name and format.",
			},
			[]string{"page", "format"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rankview_errors_total",
				Help: "Total errors by module and type.",
			},
			[]string{"module", "type"},
		),
		registry: reg,
	}

	reg.MustRegister(m.ProviderRequests)
	reg.MustRegister(m.ProviderDuration)
	reg.MustRegister(m.PagesRendered)
	reg.MustRegister(m.ErrorsTotal)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordProviderCall increments the provider call counter.
func (m *Metrics) RecordProviderCall(action, status string) {
	m.ProviderRequests.WithLabelValues(action, status).Inc()
}

// ObserveProviderDuration records a provider call duration.
func (m *Metrics) ObserveProviderDuration(action string, seconds float64) {
	m.ProviderDuration.WithLabelValues(action).Observe(seconds)
}

// RecordPage increments the page render counter.
func (m *Metrics) RecordPage(page, format string) {
	m.PagesRendered.WithLabelValues(page, format).Inc()
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(module, errType string) {
	m.ErrorsTotal.WithLabelValues(module, errType).Inc()
}
