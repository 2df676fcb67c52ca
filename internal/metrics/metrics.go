// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package metrics exports controller activity as Prometheus counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wneessen/userlocation/internal/controller"
	"github.com/wneessen/userlocation/internal/permission"
)

const namespace = "userlocation"

type Metrics struct {
	registry *prometheus.Registry

	authorizations  *prometheus.CounterVec
	geocodes        *prometheus.CounterVec
	routings        *prometheus.CounterVec
	routesCancelled prometheus.Counter
	notices         *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		authorizations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "permission",
			Name:      "authorization_changes_total",
			Help:      "Total authorization evaluations by state",
		}, []string{"state"}),
		geocodes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "geocode",
			Name:      "requests_total",
			Help:      "Total reverse geocode requests by result",
		}, []string{"result"}),
		routings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "requests_total",
			Help:      "Total route requests by result",
		}, []string{"result"}),
		routesCancelled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "cancelled_total",
			Help:      "Total route requests cancelled by a newer request",
		}),
		notices: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notice",
			Name:      "shown_total",
			Help:      "Total notices shown by kind",
		}, []string{"kind"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed",
		}, []string{"method", "path", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "path"}),
	}
}

func (m *Metrics) ObserveAuthorization(state permission.State) {
	m.authorizations.WithLabelValues(state.String()).Inc()
}

func (m *Metrics) ObserveGeocode(result string) {
	m.geocodes.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRouting(result string) {
	m.routings.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRouteCancelled() {
	m.routesCancelled.Inc()
}

func (m *Metrics) ObserveNotice(kind controller.Kind) {
	m.notices.WithLabelValues(kind.String()).Inc()
}

// ObserveRequest records a served HTTP request. path is the route template, not the raw path.
func (m *Metrics) ObserveRequest(method, path, status string, seconds float64) {
	m.httpRequests.WithLabelValues(method, path, status).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(seconds)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
