// Package metrics exposes simulator counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iwvelando/credit-simulator/pkg/credit"
)

const namespace = "credit_simulator"

// Metrics holds the simulator's collectors on a private registry. A nil
// *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	simulations        *prometheus.CounterVec
	productsEvaluated  *prometheus.CounterVec
	productsSkipped    *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	simulationDuration prometheus.Histogram
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		simulations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "simulations_total",
			Help:      "Simulations run, by product family and outcome.",
		}, []string{"family", "outcome"}),
		productsEvaluated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "products_offered_total",
			Help:      "Products the applicant qualified for, by family.",
		}, []string{"family"}),
		productsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "products_skipped_total",
			Help:      "Products not offered, by reason.",
		}, []string{"reason"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "status"}),
		simulationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "simulation_duration_seconds",
			Help:      "Time to run a simulation including persistence.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
	}
	m.registry.MustRegister(
		m.simulations,
		m.productsEvaluated,
		m.productsSkipped,
		m.httpRequests,
		m.simulationDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveSimulation records one simulation. outcome is "ok", "incomplete" or
// "error".
func (m *Metrics) ObserveSimulation(family, outcome string, offered int, skipped []credit.Skip, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.simulations.WithLabelValues(family, outcome).Inc()
	m.productsEvaluated.WithLabelValues(family).Add(float64(offered))
	for _, skip := range skipped {
		m.productsSkipped.WithLabelValues(skip.Reason).Inc()
	}
	m.simulationDuration.Observe(elapsed.Seconds())
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
}
