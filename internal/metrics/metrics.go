// Package metrics holds the Prometheus collectors for the quote API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics struct contains all the metrics.
type Metrics struct {
	gatherer prometheus.Gatherer

	requestCounter      *prometheus.CounterVec
	requestHistogram    *prometheus.HistogramVec
	quoteCounter        *prometheus.CounterVec
	quoteTotalHistogram *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dronequote_http_requests_total",
				Help: "Total number of HTTP requests.",
			}, []string{"method", "route", "code"}),
		requestHistogram: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dronequote_http_request_seconds",
			Help:    "Histogram of HTTP response time.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		quoteCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dronequote_quotes_total",
				Help: "Total number of quote estimates by outcome.",
			}, []string{"service_type", "outcome"}),
		quoteTotalHistogram: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dronequote_quote_total_cents",
			Help:    "Histogram of issued quote totals in cents.",
			Buckets: prometheus.ExponentialBuckets(1000, 2.5, 10),
		}, []string{"service_type"}),
	}
	reg.MustRegister(m)
	return m
}

// Describe is the implementation for prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.requestCounter.Describe(ch)
	m.requestHistogram.Describe(ch)
	m.quoteCounter.Describe(ch)
	m.quoteTotalHistogram.Describe(ch)
}

// Collect is the implementation for prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.requestCounter.Collect(ch)
	m.requestHistogram.Collect(ch)
	m.quoteCounter.Collect(ch)
	m.quoteTotalHistogram.Collect(ch)
}

// HTTPHandler returns the exposition handler for the registry.
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method, route string, code int, elapsed time.Duration) {
	m.requestCounter.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.requestHistogram.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveQuote counts an estimate; totals are only recorded for issued quotes.
func (m *Metrics) ObserveQuote(serviceType, outcome string, totalCents int64) {
	if serviceType == "" {
		serviceType = "unknown"
	}
	m.quoteCounter.WithLabelValues(serviceType, outcome).Inc()
	if outcome == "ok" {
		m.quoteTotalHistogram.WithLabelValues(serviceType).Observe(float64(totalCents))
	}
}
