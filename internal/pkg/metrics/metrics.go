package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ServerMetrics struct {
	Requests    *prometheus.CounterVec
	LatencyMS   *prometheus.HistogramVec
	Checkouts   *prometheus.CounterVec
	ChatReplies *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewServerMetrics registers the storefront collectors on a fresh registry.
func NewServerMetrics(service string) *ServerMetrics {
	reg := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "foodie",
		Subsystem: service,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "foodie",
		Subsystem: service,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 30000, 60000},
	}, []string{"handler"})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "foodie",
		Subsystem: service,
		Name:      "checkout_settlements_total",
		Help:      "Checkout settlement attempts by outcome.",
	}, []string{"outcome"})
	chat := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "foodie",
		Subsystem: service,
		Name:      "chat_replies_total",
		Help:      "Assistant replies by outcome.",
	}, []string{"outcome"})

	reg.MustRegister(requests, latency, checkouts, chat,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &ServerMetrics{
		Requests:    requests,
		LatencyMS:   latency,
		Checkouts:   checkouts,
		ChatReplies: chat,
		gatherer:    reg,
	}
}

func (m *ServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
