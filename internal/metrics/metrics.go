// Package metrics holds Prometheus collectors of the server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/indigo-web/minihttp/http/status"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "minihttp"

// Metrics is safe for concurrent use. Collectors work even if never registered.
type Metrics struct {
	Connections prometheus.Counter
	InFlight    prometheus.Gauge
	Requests    *prometheus.CounterVec
	Malformed   prometheus.Counter
	Panics      prometheus.Counter
	Duration    prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		Connections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Connections taken by workers.",
		}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_in_flight",
			Help:      "Connections being processed right now.",
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_total",
			Help:      "Responses written, by status code.",
		}, []string{"code"}),
		Malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_requests_total",
			Help:      "Requests rejected by the parser.",
		}),
		Panics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_panics_total",
			Help:      "Handler panics recovered into 500 responses.",
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "connection_duration_seconds",
			Help:      "Time from taking a connection until closing it.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Register adds every collector to the registerer.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.Connections, m.InFlight, m.Requests, m.Malformed, m.Panics, m.Duration,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}

	return nil
}

// ConnStarted marks a connection as taken and returns a func to be called when it's
// closed.
func (m *Metrics) ConnStarted() (done func()) {
	start := time.Now()
	m.Connections.Inc()
	m.InFlight.Inc()

	return func() {
		m.InFlight.Dec()
		m.Duration.Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Responded(code status.Code) {
	m.Requests.WithLabelValues(strconv.Itoa(int(code))).Inc()
}

// Handler exposes metrics gathered by the registry.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
