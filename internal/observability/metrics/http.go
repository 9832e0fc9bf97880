package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics tracks the API surface. Registered on the shared pipeline
// registry so /metrics exposes both families.
type HTTPMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
}

func NewHTTPMetrics(service string, registry *prometheus.Registry) *HTTPMetrics {
	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradepilot",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by path, method and status code.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
		[]string{"path", "method", "code"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tradepilot",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.25, 1, 2.5, 5, 10, 30, 60, 120},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
		[]string{"path", "method"},
	)
	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tradepilot",
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "HTTP requests currently being served.",
		ConstLabels: prometheus.Labels{
			"service": service,
		},
	})

	registry.MustRegister(requestsTotal, requestDuration, inFlight)

	return &HTTPMetrics{
		requestsTotal:   requestsTotal,
		requestDuration: requestDuration,
		inFlight:        inFlight,
	}
}

func (m *HTTPMetrics) Observe(r *http.Request, statusCode int, duration time.Duration) {
	m.requestsTotal.WithLabelValues(r.URL.Path, r.Method, strconv.Itoa(statusCode)).Inc()
	m.requestDuration.WithLabelValues(r.URL.Path, r.Method).Observe(duration.Seconds())
}

func (m *HTTPMetrics) Start() {
	m.inFlight.Inc()
}

func (m *HTTPMetrics) Finish() {
	m.inFlight.Dec()
}
