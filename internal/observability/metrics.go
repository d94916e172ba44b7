package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Connect request outcomes.
const (
	OutcomeOK             = "ok"
	OutcomeInvalidRequest = "invalid_request"
	OutcomeUpstreamError  = "upstream_error"
	OutcomeTransportError = "transport_error"
)

// Metrics groups all Prometheus instruments used by the relay.
type Metrics struct {
	ConnectRequests   *prometheus.CounterVec
	UpstreamResponses *prometheus.CounterVec
	UpstreamLatency   prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ConnectRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connect_requests_total",
			Help:      "Connect requests by outcome.",
		}, []string{"outcome"}),
		UpstreamResponses: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_responses_total",
			Help:      "Provisioning API responses by status code.",
		}, []string{"code"}),
		UpstreamLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_latency_ms",
			Help:      "Provisioning API round trip in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2000, 5000, 10000},
		}),
	}
}

func (m *Metrics) ObserveOutcome(outcome string) {
	m.ConnectRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveUpstream(code int, d time.Duration) {
	m.UpstreamResponses.WithLabelValues(strconv.Itoa(code)).Inc()
	m.UpstreamLatency.Observe(float64(d.Milliseconds()))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
