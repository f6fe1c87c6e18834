package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus collectors for the RPC surface
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New registers the collectors on the given registry
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rpc_requests_total",
			Help: "Number of RPC requests handled, by subject and outcome.",
		}, []string{"subject", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rpc_request_duration_seconds",
			Help:    "RPC handling duration in seconds, by subject.",
			Buckets: prometheus.DefBuckets,
		}, []string{"subject"}),
	}
}

// ObserveRequest records one handled request
func (m *Metrics) ObserveRequest(subject string, success bool, elapsed time.Duration) {
	status := "ok"
	if !success {
		status = "error"
	}
	m.requestsTotal.WithLabelValues(subject, status).Inc()
	m.requestDuration.WithLabelValues(subject).Observe(elapsed.Seconds())
}
