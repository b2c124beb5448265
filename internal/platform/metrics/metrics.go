// Package metrics holds transport-level observability shared by all routers.
// Module-specific workflow metrics live with their module.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks HTTP request latency and volume.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
}

// New creates a new Metrics instance with all HTTP metrics registered.
func New() *Metrics {
	return &Metrics{
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "memberflow_http_request_duration_seconds",
			Help:    "HTTP request duration by method, path, and status",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "path", "status"}),
	}
}

// ObserveRequest records one handled request.
// Call with time.Now() at the start of the request.
func (m *Metrics) ObserveRequest(method, path string, status int, start time.Time) {
	m.RequestDuration.WithLabelValues(method, path, strconv.Itoa(status)).
		Observe(time.Since(start).Seconds())
}
