package prometheus

import (
	"time"

	"github.com/marmos91/sandboxfs/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// sandboxMetrics is the Prometheus implementation of metrics.SandboxMetrics.
type sandboxMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	throttledTotal    *prometheus.CounterVec
}

// NewSandboxMetrics creates a new Prometheus-backed SandboxMetrics instance.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry not called).
func NewSandboxMetrics() metrics.SandboxMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopSandboxMetrics()
	}
	return newSandboxMetrics(metrics.GetRegistry())
}

func newSandboxMetrics(reg prometheus.Registerer) *sandboxMetrics {
	return &sandboxMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "sandboxfs_operations_total",
				Help: "Total number of file system operations by origin, operation and status",
			},
			[]string{"origin", "operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "sandboxfs_operation_duration_milliseconds",
				Help: "Duration of file system operations in milliseconds",
				Buckets: []float64{
					0.1,  // 100µs
					1,    // 1ms
					10,   // 10ms
					100,  // 100ms
					1000, // 1s
				},
			},
			[]string{"origin", "operation"},
		),
		throttledTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "sandboxfs_throttled_total",
				Help: "Total number of requests refused by admission throttling",
			},
			[]string{"origin"},
		),
	}
}

func (m *sandboxMetrics) RecordOperation(origin, operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.operationsTotal.WithLabelValues(origin, operation, status).Inc()
	m.operationDuration.WithLabelValues(origin, operation).Observe(float64(duration.Microseconds()) / 1000)
}

func (m *sandboxMetrics) RecordThrottled(origin string) {
	m.throttledTotal.WithLabelValues(origin).Inc()
}
