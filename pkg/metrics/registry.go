// Package metrics defines the metrics interfaces of sandboxfs components and
// the process-wide Prometheus registry behind them.
//
// Every interface has a no-op implementation, used whenever metrics are
// disabled. The Prometheus implementations live in pkg/metrics/prometheus.
//
// Usage:
//
//	metrics.InitRegistry()
//	metrics.SetOriginStateSource(originRegistry)
//
//	locks := lock.NewManager(store, cfg, prometheus.NewLockMetrics())
//	fs := sandbox.New(store, locks, sandbox.Options{Metrics: prometheus.NewSandboxMetrics()})
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry creates the registry and registers the Go runtime, process
// and origin state collectors. Later calls do nothing.
//
// Until it is called GetRegistry returns nil and the Prometheus constructors
// return no-op implementations.
func InitRegistry() {
	registryOnce.Do(func() {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			newOriginStateCollector(),
		)
		registry = reg
	})
}

// GetRegistry returns the registry, or nil when metrics are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}
