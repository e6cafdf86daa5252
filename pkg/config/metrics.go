package config

import (
	"github.com/marmos91/sandboxfs/pkg/metrics"
	promMetrics "github.com/marmos91/sandboxfs/pkg/metrics/prometheus"
)

// MetricsResult contains the metrics collectors created from configuration.
type MetricsResult struct {
	// LockMetrics is the metrics collector for lock managers (never nil, uses noop if disabled)
	LockMetrics metrics.LockMetrics

	// SandboxMetrics is the metrics collector for file system facades (never nil, uses noop if disabled)
	SandboxMetrics metrics.SandboxMetrics
}

// InitializeMetrics creates the collectors handed to every origin.
//
// If metrics are enabled the global Prometheus registry is initialized and
// Prometheus-backed collectors are returned; otherwise no-op collectors.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Server.Metrics.Enabled {
		return &MetricsResult{
			LockMetrics:    metrics.NewNoopLockMetrics(),
			SandboxMetrics: metrics.NewNoopSandboxMetrics(),
		}
	}

	metrics.InitRegistry()

	return &MetricsResult{
		LockMetrics:    promMetrics.NewLockMetrics(),
		SandboxMetrics: promMetrics.NewSandboxMetrics(),
	}
}

// InitializeMetricsServer creates the HTTP endpoint serving /metrics and the
// origin snapshots of source, and points the origin state collector at
// source.
//
// Returns nil when metrics are disabled.
func InitializeMetricsServer(cfg *Config, source metrics.OriginStateSource) *metrics.Server {
	if !cfg.Server.Metrics.Enabled {
		return nil
	}

	metrics.InitRegistry()
	metrics.SetOriginStateSource(source)

	return metrics.NewServer(metrics.ServerConfig{
		Port:  cfg.Server.Metrics.Port,
		State: source,
	})
}
