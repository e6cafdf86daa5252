package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/sandboxfs/internal/logger"
	"github.com/marmos91/sandboxfs/pkg/metrics"
	"github.com/marmos91/sandboxfs/pkg/registry"
)

// ErrAlreadyServed is returned when Serve is called a second time.
var ErrAlreadyServed = errors.New("server has already been served")

const drainPollInterval = 50 * time.Millisecond

// Config controls the lifecycle of a Server.
type Config struct {
	// ShutdownTimeout bounds how long Serve waits for open operations to end
	// once shutdown starts.
	ShutdownTimeout time.Duration

	// StatsInterval is the period of the lock statistics log line (0 disables it).
	StatsInterval time.Duration
}

// SandboxServer hosts the origins of a registry until its context is cancelled.
//
// Lifecycle:
//  1. Creation: New() with a populated registry
//  2. Startup: Serve() starts the optional metrics endpoint and stats logger
//  3. Shutdown: context cancellation stops admitting background work, waits
//     for open operations to drain and closes every origin
//
// Serve may only be called once per instance.
type SandboxServer struct {
	registry *registry.Registry
	metrics  *metrics.Server
	config   Config

	served atomic.Bool
}

// New creates a SandboxServer over the given registry.
//
// Parameters:
//   - reg: Registry holding the origins to serve (required)
//   - metricsServer: Prometheus endpoint to run alongside (nil = none)
//   - config: Shutdown and statistics settings
//
// Panics if reg is nil (indicates programmer error).
func New(reg *registry.Registry, metricsServer *metrics.Server, config Config) *SandboxServer {
	if reg == nil {
		panic("registry cannot be nil")
	}
	return &SandboxServer{
		registry: reg,
		metrics:  metricsServer,
		config:   config,
	}
}

// Registry returns the served registry.
func (s *SandboxServer) Registry() *registry.Registry {
	return s.registry
}

// Serve blocks until ctx is cancelled or the metrics endpoint fails.
//
// Shutdown behavior:
//   - background goroutines (metrics, stats) are stopped
//   - open operations get up to ShutdownTimeout to end
//   - every origin is closed, releasing its tree store
//
// Returns:
//   - ctx.Err() when shutdown was triggered by cancellation
//   - the metrics endpoint error if it failed
//   - the registry close error if closing origins failed
//   - ErrAlreadyServed on a second call
func (s *SandboxServer) Serve(ctx context.Context) error {
	if !s.served.CompareAndSwap(false, true) {
		return ErrAlreadyServed
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger.Info("Serving %d origin(s)", s.registry.CountOrigins())

	var wg sync.WaitGroup
	metricsErr := make(chan error, 1)

	if s.metrics != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.metrics.Start(runCtx); err != nil {
				metricsErr <- err
			}
		}()
	}

	if s.config.StatsInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.logStats(runCtx)
		}()
	}

	var shutdownErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received (reason: %v)", ctx.Err())
		shutdownErr = ctx.Err()
	case err := <-metricsErr:
		logger.Error("Metrics server failed: %v - initiating shutdown", err)
		shutdownErr = fmt.Errorf("metrics: %w", err)
	}

	cancel()
	wg.Wait()

	if remaining := s.drain(); remaining > 0 {
		logger.Warn("Shutdown timeout reached with %d operation(s) still open", remaining)
	}

	if err := s.registry.Close(); err != nil {
		logger.Error("Failed to close origins: %v", err)
		if shutdownErr == nil || errors.Is(shutdownErr, context.Canceled) {
			shutdownErr = err
		}
	}

	logger.Info("Server stopped")
	return shutdownErr
}

// drain waits up to ShutdownTimeout for open operations to end and returns
// how many are still open.
func (s *SandboxServer) drain() int {
	deadline := time.Now().Add(s.config.ShutdownTimeout)
	for {
		active := s.activeOperations()
		if active == 0 || !time.Now().Before(deadline) {
			return active
		}
		logger.Debug("Waiting for %d open operation(s)", active)
		time.Sleep(drainPollInterval)
	}
}

func (s *SandboxServer) activeOperations() int {
	active := 0
	for _, stats := range s.registry.Stats() {
		active += stats.ActiveOperations
	}
	return active
}

// logStats periodically logs the lock statistics of every origin.
func (s *SandboxServer) logStats(ctx context.Context) {
	ticker := time.NewTicker(s.config.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, st := range s.registry.Stats() {
				logger.Info("Lock stats: origin=%s active=%d locked=%d granted=%d denied=%d settled=%d aborted=%d",
					st.Origin, st.ActiveOperations, st.LockedEntries, st.Granted, st.Denied, st.Settled, st.Aborted)
			}
		}
	}
}
