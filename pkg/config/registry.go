package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/sandboxfs/internal/logger"
	"github.com/marmos91/sandboxfs/pkg/registry"
)

// InitializeRegistry creates a fully configured Registry from the provided configuration.
//
// For every configured origin this creates a tree store of the configured
// type, a lock manager using the configured compatibility policy and the
// origin's admission limiter, then seeds the origin's initial structure.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - cfg: Complete configuration loaded from config file
//   - m: Metrics collectors (nil = no metrics)
//
// Returns:
//   - *registry.Registry: Fully initialized registry
//   - error: If store creation or seeding fails; stores created so far are closed
//
// Example:
//
//	cfg, _ := config.Load("config.yaml")
//	reg, err := config.InitializeRegistry(ctx, cfg, config.InitializeMetrics(cfg))
//	if err != nil {
//	    log.Fatalf("Failed to initialize registry: %v", err)
//	}
func InitializeRegistry(ctx context.Context, cfg *Config, m *MetricsResult) (*registry.Registry, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is nil")
	}
	if len(cfg.Origins) == 0 {
		return nil, fmt.Errorf("no origins configured: at least one origin is required")
	}
	if m == nil {
		m = &MetricsResult{}
	}

	logger.Debug("Initializing registry from configuration")
	reg := registry.NewRegistry()

	for _, originCfg := range cfg.Origins {
		if err := addOrigin(ctx, reg, cfg, originCfg, m); err != nil {
			return nil, errors.Join(err, reg.Close())
		}
	}

	logger.Debug("Registered %d origin(s)", reg.CountOrigins())
	return reg, nil
}

// addOrigin creates the origin's tree store and registers the origin.
func addOrigin(ctx context.Context, reg *registry.Registry, cfg *Config, originCfg OriginConfig, m *MetricsResult) error {
	logger.Debug("Creating tree store for origin %q (type: %s)", originCfg.Name, cfg.Tree.Type)

	store, err := CreateTreeStore(ctx, &cfg.Tree, originCfg.Name)
	if err != nil {
		return fmt.Errorf("failed to create tree store for origin %q: %w", originCfg.Name, err)
	}

	err = reg.AddOrigin(ctx, &registry.OriginConfig{
		Name:              originCfg.Name,
		Store:             store,
		StrictSharedModes: !cfg.Locking.MixedShared(),
		RequestsPerSecond: originCfg.RequestsPerSecond,
		Burst:             originCfg.Burst,
		Seed:              originCfg.Seed,
		LockMetrics:       m.LockMetrics,
		SandboxMetrics:    m.SandboxMetrics,
	})
	if err != nil {
		return errors.Join(fmt.Errorf("failed to add origin %q: %w", originCfg.Name, err), store.Close())
	}

	logger.Debug("Origin %q added successfully", originCfg.Name)
	return nil
}
