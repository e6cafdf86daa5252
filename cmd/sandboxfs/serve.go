package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/marmos91/sandboxfs/internal/logger"
	"github.com/marmos91/sandboxfs/pkg/config"
	"github.com/marmos91/sandboxfs/pkg/server"
	"github.com/spf13/cobra"
)

var statsInterval time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Host the configured origins",
	Long: `Load the configuration, open one tree store and lock manager per origin,
seed the initial structures and serve until interrupted. When metrics are
enabled a Prometheus endpoint is exposed on server.metrics.port.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().DurationVar(&statsInterval, "stats-interval", 5*time.Minute,
		"Interval for logging lock statistics (0 to disable)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logCloser, err := logger.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}
	defer func() { _ = logCloser.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println("sandboxfs - origin-scoped file system lock manager")
	logger.Info("Log level set to: %s", cfg.Logging.Level)
	logger.Info("Tree store: %s", cfg.Tree.Type)
	logger.Info("Mixed shared modes: %v", cfg.Locking.MixedShared())

	metricsResult := config.InitializeMetrics(cfg)

	reg, err := config.InitializeRegistry(ctx, cfg, metricsResult)
	if err != nil {
		return fmt.Errorf("failed to initialize origins: %w", err)
	}
	for _, name := range reg.ListOrigins() {
		logger.Info("Origin ready: %s", name)
	}

	srv := server.New(reg, config.InitializeMetricsServer(cfg, reg), server.Config{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		StatsInterval:   statsInterval,
	})

	logger.Info("Press Ctrl+C to stop")
	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
