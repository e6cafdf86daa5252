package config

import (
	"path/filepath"
	"strings"
	"time"
)

// DefaultOriginName names the origin served when none is configured.
const DefaultOriginName = "default"

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", nil) are replaced with defaults
//   - Explicit values are preserved
//   - Store-specific defaults are handled by store implementations
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyLockingDefaults(&cfg.Locking)
	applyTreeDefaults(&cfg.Tree)

	// Add default origin if none configured
	if len(cfg.Origins) == 0 {
		cfg.Origins = []OriginConfig{{Name: DefaultOriginName}}
	}

	applyOriginDefaults(cfg.Origins)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyServerDefaults sets server defaults.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
}

// applyLockingDefaults sets lock policy defaults.
func applyLockingDefaults(cfg *LockingConfig) {
	if cfg.MixedSharedModes == nil {
		mixed := true
		cfg.MixedSharedModes = &mixed
	}
}

// applyTreeDefaults sets tree store defaults.
func applyTreeDefaults(cfg *TreeConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}

	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}

	// Apply defaults for all store types (for config file generation)
	if _, ok := cfg.Memory["max_entries"]; !ok {
		cfg.Memory["max_entries"] = uint64(0)
	}
	if _, ok := cfg.Badger["db_path"]; !ok {
		cfg.Badger["db_path"] = filepath.Join("/tmp", "sandboxfs-tree")
	}
}

// applyOriginDefaults sets origin defaults.
func applyOriginDefaults(origins []OriginConfig) {
	for i := range origins {
		origin := &origins[i]

		// A throttled origin without an explicit burst admits one second's
		// worth of requests at once.
		if origin.RequestsPerSecond > 0 && origin.Burst == 0 {
			origin.Burst = max(1, int(origin.RequestsPerSecond))
		}

		if origin.Seed == nil {
			origin.Seed = []string{}
		}
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Tree: TreeConfig{
			Memory: make(map[string]any),
			Badger: make(map[string]any),
		},
		Origins: []OriginConfig{
			{
				Name: DefaultOriginName,
				Seed: []string{"/documents/"},
			},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
