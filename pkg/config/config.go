package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete sandboxfs configuration.
//
// This structure captures all configurable aspects of the sandboxfs daemon including:
//   - Logging configuration
//   - Server-wide settings (shutdown, metrics endpoint)
//   - Lock compatibility policy
//   - Tree store selection and configuration (store-specific)
//   - Origin definitions
//
// Configuration sources (in order of precedence):
//  1. Environment variables (SANDBOXFS_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each tree store implementation defines its own configuration type. The Config
// struct contains type-specific sections (tree.memory, tree.badger) and only the
// section matching the selected type is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Server contains server-wide settings
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Locking controls the lock compatibility policy of every origin
	Locking LockingConfig `mapstructure:"locking" yaml:"locking"`

	// Tree specifies the tree store type and type-specific configuration
	Tree TreeConfig `mapstructure:"tree" yaml:"tree"`

	// Origins defines the origins served by this daemon
	Origins []OriginConfig `mapstructure:"origins" yaml:"origins" validate:"required,min=1,unique=Name,dive" jsonschema:"required,minItems=1"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json" jsonschema:"enum=text,enum=json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// ServerConfig contains server-wide settings.
type ServerConfig struct {
	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"required,gt=0" jsonschema:"type=string,example=30s"`

	// Metrics controls the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	// Enabled turns metrics collection and the HTTP endpoint on
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port of the metrics endpoint
	Port int `mapstructure:"port" yaml:"port" validate:"min=1,max=65535" jsonschema:"minimum=1,maximum=65535"`
}

// LockingConfig controls the lock compatibility policy.
type LockingConfig struct {
	// MixedSharedModes lets read-only and readwrite-unsafe access handles
	// hold the same file at the same time. Defaults to true.
	MixedSharedModes *bool `mapstructure:"mixed_shared_modes" yaml:"mixed_shared_modes"`
}

// MixedShared returns the effective MixedSharedModes value.
func (c LockingConfig) MixedShared() bool {
	return c.MixedSharedModes == nil || *c.MixedSharedModes
}

// TreeConfig specifies tree store configuration.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific configuration section is used.
// Every origin gets its own store instance of the selected type.
type TreeConfig struct {
	// Type specifies which tree store implementation to use
	// Valid values: memory, badger
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory badger" jsonschema:"enum=memory,enum=badger"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory" yaml:"memory"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger" yaml:"badger"`
}

// OriginConfig defines a single origin.
type OriginConfig struct {
	// Name identifies the origin (e.g., "https://example.com")
	Name string `mapstructure:"name" yaml:"name" validate:"required,origin_name" jsonschema:"required,example=https://example.com"`

	// RequestsPerSecond throttles operation admission (0 = unlimited)
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second" validate:"gte=0" jsonschema:"minimum=0"`

	// Burst is the admission bucket size
	Burst int `mapstructure:"burst" yaml:"burst" validate:"gte=0" jsonschema:"minimum=0"`

	// Seed lists paths created when the origin starts.
	// Paths ending in "/" are directories.
	Seed []string `mapstructure:"seed" yaml:"seed,omitempty" validate:"dive,startswith=/"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (SANDBOXFS_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Configure viper
	setupViper(v, configPath)

	// Read configuration file if it exists
	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	// Unmarshal into config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply defaults for any missing values
	ApplyDefaults(&cfg)

	// Validate configuration
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use SANDBOXFS_ prefix and underscores
	// Example: SANDBOXFS_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("SANDBOXFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Registered so that environment overrides apply without a config file.
	v.SetDefault("logging.level", "")
	v.SetDefault("logging.format", "")
	v.SetDefault("logging.output", "")
	v.SetDefault("server.metrics.enabled", false)
	v.SetDefault("server.metrics.port", 0)
	v.SetDefault("tree.type", "")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/sandboxfs/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			// Config file not found is acceptable - use defaults
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "sandboxfs")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "sandboxfs")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
