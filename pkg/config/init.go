package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

const configHeader = `# sandboxfs Configuration File
#
# Every value below is the default. Any key can be overridden with an
# environment variable: SANDBOXFS_<SECTION>_<KEY> (e.g. SANDBOXFS_LOGGING_LEVEL=DEBUG).

`

// InitConfig writes a default configuration file to the default location.
//
// Parameters:
//   - force: Overwrite an existing file
//
// Returns:
//   - string: Path of the written file
//   - error: If the file exists and force is false, or writing fails
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a default configuration file to path.
//
// The file is written atomically: readers see either the old file or the
// complete new one.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := atomic.WriteFile(path, strings.NewReader(content)); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// serverYAML renders durations as strings ("30s") instead of nanoseconds.
type serverYAML struct {
	ShutdownTimeout string        `yaml:"shutdown_timeout"`
	Metrics         MetricsConfig `yaml:"metrics"`
}

// generateYAMLWithComments renders cfg as YAML with a comment above every
// section.
func generateYAMLWithComments(cfg *Config) (string, error) {
	sections := []struct {
		comment string
		key     string
		value   any
	}{
		{
			comment: "Logging\n  level: DEBUG, INFO, WARN or ERROR\n  format: text or json\n  output: stdout, stderr or a file path",
			key:     "logging",
			value:   cfg.Logging,
		},
		{
			comment: "Server\n  shutdown_timeout: grace period for open handles on shutdown\n  metrics: Prometheus endpoint served on /metrics",
			key:     "server",
			value: serverYAML{
				ShutdownTimeout: cfg.Server.ShutdownTimeout.String(),
				Metrics:         cfg.Server.Metrics,
			},
		},
		{
			comment: "Locking\n  mixed_shared_modes: let read-only and readwrite-unsafe access handles\n  hold the same file at the same time",
			key:     "locking",
			value:   cfg.Locking,
		},
		{
			comment: "Tree store (one instance per origin)\n  type: memory or badger\n  badger.db_path: each origin gets a subdirectory",
			key:     "tree",
			value:   cfg.Tree,
		},
		{
			comment: "Origins\n  requests_per_second: admission throttling, 0 = unlimited\n  seed: paths created at startup, trailing / for directories",
			key:     "origins",
			value:   cfg.Origins,
		},
	}

	var b strings.Builder
	b.WriteString(configHeader)

	for _, section := range sections {
		out, err := yaml.Marshal(map[string]any{section.key: section.value})
		if err != nil {
			return "", fmt.Errorf("failed to render %s section: %w", section.key, err)
		}

		for _, line := range strings.Split(section.comment, "\n") {
			b.WriteString("# ")
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.Write(out)
		b.WriteString("\n")
	}

	return b.String(), nil
}
