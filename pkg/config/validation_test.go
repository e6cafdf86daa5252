package config

import (
	"strings"
	"testing"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Format = "xml"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for invalid log format")
	}
}

func TestValidate_InvalidTreeType(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Tree.Type = "postgres"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for unimplemented tree type")
	}
}

func TestValidate_ZeroShutdownTimeout(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Server.ShutdownTimeout = 0

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for zero shutdown timeout")
	}
}

func TestValidate_InvalidMetricsPort(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Server.Metrics.Port = 70000

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for out-of-range metrics port")
	}
}

func TestValidate_NoOrigins(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Origins = nil

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error when no origins are configured")
	}
}

func TestValidate_DuplicateOrigins(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Origins = []OriginConfig{
		{Name: "https://example.com"},
		{Name: "https://example.com"},
	}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for duplicate origin names")
	}
	if !strings.Contains(err.Error(), "unique") {
		t.Errorf("Expected 'unique' validation error, got: %v", err)
	}
}

func TestValidate_OriginNames(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"default", true},
		{"https://example.com", true},
		{"http://localhost:8080", true},
		{"app-1.internal", true},
		{"", false},
		{"../escape", false},
		{"https://example.com/path", false},
		{"with space", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			cfg.Origins = []OriginConfig{{Name: tt.name}}

			err := Validate(cfg)
			if tt.valid && err != nil {
				t.Errorf("Expected %q to be valid, got: %v", tt.name, err)
			}
			if !tt.valid && err == nil {
				t.Errorf("Expected %q to be rejected", tt.name)
			}
		})
	}
}

func TestValidate_SeedPaths(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Origins[0].Seed = []string{"relative/path"}

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for relative seed path")
	}
}

func TestValidate_NegativeRate(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Origins[0].RequestsPerSecond = -1

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for negative requests_per_second")
	}
}

func TestValidate_ThrottledOriginNeedsBurst(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Origins[0].RequestsPerSecond = 10
	cfg.Origins[0].Burst = 0

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for zero burst")
	}
	if !strings.Contains(err.Error(), "burst") {
		t.Errorf("Expected burst error, got: %v", err)
	}
}

func TestValidate_BadgerRequiresPath(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Tree.Type = "badger"
	cfg.Tree.Badger = map[string]any{}

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for badger without db_path")
	}

	cfg.Tree.Badger = map[string]any{"in_memory": true}
	if err := Validate(cfg); err != nil {
		t.Errorf("Expected in-memory badger to be valid, got: %v", err)
	}
}
