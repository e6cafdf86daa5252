package config

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/marmos91/sandboxfs/pkg/lock"
	"github.com/marmos91/sandboxfs/pkg/metrics"
)

func TestInitializeRegistry(t *testing.T) {
	disabled := false
	cfg := GetDefaultConfig()
	cfg.Locking.MixedSharedModes = &disabled
	cfg.Origins = []OriginConfig{
		{Name: "https://a.example", Seed: []string{"/docs/readme.txt"}},
		{Name: "https://b.example", RequestsPerSecond: 10, Burst: 10},
	}

	reg, err := InitializeRegistry(context.Background(), cfg, InitializeMetrics(cfg))
	if err != nil {
		t.Fatalf("InitializeRegistry failed: %v", err)
	}
	defer func() { _ = reg.Close() }()

	if reg.CountOrigins() != 2 {
		t.Fatalf("Expected 2 origins, got %d", reg.CountOrigins())
	}

	fs, err := reg.FileSystem("https://a.example")
	if err != nil {
		t.Fatalf("FileSystem failed: %v", err)
	}
	if !fs.Locks().Policy().StrictSharedModes {
		t.Error("Expected the configured strict policy")
	}

	h, err := fs.OpenAccessHandle(context.Background(), "/docs/readme.txt", lock.AccessReadOnly)
	if err != nil {
		t.Fatalf("Expected seeded file to be openable: %v", err)
	}
	if _, err := fs.OpenAccessHandle(context.Background(), "/docs/readme.txt", lock.AccessReadWriteUnsafe); !lock.IsConflict(err) {
		t.Errorf("Expected conflict under the strict policy, got: %v", err)
	}
	_ = h.Close()
}

func TestInitializeRegistry_NilConfig(t *testing.T) {
	if _, err := InitializeRegistry(context.Background(), nil, nil); err == nil {
		t.Fatal("Expected error for nil configuration")
	}
}

func TestInitializeRegistry_SeedFailure(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Origins = []OriginConfig{
		{Name: "good"},
		{Name: "bad", Seed: []string{"/a.txt", "/a.txt/b.txt"}},
	}

	if _, err := InitializeRegistry(context.Background(), cfg, nil); err == nil {
		t.Fatal("Expected error when seeding fails")
	}
}

func TestInitializeMetrics_Disabled(t *testing.T) {
	cfg := GetDefaultConfig()

	result := InitializeMetrics(cfg)
	if result.LockMetrics == nil || result.SandboxMetrics == nil {
		t.Error("Expected no-op collectors when disabled")
	}
	if server := InitializeMetricsServer(cfg, nil); server != nil {
		t.Error("Expected no metrics server when disabled")
	}
}

func TestInitializeMetricsServer_ServesOrigins(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Server.Metrics.Enabled = true
	cfg.Server.Metrics.Port = 9191

	reg, err := InitializeRegistry(context.Background(), cfg, InitializeMetrics(cfg))
	if err != nil {
		t.Fatalf("InitializeRegistry failed: %v", err)
	}
	defer func() { _ = reg.Close() }()

	server := InitializeMetricsServer(cfg, reg)
	defer metrics.SetOriginStateSource(nil)
	if server == nil {
		t.Fatal("Expected a metrics server when enabled")
	}
	if server.Port() != 9191 {
		t.Errorf("Expected port 9191, got %d", server.Port())
	}

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 from /stats, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"origin":"default"`) {
		t.Errorf("Expected the default origin in /stats, got %s", rec.Body.String())
	}
}
