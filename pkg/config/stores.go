package config

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/marmos91/sandboxfs/pkg/store/tree"
	"github.com/marmos91/sandboxfs/pkg/store/tree/badger"
	"github.com/marmos91/sandboxfs/pkg/store/tree/memory"
	"github.com/mitchellh/mapstructure"
)

// CreateTreeStore creates the tree store of one origin based on configuration.
//
// This factory function uses the Type field to determine which store implementation
// to create, then decodes the type-specific configuration from the corresponding
// map and passes it to the store's constructor.
//
// Supported types:
//   - "memory": Uses pkg/store/tree/memory (ephemeral)
//   - "badger": Uses pkg/store/tree/badger; each origin gets its own database
//     in a subdirectory of db_path
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: Tree store configuration
//   - origin: Origin the store is created for
//
// Returns:
//   - tree.Store: Initialized tree store
//   - error: Configuration or initialization error
func CreateTreeStore(ctx context.Context, cfg *TreeConfig, origin string) (tree.Store, error) {
	switch cfg.Type {
	case "memory":
		return createMemoryTreeStore(cfg.Memory)
	case "badger":
		return createBadgerTreeStore(ctx, cfg.Badger, origin)
	default:
		return nil, fmt.Errorf("unknown tree store type: %q", cfg.Type)
	}
}

// createMemoryTreeStore creates an in-memory tree store.
func createMemoryTreeStore(options map[string]any) (tree.Store, error) {
	var memoryCfg memory.MemoryTreeStoreConfig
	if err := mapstructure.Decode(options, &memoryCfg); err != nil {
		return nil, fmt.Errorf("invalid memory config: %w", err)
	}

	return memory.NewMemoryTreeStore(memoryCfg), nil
}

// createBadgerTreeStore creates a BadgerDB tree store for origin.
func createBadgerTreeStore(ctx context.Context, options map[string]any, origin string) (tree.Store, error) {
	var badgerCfg badger.BadgerTreeStoreConfig
	if err := mapstructure.Decode(options, &badgerCfg); err != nil {
		return nil, fmt.Errorf("invalid badger config: %w", err)
	}

	if !badgerCfg.InMemory {
		if badgerCfg.DBPath == "" {
			return nil, fmt.Errorf("badger tree store: db_path is required")
		}
		badgerCfg.DBPath = filepath.Join(badgerCfg.DBPath, originDirName(origin))
	}

	store, err := badger.NewBadgerTreeStore(ctx, badgerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	return store, nil
}

// originDirName maps an origin name to a single path component.
func originDirName(origin string) string {
	return url.PathEscape(origin)
}
