package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/marmos91/sandboxfs/internal/logger"
	"github.com/marmos91/sandboxfs/internal/ratelimiter"
	"github.com/marmos91/sandboxfs/pkg/lock"
	"github.com/marmos91/sandboxfs/pkg/metrics"
	"github.com/marmos91/sandboxfs/pkg/sandbox"
)

// Registry manages all served origins.
// It provides thread-safe registration and lookup of origins.
//
// Each origin has its own tree store and lock manager; nothing is shared
// between origins, so a lock held in one origin never affects another.
//
// Example usage:
//
//	reg := NewRegistry()
//	reg.AddOrigin(ctx, &OriginConfig{Name: "https://example.com", Store: memStore})
//
//	fs, _ := reg.FileSystem("https://example.com")
//	h, err := fs.OpenWritableStream(ctx, "/notes.txt")
type Registry struct {
	mu      sync.RWMutex
	origins map[string]*Origin
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		origins: make(map[string]*Origin),
	}
}

// AddOrigin creates and registers a new origin with the given configuration.
// This method:
//  1. Validates that the origin doesn't already exist
//  2. Creates the lock manager and file system facade over config.Store
//  3. Seeds the initial structure
//  4. Registers the origin
//
// Returns an error if:
// - The name is empty or the store is nil
// - An origin with the same name already exists
// - Seeding fails
//
// The store is not closed on error; the caller still owns it.
func (r *Registry) AddOrigin(ctx context.Context, config *OriginConfig) error {
	if config.Name == "" {
		return fmt.Errorf("cannot add origin with empty name")
	}
	if config.Store == nil {
		return fmt.Errorf("cannot add origin %q with nil tree store", config.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.origins[config.Name]; exists {
		return fmt.Errorf("origin %q already exists", config.Name)
	}

	locks := lock.NewManager(config.Store, lock.Config{
		Origin:            config.Name,
		StrictSharedModes: config.StrictSharedModes,
	}, config.LockMetrics)

	fs := sandbox.New(config.Store, locks, sandbox.Options{
		Limiter: ratelimiter.New(config.RequestsPerSecond, config.Burst),
		Metrics: config.SandboxMetrics,
	})

	if err := fs.Seed(ctx, config.Seed); err != nil {
		return fmt.Errorf("failed to seed origin %q: %w", config.Name, err)
	}

	r.origins[config.Name] = &Origin{
		Name:    config.Name,
		Store:   config.Store,
		Locks:   locks,
		FS:      fs,
		Created: time.Now(),
	}

	logger.Debug("Added origin %q", config.Name)
	return nil
}

// RemoveOrigin removes an origin from the registry and closes its tree store.
// Returns an error if the origin doesn't exist or the store fails to close.
//
// Handles still open on the origin keep working against the closed store's
// lock manager but every new storage access fails.
func (r *Registry) RemoveOrigin(name string) error {
	r.mu.Lock()
	origin, exists := r.origins[name]
	if exists {
		delete(r.origins, name)
	}
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("origin %q not found", name)
	}

	if err := origin.Store.Close(); err != nil {
		return fmt.Errorf("failed to close tree store of origin %q: %w", name, err)
	}
	return nil
}

// GetOrigin retrieves an origin by name.
// Returns nil, error if the origin doesn't exist.
func (r *Registry) GetOrigin(name string) (*Origin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	origin, exists := r.origins[name]
	if !exists {
		return nil, fmt.Errorf("origin %q not found", name)
	}
	return origin, nil
}

// FileSystem retrieves the file system facade of an origin.
func (r *Registry) FileSystem(name string) (*sandbox.FileSystem, error) {
	origin, err := r.GetOrigin(name)
	if err != nil {
		return nil, err
	}
	return origin.FS, nil
}

// ListOrigins returns all registered origin names, sorted.
// The returned slice is a copy and safe to modify.
func (r *Registry) ListOrigins() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.origins))
	for name := range r.origins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CountOrigins returns the number of registered origins.
func (r *Registry) CountOrigins() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.origins)
}

// OriginExists checks if an origin with the given name exists in the registry.
func (r *Registry) OriginExists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.origins[name]
	return exists
}

// ============================================================================
// Diagnostics
// ============================================================================

// Stats returns a lock manager snapshot for every origin, sorted by origin.
func (r *Registry) Stats() []lock.Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make([]lock.Stats, 0, len(r.origins))
	for _, origin := range r.origins {
		stats = append(stats, origin.Locks.Stats())
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Origin < stats[j].Origin })
	return stats
}

// OriginStates implements metrics.OriginStateSource.
func (r *Registry) OriginStates() []metrics.OriginState {
	stats := r.Stats()
	states := make([]metrics.OriginState, len(stats))
	for i, s := range stats {
		states[i] = metrics.OriginState{
			Origin:           s.Origin,
			ActiveOperations: s.ActiveOperations,
			LockedEntries:    s.LockedEntries,
			TrackedEntries:   s.TrackedEntries,
			ReservedPaths:    s.ReservedPaths,
			Granted:          s.Granted,
			Denied:           s.Denied,
			Settled:          s.Settled,
			Aborted:          s.Aborted,
		}
	}
	return states
}

// Close removes every origin and closes their tree stores.
// All close errors are returned joined.
func (r *Registry) Close() error {
	r.mu.Lock()
	origins := r.origins
	r.origins = make(map[string]*Origin)
	r.mu.Unlock()

	var errs []error
	for name, origin := range origins {
		if err := origin.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("origin %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
