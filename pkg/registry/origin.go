package registry

import (
	"time"

	"github.com/marmos91/sandboxfs/pkg/lock"
	"github.com/marmos91/sandboxfs/pkg/metrics"
	"github.com/marmos91/sandboxfs/pkg/sandbox"
	"github.com/marmos91/sandboxfs/pkg/store/tree"
)

// Origin binds together everything served for one origin:
// - An origin name (the isolation boundary; origins never share locks)
// - A tree store instance (the origin's private directory structure)
// - A lock manager over that store
// - The file system facade admitting operations through both
type Origin struct {
	Name    string
	Store   tree.Store
	Locks   *lock.Manager
	FS      *sandbox.FileSystem
	Created time.Time
}

// OriginConfig contains all configuration needed to register an origin.
type OriginConfig struct {
	Name string

	// Store is owned by the registry once the origin is added; it is closed
	// when the origin is removed or the registry is closed.
	Store tree.Store

	// StrictSharedModes keeps SharedRead and SharedWriteUnsafe holders off
	// the same entry.
	StrictSharedModes bool

	// Admission throttling (0 requests per second = unlimited)
	RequestsPerSecond float64
	Burst             int

	// Seed lists paths created when the origin is added. Paths ending in "/"
	// are directories.
	Seed []string

	// Metrics sinks (nil = no metrics)
	LockMetrics    metrics.LockMetrics
	SandboxMetrics metrics.SandboxMetrics
}
