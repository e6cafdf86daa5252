// Package sandbox is the file system facade of one origin.
//
// Every operation that competes for an entry (writable streams, access
// handles, moves and removes) is admitted by the origin's lock manager before
// the tree store is touched, and releases its locks when it completes. A
// conflicting request fails immediately with a *lock.ConflictError; nothing
// waits.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marmos91/sandboxfs/internal/logger"
	"github.com/marmos91/sandboxfs/internal/ratelimiter"
	"github.com/marmos91/sandboxfs/pkg/lock"
	"github.com/marmos91/sandboxfs/pkg/metrics"
	"github.com/marmos91/sandboxfs/pkg/store/tree"
)

// ErrRateLimited is returned when the origin's admission limiter refuses a
// request.
var ErrRateLimited = errors.New("admission rate limit exceeded")

// Options configures a FileSystem.
type Options struct {
	// Limiter throttles admission; nil admits everything.
	Limiter *ratelimiter.RateLimiter

	// Metrics records per-operation outcomes; nil disables metrics.
	Metrics metrics.SandboxMetrics
}

// FileSystem serves file system operations for one origin.
//
// Thread Safety:
// Safe for concurrent use. Serialization of competing operations is the lock
// manager's job; the tree store serializes its own mutations.
type FileSystem struct {
	origin  string
	store   tree.Store
	locks   *lock.Manager
	limiter *ratelimiter.RateLimiter
	metrics metrics.SandboxMetrics
}

// New creates a FileSystem over store, admitting operations through locks.
// locks must have been created over the same store.
func New(store tree.Store, locks *lock.Manager, opts Options) *FileSystem {
	m := opts.Metrics
	if m == nil {
		m = metrics.NewNoopSandboxMetrics()
	}

	return &FileSystem{
		origin:  locks.Origin(),
		store:   store,
		locks:   locks,
		limiter: opts.Limiter,
		metrics: m,
	}
}

// Origin returns the origin name.
func (fs *FileSystem) Origin() string {
	return fs.origin
}

// Locks returns the origin's lock manager.
func (fs *FileSystem) Locks() *lock.Manager {
	return fs.locks
}

// ============================================================================
// Tree Queries
// ============================================================================

// Lookup resolves p without taking any lock.
func (fs *FileSystem) Lookup(ctx context.Context, p string) (*tree.Entry, error) {
	return fs.store.Lookup(ctx, p)
}

// List returns the children of the directory at p, sorted by name.
func (fs *FileSystem) List(ctx context.Context, p string) ([]*tree.Entry, error) {
	dir, err := fs.store.Lookup(ctx, p)
	if err != nil {
		return nil, err
	}
	return fs.store.Children(ctx, dir.ID)
}

// ============================================================================
// Creation
// ============================================================================

// CreateFile creates an empty file at p. Creating an existing file returns it.
func (fs *FileSystem) CreateFile(ctx context.Context, p string) (entry *tree.Entry, err error) {
	defer fs.record("create_file", time.Now(), &err)

	if err := fs.admit(); err != nil {
		return nil, err
	}
	return fs.store.CreateFile(ctx, p)
}

// CreateDirectory creates a directory at p. Creating an existing directory
// returns it.
func (fs *FileSystem) CreateDirectory(ctx context.Context, p string) (entry *tree.Entry, err error) {
	defer fs.record("create_directory", time.Now(), &err)

	if err := fs.admit(); err != nil {
		return nil, err
	}
	return fs.store.CreateDirectory(ctx, p)
}

// ============================================================================
// Lock Holders
// ============================================================================

// OpenWritableStream opens a writable stream on the file at p. The stream
// holds an Exclusive lock until it is closed or ctx is cancelled.
func (fs *FileSystem) OpenWritableStream(ctx context.Context, p string) (h *Handle, err error) {
	defer fs.record("open_writable_stream", time.Now(), &err)
	return fs.open(ctx, p, lock.OpenWritableStream())
}

// OpenAccessHandle opens a synchronous access handle on the file at p.
//
// The lock mode follows the access mode: readwrite takes an Exclusive lock,
// read-only a SharedRead lock and readwrite-unsafe a SharedWriteUnsafe lock.
// The handle holds it until it is closed or ctx is cancelled.
func (fs *FileSystem) OpenAccessHandle(ctx context.Context, p string, mode lock.AccessMode) (h *Handle, err error) {
	defer fs.record("open_access_handle", time.Now(), &err)
	return fs.open(ctx, p, lock.OpenAccessHandle(mode))
}

func (fs *FileSystem) open(ctx context.Context, p string, kind lock.OperationKind) (*Handle, error) {
	if err := fs.admit(); err != nil {
		return nil, err
	}

	op, err := fs.locks.Begin(ctx, p, kind)
	if err != nil {
		return nil, err
	}
	if err := op.Activate(); err != nil {
		return nil, err
	}

	return &Handle{fs: fs, op: op}, nil
}

// ============================================================================
// Structural Operations
// ============================================================================

// Move renames the file at src to dst, replacing a file already at dst.
//
// The source and, if it exists, the destination are locked Exclusive for the
// duration of the storage move. After a successful move the entry keeps its
// identity under its new path.
func (fs *FileSystem) Move(ctx context.Context, src, dst string) (err error) {
	defer fs.record("move", time.Now(), &err)

	if err := fs.admit(); err != nil {
		return err
	}

	return fs.locks.Run(ctx, src, lock.Move(dst), func(ctx context.Context, op *lock.Operation) error {
		if _, _, err := fs.store.Move(ctx, src, dst); err != nil {
			return fmt.Errorf("move %s to %s: %w", src, dst, err)
		}
		return nil
	})
}

// Remove deletes the entry at p. A non-empty directory is only removed when
// recursive is true.
//
// Removing a directory locks its whole subtree: it is refused while any entry
// beneath it is locked, and while it runs no entry beneath it can be locked.
func (fs *FileSystem) Remove(ctx context.Context, p string, recursive bool) (err error) {
	defer fs.record("remove", time.Now(), &err)

	if err := fs.admit(); err != nil {
		return err
	}

	return fs.locks.Run(ctx, p, lock.Remove(), func(ctx context.Context, op *lock.Operation) error {
		if err := fs.store.Remove(ctx, p, recursive); err != nil {
			return fmt.Errorf("remove %s: %w", p, err)
		}
		return nil
	})
}

// ============================================================================
// Helpers
// ============================================================================

// admit consumes one admission token.
func (fs *FileSystem) admit() error {
	if fs.limiter.Allow() {
		return nil
	}
	fs.metrics.RecordThrottled(fs.origin)
	logger.Debug("Request throttled: origin=%s", fs.origin)
	return fmt.Errorf("origin %s: %w", fs.origin, ErrRateLimited)
}

// record reports the outcome of an operation to the metrics sink.
func (fs *FileSystem) record(operation string, start time.Time, err *error) {
	fs.metrics.RecordOperation(fs.origin, operation, time.Since(start), *err)
}
