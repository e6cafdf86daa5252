package sandbox

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/sandboxfs/internal/ratelimiter"
	"github.com/marmos91/sandboxfs/pkg/lock"
	"github.com/marmos91/sandboxfs/pkg/store/tree"
	"github.com/marmos91/sandboxfs/pkg/store/tree/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Helpers
// ============================================================================

func newTestFS(t *testing.T, store tree.Store, opts Options, paths ...string) *FileSystem {
	t.Helper()
	locks := lock.NewManager(store, lock.Config{Origin: "https://example.test"}, nil)
	fs := New(store, locks, opts)
	require.NoError(t, fs.Seed(context.Background(), paths))
	return fs
}

// gatedStore blocks Remove (or Move, with gateMoves) until release is
// closed, so the operation can be observed while it is in progress.
type gatedStore struct {
	tree.Store
	gateMoves bool
	entered   chan struct{}
	release   chan struct{}
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		Store:   memory.NewMemoryTreeStoreWithDefaults(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gatedStore) wait() {
	close(g.entered)
	<-g.release
}

func (g *gatedStore) Remove(ctx context.Context, p string, recursive bool) error {
	if !g.gateMoves {
		g.wait()
	}
	return g.Store.Remove(ctx, p, recursive)
}

func (g *gatedStore) Move(ctx context.Context, src, dst string) (*tree.Entry, *tree.Entry, error) {
	if g.gateMoves {
		g.wait()
	}
	return g.Store.Move(ctx, src, dst)
}

type recordingMetrics struct {
	mu         sync.Mutex
	operations map[string]int
	failures   map[string]int
	throttled  int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{operations: map[string]int{}, failures: map[string]int{}}
}

func (r *recordingMetrics) RecordOperation(origin, operation string, duration time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operations[operation]++
	if err != nil {
		r.failures[operation]++
	}
}

func (r *recordingMetrics) RecordThrottled(origin string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.throttled++
}

func requireConflict(t *testing.T, err error) *lock.ConflictError {
	t.Helper()
	var conflict *lock.ConflictError
	require.ErrorAs(t, err, &conflict)
	return conflict
}

func requireCode(t *testing.T, want tree.ErrorCode, err error) {
	t.Helper()
	code, ok := tree.CodeOf(err)
	require.True(t, ok, "expected a tree error, got %v", err)
	assert.Equal(t, want, code)
}

// ============================================================================
// Scenarios
// ============================================================================

func TestMove_DestinationReservedWhileInProgress(t *testing.T) {
	store := newGatedStore()
	store.gateMoves = true
	fs := newTestFS(t, store, Options{}, "/bar.test")
	ctx := context.Background()

	source, err := fs.Lookup(ctx, "/bar.test")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- fs.Move(ctx, "/bar.test", "/foo.test") }()
	<-store.entered

	_, err = fs.CreateFile(ctx, "/foo.test")
	require.NoError(t, err)

	_, err = fs.OpenWritableStream(ctx, "/foo.test")
	conflict := requireConflict(t, err)
	assert.Equal(t, lock.ReasonDestination, conflict.Reason)

	close(store.release)
	require.NoError(t, <-done)

	h, err := fs.OpenWritableStream(ctx, "/foo.test")
	require.NoError(t, err)
	assert.Equal(t, source.ID, h.EntryID())
	require.NoError(t, h.Close())
}

func TestScenario_MoveOntoOpenReadWriteHandle(t *testing.T) {
	ctx := context.Background()
	fs := newTestFS(t, memory.NewMemoryTreeStoreWithDefaults(), Options{}, "/foo.test", "/bar.test")

	h, err := fs.OpenAccessHandle(ctx, "/foo.test", lock.AccessReadWrite)
	require.NoError(t, err)

	err = fs.Move(ctx, "/bar.test", "/foo.test")
	conflict := requireConflict(t, err)
	assert.Equal(t, "/foo.test", conflict.ConflictPath)
	assert.Equal(t, lock.ModeExclusive, conflict.Held)

	// Both entries are untouched.
	_, err = fs.Lookup(ctx, "/bar.test")
	require.NoError(t, err)

	require.NoError(t, h.Close())
	require.NoError(t, fs.Move(ctx, "/bar.test", "/foo.test"))

	_, err = fs.Lookup(ctx, "/bar.test")
	assert.True(t, tree.IsNotFound(err))
}

func TestScenario_RemoveInProgressBlocksReadOnlyHandle(t *testing.T) {
	ctx := context.Background()
	store := newGatedStore()
	fs := newTestFS(t, store, Options{}, "/foo.test")

	done := make(chan error, 1)
	go func() { done <- fs.Remove(ctx, "/foo.test", false) }()
	<-store.entered

	_, err := fs.OpenAccessHandle(ctx, "/foo.test", lock.AccessReadOnly)
	conflict := requireConflict(t, err)
	assert.Equal(t, lock.ModeExclusive, conflict.Held)
	assert.Equal(t, "remove", conflict.HeldOperation)

	close(store.release)
	require.NoError(t, <-done)

	_, err = fs.OpenAccessHandle(ctx, "/foo.test", lock.AccessReadOnly)
	assert.True(t, lock.IsNotFound(err))
}

func TestScenario_StreamInDirectoryBlocksDirectoryRemove(t *testing.T) {
	ctx := context.Background()
	fs := newTestFS(t, memory.NewMemoryTreeStoreWithDefaults(), Options{}, "/dir/a.test")

	stream, err := fs.OpenWritableStream(ctx, "/dir/a.test")
	require.NoError(t, err)

	err = fs.Remove(ctx, "/dir", true)
	conflict := requireConflict(t, err)
	assert.Equal(t, "/dir/a.test", conflict.ConflictPath)
	assert.Equal(t, lock.ReasonDescendant, conflict.Reason)

	require.NoError(t, stream.Close())
	require.NoError(t, fs.Remove(ctx, "/dir", true))

	_, err = fs.Lookup(ctx, "/dir/a.test")
	assert.True(t, tree.IsNotFound(err))
}

func TestScenario_DirectoryRemoveInProgressBlocksDescendant(t *testing.T) {
	ctx := context.Background()
	store := newGatedStore()
	fs := newTestFS(t, store, Options{}, "/dir/sub/a.test")

	done := make(chan error, 1)
	go func() { done <- fs.Remove(ctx, "/dir", true) }()
	<-store.entered

	_, err := fs.OpenWritableStream(ctx, "/dir/sub/a.test")
	conflict := requireConflict(t, err)
	assert.Equal(t, "/dir", conflict.ConflictPath)
	assert.Equal(t, lock.ReasonAncestor, conflict.Reason)

	close(store.release)
	require.NoError(t, <-done)
}

// ============================================================================
// Handles
// ============================================================================

func TestHandles_SharedModesCoexist(t *testing.T) {
	ctx := context.Background()
	fs := newTestFS(t, memory.NewMemoryTreeStoreWithDefaults(), Options{}, "/foo.test")

	r1, err := fs.OpenAccessHandle(ctx, "/foo.test", lock.AccessReadOnly)
	require.NoError(t, err)
	r2, err := fs.OpenAccessHandle(ctx, "/foo.test", lock.AccessReadOnly)
	require.NoError(t, err)
	u, err := fs.OpenAccessHandle(ctx, "/foo.test", lock.AccessReadWriteUnsafe)
	require.NoError(t, err)

	_, err = fs.OpenWritableStream(ctx, "/foo.test")
	requireConflict(t, err)

	assert.Equal(t, lock.ModeSharedRead, r1.Mode())
	assert.Equal(t, lock.ModeSharedWriteUnsafe, u.Mode())
	assert.Equal(t, "/foo.test", r1.Path())
	assert.Equal(t, r1.EntryID(), u.EntryID())

	for _, h := range []*Handle{r1, r2, u} {
		require.NoError(t, h.Close())
		assert.False(t, h.Open())
	}

	w, err := fs.OpenWritableStream(ctx, "/foo.test")
	require.NoError(t, err)
	assert.True(t, w.Open())
	require.NoError(t, w.Abort())
}

func TestHandle_CloseTwice(t *testing.T) {
	ctx := context.Background()
	fs := newTestFS(t, memory.NewMemoryTreeStoreWithDefaults(), Options{}, "/foo.test")

	h, err := fs.OpenWritableStream(ctx, "/foo.test")
	require.NoError(t, err)

	require.NoError(t, h.Close())
	assert.ErrorIs(t, h.Close(), lock.ErrOperationEnded)
}

func TestHandle_ReleasedOnCancellation(t *testing.T) {
	fs := newTestFS(t, memory.NewMemoryTreeStoreWithDefaults(), Options{}, "/foo.test")

	ctx, cancel := context.WithCancel(context.Background())
	h, err := fs.OpenWritableStream(ctx, "/foo.test")
	require.NoError(t, err)

	cancel()
	require.Eventually(t, func() bool { return !h.Open() }, time.Second, time.Millisecond)

	other, err := fs.OpenWritableStream(context.Background(), "/foo.test")
	require.NoError(t, err)
	require.NoError(t, other.Close())
	assert.ErrorIs(t, h.Close(), lock.ErrOperationEnded)
}

func TestOpen_Directory(t *testing.T) {
	fs := newTestFS(t, memory.NewMemoryTreeStoreWithDefaults(), Options{}, "/dir/")

	_, err := fs.OpenWritableStream(context.Background(), "/dir")
	assert.ErrorIs(t, err, lock.ErrNotAFile)
}

// ============================================================================
// Structural operations
// ============================================================================

func TestMove_KeepsIdentity(t *testing.T) {
	ctx := context.Background()
	fs := newTestFS(t, memory.NewMemoryTreeStoreWithDefaults(), Options{}, "/a/", "/b/", "/a/file.test")

	before, err := fs.Lookup(ctx, "/a/file.test")
	require.NoError(t, err)

	require.NoError(t, fs.Move(ctx, "/a/file.test", "/b/renamed.test"))

	after, err := fs.Lookup(ctx, "/b/renamed.test")
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID)

	h, err := fs.OpenAccessHandle(ctx, "/b/renamed.test", lock.AccessReadWrite)
	require.NoError(t, err)
	assert.Equal(t, before.ID, h.EntryID())

	_, err = fs.OpenAccessHandle(ctx, "/a/file.test", lock.AccessReadWrite)
	assert.True(t, lock.IsNotFound(err))
	require.NoError(t, h.Close())
}

func TestMove_Directory(t *testing.T) {
	fs := newTestFS(t, memory.NewMemoryTreeStoreWithDefaults(), Options{}, "/dir/")

	err := fs.Move(context.Background(), "/dir", "/other")
	assert.ErrorIs(t, err, lock.ErrMoveDirectory)
}

func TestMove_StorageFailureReleasesLocks(t *testing.T) {
	ctx := context.Background()
	fs := newTestFS(t, memory.NewMemoryTreeStoreWithDefaults(), Options{}, "/foo.test", "/file.test")

	// The destination parent is a file, so the storage move fails.
	err := fs.Move(ctx, "/foo.test", "/file.test/inner")
	require.Error(t, err)

	h, err := fs.OpenWritableStream(ctx, "/foo.test")
	require.NoError(t, err)
	require.NoError(t, h.Close())
	assert.Zero(t, fs.Locks().Stats().LockedEntries)
}

func TestRemove_NotEmpty(t *testing.T) {
	ctx := context.Background()
	fs := newTestFS(t, memory.NewMemoryTreeStoreWithDefaults(), Options{}, "/dir/a.test")

	err := fs.Remove(ctx, "/dir", false)
	requireCode(t, tree.ErrNotEmpty, err)

	require.NoError(t, fs.Remove(ctx, "/dir/a.test", false))
	require.NoError(t, fs.Remove(ctx, "/dir", false))
}

func TestCreate_AndList(t *testing.T) {
	ctx := context.Background()
	fs := newTestFS(t, memory.NewMemoryTreeStoreWithDefaults(), Options{})

	_, err := fs.CreateDirectory(ctx, "/docs")
	require.NoError(t, err)
	_, err = fs.CreateFile(ctx, "/docs/b.txt")
	require.NoError(t, err)
	_, err = fs.CreateFile(ctx, "/docs/a.txt")
	require.NoError(t, err)

	children, err := fs.List(ctx, "/docs")
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "a.txt", children[0].Name)
	assert.Equal(t, "b.txt", children[1].Name)
}

// ============================================================================
// Seeding, throttling and metrics
// ============================================================================

func TestSeed(t *testing.T) {
	ctx := context.Background()
	fs := newTestFS(t, memory.NewMemoryTreeStoreWithDefaults(), Options{}, "/docs/", "/docs/a/b.txt", "/top.txt", "/")

	entry, err := fs.Lookup(ctx, "/docs/a")
	require.NoError(t, err)
	assert.True(t, entry.IsDir())

	entry, err = fs.Lookup(ctx, "/docs/a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, tree.KindFile, entry.Kind)

	require.NoError(t, fs.Seed(ctx, []string{"/docs/a/b.txt", "/top.txt"}))
	requireCode(t, tree.ErrAlreadyExists, fs.Seed(ctx, []string{"/top.txt/"}))
}

func TestAdmission_RateLimited(t *testing.T) {
	ctx := context.Background()
	rec := newRecordingMetrics()
	fs := newTestFS(t, memory.NewMemoryTreeStoreWithDefaults(), Options{
		Limiter: ratelimiter.New(0.001, 2),
		Metrics: rec,
	}, "/foo.test")

	_, err := fs.CreateFile(ctx, "/a.test")
	require.NoError(t, err)
	h, err := fs.OpenWritableStream(ctx, "/foo.test")
	require.NoError(t, err)

	err = fs.Remove(ctx, "/a.test", false)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.False(t, lock.IsConflict(err))

	// Releasing a handle is never throttled.
	require.NoError(t, h.Close())

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 1, rec.throttled)
	assert.Equal(t, 1, rec.operations["create_file"])
	assert.Equal(t, 1, rec.operations["open_writable_stream"])
	assert.Equal(t, 1, rec.failures["remove"])
}

func TestMetrics_RecordsFailures(t *testing.T) {
	ctx := context.Background()
	rec := newRecordingMetrics()
	fs := newTestFS(t, memory.NewMemoryTreeStoreWithDefaults(), Options{Metrics: rec}, "/foo.test")

	h, err := fs.OpenAccessHandle(ctx, "/foo.test", lock.AccessReadWrite)
	require.NoError(t, err)
	_, err = fs.OpenAccessHandle(ctx, "/foo.test", lock.AccessReadOnly)
	require.Error(t, err)
	require.NoError(t, h.Close())

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 2, rec.operations["open_access_handle"])
	assert.Equal(t, 1, rec.failures["open_access_handle"])
	assert.Zero(t, rec.throttled)
}
