package lock

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/sandboxfs/pkg/store/tree/memory"
	"github.com/stretchr/testify/require"
)

// newTestStore creates a memory tree containing paths. Paths ending in "/"
// are directories; parents must come first.
func newTestStore(t *testing.T, paths ...string) *memory.MemoryTreeStore {
	t.Helper()
	store := memory.NewMemoryTreeStoreWithDefaults()
	for _, p := range paths {
		var err error
		if strings.HasSuffix(p, "/") {
			_, err = store.CreateDirectory(context.Background(), p)
		} else {
			_, err = store.CreateFile(context.Background(), p)
		}
		require.NoError(t, err, "seed %s", p)
	}
	return store
}

func newTestManager(t *testing.T, paths ...string) (*Manager, *memory.MemoryTreeStore) {
	t.Helper()
	store := newTestStore(t, paths...)
	return NewManager(store, DefaultConfig(), nil), store
}

// mustBegin begins an operation and fails the test if it is refused.
func mustBegin(t *testing.T, m *Manager, p string, kind OperationKind) *Operation {
	t.Helper()
	op, err := m.Begin(context.Background(), p, kind)
	require.NoError(t, err, "Begin(%s, %s) should be granted", p, kind)
	require.NotNil(t, op)
	return op
}

// mustEnd settles an operation and fails the test on error.
func mustEnd(t *testing.T, m *Manager, op *Operation) {
	t.Helper()
	require.NoError(t, m.End(op, OutcomeSettled))
}

// requireConflict asserts err is a *ConflictError and returns it.
func requireConflict(t *testing.T, err error) *ConflictError {
	t.Helper()
	require.Error(t, err)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	return conflict
}

type namedKind struct {
	name string
	kind OperationKind
}

// allKinds lists every operation kind, with moves going to a fresh name.
func allKinds() []namedKind {
	return kindsMovingTo("/moved.test")
}

// kindsMovingTo lists every operation kind, with moves going to dst.
func kindsMovingTo(dst string) []namedKind {
	return []namedKind{
		{"writable_stream", OpenWritableStream()},
		{"access_handle_readwrite", OpenAccessHandle(AccessReadWrite)},
		{"access_handle_read_only", OpenAccessHandle(AccessReadOnly)},
		{"access_handle_readwrite_unsafe", OpenAccessHandle(AccessReadWriteUnsafe)},
		{"move", Move(dst)},
		{"remove", Remove()},
	}
}

// recordingMetrics captures LockMetrics calls.
type recordingMetrics struct {
	mu       sync.Mutex
	grants   []string
	denials  []string
	releases []string
	active   int
	locked   int
}

func (r *recordingMetrics) RecordGrant(origin, operation, mode string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grants = append(r.grants, origin+"/"+operation+"/"+mode)
}

func (r *recordingMetrics) RecordDenial(origin, operation, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.denials = append(r.denials, origin+"/"+operation+"/"+reason)
}

func (r *recordingMetrics) RecordRelease(origin, operation, outcome string, held time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releases = append(r.releases, origin+"/"+operation+"/"+outcome)
}

func (r *recordingMetrics) SetActiveOperations(origin string, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = count
}

func (r *recordingMetrics) SetLockedEntries(origin string, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locked = count
}
