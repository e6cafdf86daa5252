package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/marmos91/sandboxfs/pkg/lock"
	"github.com/marmos91/sandboxfs/pkg/store/tree"
	"github.com/marmos91/sandboxfs/pkg/store/tree/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// closeTracker records Close calls on a tree store.
type closeTracker struct {
	tree.Store
	closed int
	err    error
}

func (c *closeTracker) Close() error {
	c.closed++
	return c.err
}

func addOrigin(t *testing.T, reg *Registry, name string, seed ...string) *closeTracker {
	t.Helper()
	store := &closeTracker{Store: memory.NewMemoryTreeStoreWithDefaults()}
	require.NoError(t, reg.AddOrigin(context.Background(), &OriginConfig{
		Name:  name,
		Store: store,
		Seed:  seed,
	}))
	return store
}

func TestAddOrigin(t *testing.T) {
	reg := NewRegistry()
	addOrigin(t, reg, "https://b.test", "/docs/", "/docs/readme.txt")
	addOrigin(t, reg, "https://a.test")

	assert.Equal(t, 2, reg.CountOrigins())
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, reg.ListOrigins())
	assert.True(t, reg.OriginExists("https://a.test"))
	assert.False(t, reg.OriginExists("https://c.test"))

	origin, err := reg.GetOrigin("https://b.test")
	require.NoError(t, err)
	assert.Equal(t, "https://b.test", origin.Locks.Origin())
	assert.Equal(t, "https://b.test", origin.FS.Origin())
	assert.False(t, origin.Locks.Policy().StrictSharedModes)

	entry, err := origin.FS.Lookup(context.Background(), "/docs/readme.txt")
	require.NoError(t, err)
	assert.Equal(t, tree.KindFile, entry.Kind)
}

func TestAddOrigin_Invalid(t *testing.T) {
	reg := NewRegistry()
	ctx := context.Background()

	assert.Error(t, reg.AddOrigin(ctx, &OriginConfig{Store: memory.NewMemoryTreeStoreWithDefaults()}))
	assert.Error(t, reg.AddOrigin(ctx, &OriginConfig{Name: "x"}))

	addOrigin(t, reg, "x")
	assert.Error(t, reg.AddOrigin(ctx, &OriginConfig{Name: "x", Store: memory.NewMemoryTreeStoreWithDefaults()}))

	// A file cannot be seeded beneath a file.
	err := reg.AddOrigin(ctx, &OriginConfig{
		Name:  "y",
		Store: memory.NewMemoryTreeStoreWithDefaults(),
		Seed:  []string{"/a.txt", "/a.txt/b.txt"},
	})
	assert.Error(t, err)
	assert.False(t, reg.OriginExists("y"))
}

func TestOrigins_AreIsolated(t *testing.T) {
	reg := NewRegistry()
	ctx := context.Background()
	addOrigin(t, reg, "https://a.test", "/shared.txt")
	addOrigin(t, reg, "https://b.test", "/shared.txt")

	a, err := reg.FileSystem("https://a.test")
	require.NoError(t, err)
	b, err := reg.FileSystem("https://b.test")
	require.NoError(t, err)

	ha, err := a.OpenWritableStream(ctx, "/shared.txt")
	require.NoError(t, err)
	hb, err := b.OpenWritableStream(ctx, "/shared.txt")
	require.NoError(t, err, "a lock in one origin must not affect another")

	stats := reg.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, "https://a.test", stats[0].Origin)
	assert.Equal(t, 1, stats[0].ActiveOperations)
	assert.Equal(t, 1, stats[1].ActiveOperations)

	states := reg.OriginStates()
	require.Len(t, states, 2)
	assert.Equal(t, "https://b.test", states[1].Origin)
	assert.Equal(t, 1, states[1].ActiveOperations)
	assert.Equal(t, 1, states[1].LockedEntries)
	assert.Equal(t, uint64(1), states[1].Granted)

	require.NoError(t, ha.Close())
	require.NoError(t, hb.Close())
}

func TestOrigin_ThrottledAdmission(t *testing.T) {
	reg := NewRegistry()
	ctx := context.Background()
	require.NoError(t, reg.AddOrigin(ctx, &OriginConfig{
		Name:              "slow",
		Store:             memory.NewMemoryTreeStoreWithDefaults(),
		RequestsPerSecond: 0.001,
		Burst:             1,
		Seed:              []string{"/a.txt"},
	}))

	fs, err := reg.FileSystem("slow")
	require.NoError(t, err)

	h, err := fs.OpenAccessHandle(ctx, "/a.txt", lock.AccessReadOnly)
	require.NoError(t, err)
	require.NoError(t, h.Close())

	_, err = fs.OpenAccessHandle(ctx, "/a.txt", lock.AccessReadOnly)
	assert.Error(t, err)
}

func TestRemoveOrigin(t *testing.T) {
	reg := NewRegistry()
	store := addOrigin(t, reg, "x")

	require.NoError(t, reg.RemoveOrigin("x"))
	assert.Equal(t, 1, store.closed)
	assert.False(t, reg.OriginExists("x"))

	assert.Error(t, reg.RemoveOrigin("x"))
	_, err := reg.FileSystem("x")
	assert.Error(t, err)
}

func TestClose_JoinsErrors(t *testing.T) {
	reg := NewRegistry()
	ok := addOrigin(t, reg, "ok")
	broken := addOrigin(t, reg, "broken")
	broken.err = errors.New("disk gone")

	err := reg.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
	assert.Equal(t, 1, ok.closed)
	assert.Equal(t, 1, broken.closed)
	assert.Zero(t, reg.CountOrigins())
}
