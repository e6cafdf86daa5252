package badger

import (
	"context"
	"testing"

	"github.com/marmos91/sandboxfs/pkg/store/tree"
	treetesting "github.com/marmos91/sandboxfs/pkg/store/tree/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBadgerTreeStore runs the complete tree.Store test suite
// against the BadgerTreeStore implementation.
func TestBadgerTreeStore(t *testing.T) {
	suite := &treetesting.StoreTestSuite{
		NewStore: func(t *testing.T) tree.Store {
			store, err := NewBadgerTreeStore(context.Background(), BadgerTreeStoreConfig{
				DBPath: t.TempDir(),
			})
			require.NoError(t, err, "Failed to create BadgerTreeStore")
			t.Cleanup(func() { _ = store.Close() })
			return store
		},
	}

	suite.Run(t)
}

func TestBadgerTreeStore_InMemory(t *testing.T) {
	store, err := NewBadgerTreeStore(context.Background(), BadgerTreeStoreConfig{InMemory: true})
	require.NoError(t, err)
	defer store.Close()

	entry, err := store.CreateFile(context.Background(), "/foo.test")
	require.NoError(t, err)
	assert.Equal(t, "/foo.test", entry.Path)
}

func TestBadgerTreeStore_RequiresPath(t *testing.T) {
	_, err := NewBadgerTreeStore(context.Background(), BadgerTreeStoreConfig{})
	assert.Error(t, err)
}

func TestBadgerTreeStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewBadgerTreeStore(ctx, BadgerTreeStoreConfig{DBPath: dir})
	require.NoError(t, err)

	root, err := store.Root(ctx)
	require.NoError(t, err)
	_, err = store.CreateDirectory(ctx, "/dir")
	require.NoError(t, err)
	file, err := store.CreateFile(ctx, "/dir/a.test")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewBadgerTreeStore(ctx, BadgerTreeStoreConfig{DBPath: dir})
	require.NoError(t, err)
	defer reopened.Close()

	reopenedRoot, err := reopened.Root(ctx)
	require.NoError(t, err)
	assert.Equal(t, root.ID, reopenedRoot.ID)

	found, err := reopened.Lookup(ctx, "/dir/a.test")
	require.NoError(t, err)
	assert.Equal(t, file.ID, found.ID)
}
