package testing

import (
	"testing"

	"github.com/marmos91/sandboxfs/pkg/store/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunRemoveTests executes removal tests.
func (suite *StoreTestSuite) RunRemoveTests(t *testing.T) {
	t.Run("Remove_File", suite.testRemoveFile)
	t.Run("Remove_EmptyDirectory", suite.testRemoveEmptyDirectory)
	t.Run("Remove_NotEmpty", suite.testRemoveNotEmpty)
	t.Run("Remove_Recursive", suite.testRemoveRecursive)
	t.Run("Remove_Root", suite.testRemoveRoot)
	t.Run("Remove_Missing", suite.testRemoveMissing)
}

func (suite *StoreTestSuite) testRemoveFile(t *testing.T) {
	store := suite.NewStore(t)
	file := mustCreateFile(t, store, "/foo.test")

	require.NoError(t, store.Remove(testContext(), "/foo.test", false))

	_, err := store.Get(testContext(), file.ID)
	requireCode(t, err, tree.ErrNotFound)
}

func (suite *StoreTestSuite) testRemoveEmptyDirectory(t *testing.T) {
	store := suite.NewStore(t)
	mustCreateDirectory(t, store, "/dir")

	require.NoError(t, store.Remove(testContext(), "/dir", false))

	_, err := store.Lookup(testContext(), "/dir")
	requireCode(t, err, tree.ErrNotFound)
}

func (suite *StoreTestSuite) testRemoveNotEmpty(t *testing.T) {
	store := suite.NewStore(t)
	mustCreateDirectory(t, store, "/dir")
	mustCreateFile(t, store, "/dir/a.test")

	err := store.Remove(testContext(), "/dir", false)
	requireCode(t, err, tree.ErrNotEmpty)

	mustLookup(t, store, "/dir/a.test")
}

func (suite *StoreTestSuite) testRemoveRecursive(t *testing.T) {
	store := suite.NewStore(t)
	mustCreateDirectory(t, store, "/dir")
	mustCreateDirectory(t, store, "/dir/sub")
	deep := mustCreateFile(t, store, "/dir/sub/deep.test")
	mustCreateFile(t, store, "/dir/a.test")
	keep := mustCreateFile(t, store, "/keep.test")

	require.NoError(t, store.Remove(testContext(), "/dir", true))

	_, err := store.Get(testContext(), deep.ID)
	requireCode(t, err, tree.ErrNotFound)

	got, err := store.Get(testContext(), keep.ID)
	require.NoError(t, err)
	assert.Equal(t, "/keep.test", got.Path)

	// The name is free again.
	mustCreateDirectory(t, store, "/dir")
}

func (suite *StoreTestSuite) testRemoveRoot(t *testing.T) {
	store := suite.NewStore(t)

	err := store.Remove(testContext(), "/", true)
	requireCode(t, err, tree.ErrInvalidArgument)
}

func (suite *StoreTestSuite) testRemoveMissing(t *testing.T) {
	store := suite.NewStore(t)

	err := store.Remove(testContext(), "/missing", false)
	requireCode(t, err, tree.ErrNotFound)
}
