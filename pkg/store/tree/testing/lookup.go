package testing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/marmos91/sandboxfs/pkg/store/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunLookupTests executes resolution and enumeration tests.
func (suite *StoreTestSuite) RunLookupTests(t *testing.T) {
	t.Run("Root", suite.testRoot)
	t.Run("Lookup_Nested", suite.testLookupNested)
	t.Run("Lookup_NotFound", suite.testLookupNotFound)
	t.Run("Lookup_ThroughFile", suite.testLookupThroughFile)
	t.Run("Get_ByID", suite.testGetByID)
	t.Run("Get_Unknown", suite.testGetUnknown)
	t.Run("Children_Sorted", suite.testChildrenSorted)
	t.Run("Children_OfFile", suite.testChildrenOfFile)
	t.Run("CancelledContext", suite.testCancelledContext)
}

func (suite *StoreTestSuite) testRoot(t *testing.T) {
	store := suite.NewStore(t)

	root, err := store.Root(testContext())
	require.NoError(t, err)
	assert.True(t, root.IsDir())
	assert.True(t, root.IsRoot())
	assert.Equal(t, "/", root.Path)

	same := mustLookup(t, store, "/")
	assert.Equal(t, root.ID, same.ID)
}

func (suite *StoreTestSuite) testLookupNested(t *testing.T) {
	store := suite.NewStore(t)
	dir := mustCreateDirectory(t, store, "/dir")
	file := mustCreateFile(t, store, "/dir/a.test")

	found := mustLookup(t, store, "dir//a.test/")
	assert.Equal(t, file.ID, found.ID)
	assert.Equal(t, dir.ID, found.Parent)
	assert.Equal(t, "/dir/a.test", found.Path)
	assert.Equal(t, "a.test", found.Name)
	assert.Equal(t, tree.KindFile, found.Kind)
}

func (suite *StoreTestSuite) testLookupNotFound(t *testing.T) {
	store := suite.NewStore(t)

	_, err := store.Lookup(testContext(), "/missing")
	requireCode(t, err, tree.ErrNotFound)
	assert.True(t, tree.IsNotFound(err))

	_, err = store.Lookup(testContext(), "/missing/child")
	requireCode(t, err, tree.ErrNotFound)
}

func (suite *StoreTestSuite) testLookupThroughFile(t *testing.T) {
	store := suite.NewStore(t)
	mustCreateFile(t, store, "/file.test")

	_, err := store.Lookup(testContext(), "/file.test/child")
	requireCode(t, err, tree.ErrNotDirectory)
}

func (suite *StoreTestSuite) testGetByID(t *testing.T) {
	store := suite.NewStore(t)
	mustCreateDirectory(t, store, "/dir")
	file := mustCreateFile(t, store, "/dir/a.test")

	got, err := store.Get(testContext(), file.ID)
	require.NoError(t, err)
	assert.Equal(t, "/dir/a.test", got.Path)
}

func (suite *StoreTestSuite) testGetUnknown(t *testing.T) {
	store := suite.NewStore(t)

	_, err := store.Get(testContext(), uuid.New())
	requireCode(t, err, tree.ErrNotFound)
}

func (suite *StoreTestSuite) testChildrenSorted(t *testing.T) {
	store := suite.NewStore(t)
	dir := mustCreateDirectory(t, store, "/dir")
	mustCreateFile(t, store, "/dir/c")
	mustCreateDirectory(t, store, "/dir/a")
	mustCreateFile(t, store, "/dir/b")

	assert.Equal(t, []string{"a", "b", "c"}, childNames(t, store, dir))

	children, err := store.Children(testContext(), dir.ID)
	require.NoError(t, err)
	assert.Equal(t, "/dir/a", children[0].Path)
	assert.Equal(t, dir.ID, children[0].Parent)

	empty := mustLookup(t, store, "/dir/a")
	assert.Empty(t, childNames(t, store, empty))
}

func (suite *StoreTestSuite) testChildrenOfFile(t *testing.T) {
	store := suite.NewStore(t)
	file := mustCreateFile(t, store, "/file.test")

	_, err := store.Children(testContext(), file.ID)
	requireCode(t, err, tree.ErrNotDirectory)
}

func (suite *StoreTestSuite) testCancelledContext(t *testing.T) {
	store := suite.NewStore(t)
	ctx, cancel := context.WithCancel(testContext())
	cancel()

	_, err := store.Lookup(ctx, "/")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = store.CreateFile(ctx, "/file.test")
	assert.ErrorIs(t, err, context.Canceled)
}
