package testing

import (
	"testing"

	"github.com/marmos91/sandboxfs/pkg/store/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunMoveTests executes move tests.
func (suite *StoreTestSuite) RunMoveTests(t *testing.T) {
	t.Run("Move_KeepsIdentity", suite.testMoveKeepsIdentity)
	t.Run("Move_AcrossDirectories", suite.testMoveAcrossDirectories)
	t.Run("Move_ReplacesFile", suite.testMoveReplacesFile)
	t.Run("Move_OntoDirectory", suite.testMoveOntoDirectory)
	t.Run("Move_Directory", suite.testMoveDirectory)
	t.Run("Move_MissingSource", suite.testMoveMissingSource)
	t.Run("Move_OntoItself", suite.testMoveOntoItself)
}

func (suite *StoreTestSuite) testMoveKeepsIdentity(t *testing.T) {
	store := suite.NewStore(t)
	file := mustCreateFile(t, store, "/foo.test")

	moved, replaced, err := store.Move(testContext(), "/foo.test", "/bar.test")
	require.NoError(t, err)
	assert.Nil(t, replaced)
	assert.Equal(t, file.ID, moved.ID)
	assert.Equal(t, "/bar.test", moved.Path)

	_, err = store.Lookup(testContext(), "/foo.test")
	requireCode(t, err, tree.ErrNotFound)

	found := mustLookup(t, store, "/bar.test")
	assert.Equal(t, file.ID, found.ID)
}

func (suite *StoreTestSuite) testMoveAcrossDirectories(t *testing.T) {
	store := suite.NewStore(t)
	src := mustCreateDirectory(t, store, "/src")
	dst := mustCreateDirectory(t, store, "/dst")
	file := mustCreateFile(t, store, "/src/a.test")

	moved, _, err := store.Move(testContext(), "/src/a.test", "/dst/b.test")
	require.NoError(t, err)
	assert.Equal(t, file.ID, moved.ID)
	assert.Equal(t, dst.ID, moved.Parent)

	assert.Empty(t, childNames(t, store, src))
	assert.Equal(t, []string{"b.test"}, childNames(t, store, dst))
}

func (suite *StoreTestSuite) testMoveReplacesFile(t *testing.T) {
	store := suite.NewStore(t)
	file := mustCreateFile(t, store, "/foo.test")
	target := mustCreateFile(t, store, "/bar.test")

	moved, replaced, err := store.Move(testContext(), "/foo.test", "/bar.test")
	require.NoError(t, err)
	require.NotNil(t, replaced)
	assert.Equal(t, target.ID, replaced.ID)
	assert.Equal(t, file.ID, moved.ID)

	_, err = store.Get(testContext(), target.ID)
	requireCode(t, err, tree.ErrNotFound)
}

func (suite *StoreTestSuite) testMoveOntoDirectory(t *testing.T) {
	store := suite.NewStore(t)
	mustCreateFile(t, store, "/foo.test")
	mustCreateDirectory(t, store, "/dir")

	_, _, err := store.Move(testContext(), "/foo.test", "/dir")
	requireCode(t, err, tree.ErrIsDirectory)

	mustLookup(t, store, "/foo.test")
}

func (suite *StoreTestSuite) testMoveDirectory(t *testing.T) {
	store := suite.NewStore(t)
	mustCreateDirectory(t, store, "/dir")

	_, _, err := store.Move(testContext(), "/dir", "/other")
	requireCode(t, err, tree.ErrIsDirectory)
}

func (suite *StoreTestSuite) testMoveMissingSource(t *testing.T) {
	store := suite.NewStore(t)

	_, _, err := store.Move(testContext(), "/missing", "/other")
	requireCode(t, err, tree.ErrNotFound)
}

func (suite *StoreTestSuite) testMoveOntoItself(t *testing.T) {
	store := suite.NewStore(t)
	file := mustCreateFile(t, store, "/foo.test")

	moved, replaced, err := store.Move(testContext(), "/foo.test", "/foo.test")
	require.NoError(t, err)
	assert.Nil(t, replaced)
	assert.Equal(t, file.ID, moved.ID)
	mustLookup(t, store, "/foo.test")
}
