package testing

import (
	"testing"

	"github.com/marmos91/sandboxfs/pkg/store/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunCreateTests executes entry creation tests.
func (suite *StoreTestSuite) RunCreateTests(t *testing.T) {
	t.Run("CreateFile_Basic", suite.testCreateFileBasic)
	t.Run("CreateFile_Existing", suite.testCreateFileExisting)
	t.Run("Create_KindMismatch", suite.testCreateKindMismatch)
	t.Run("Create_MissingParent", suite.testCreateMissingParent)
	t.Run("Create_ParentIsFile", suite.testCreateParentIsFile)
	t.Run("Create_InvalidName", suite.testCreateInvalidName)
	t.Run("Create_Root", suite.testCreateRoot)
}

func (suite *StoreTestSuite) testCreateFileBasic(t *testing.T) {
	store := suite.NewStore(t)
	root, err := store.Root(testContext())
	require.NoError(t, err)

	file := mustCreateFile(t, store, "foo.test")
	assert.Equal(t, tree.KindFile, file.Kind)
	assert.Equal(t, root.ID, file.Parent)
	assert.Equal(t, "/foo.test", file.Path)
	assert.NotEqual(t, root.ID, file.ID)
}

func (suite *StoreTestSuite) testCreateFileExisting(t *testing.T) {
	store := suite.NewStore(t)

	first := mustCreateFile(t, store, "/foo.test")
	second := mustCreateFile(t, store, "/foo.test")
	assert.Equal(t, first.ID, second.ID, "creating an existing file returns it")

	dir := mustCreateDirectory(t, store, "/dir")
	again := mustCreateDirectory(t, store, "/dir")
	assert.Equal(t, dir.ID, again.ID)
}

func (suite *StoreTestSuite) testCreateKindMismatch(t *testing.T) {
	store := suite.NewStore(t)
	mustCreateFile(t, store, "/foo.test")
	mustCreateDirectory(t, store, "/dir")

	_, err := store.CreateDirectory(testContext(), "/foo.test")
	requireCode(t, err, tree.ErrAlreadyExists)

	_, err = store.CreateFile(testContext(), "/dir")
	requireCode(t, err, tree.ErrAlreadyExists)
}

func (suite *StoreTestSuite) testCreateMissingParent(t *testing.T) {
	store := suite.NewStore(t)

	_, err := store.CreateFile(testContext(), "/missing/foo.test")
	requireCode(t, err, tree.ErrNotFound)
}

func (suite *StoreTestSuite) testCreateParentIsFile(t *testing.T) {
	store := suite.NewStore(t)
	mustCreateFile(t, store, "/foo.test")

	_, err := store.CreateFile(testContext(), "/foo.test/bar")
	requireCode(t, err, tree.ErrNotDirectory)
}

func (suite *StoreTestSuite) testCreateInvalidName(t *testing.T) {
	store := suite.NewStore(t)

	_, err := store.CreateFile(testContext(), "/..")
	require.Error(t, err)
}

func (suite *StoreTestSuite) testCreateRoot(t *testing.T) {
	store := suite.NewStore(t)

	_, err := store.CreateDirectory(testContext(), "/")
	requireCode(t, err, tree.ErrAlreadyExists)
}
