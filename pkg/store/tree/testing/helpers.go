package testing

import (
	"testing"

	"github.com/marmos91/sandboxfs/pkg/store/tree"
	"github.com/stretchr/testify/require"
)

// mustCreateFile creates a file and fails the test if it errors.
func mustCreateFile(t *testing.T, store tree.Store, p string) *tree.Entry {
	t.Helper()
	entry, err := store.CreateFile(testContext(), p)
	require.NoError(t, err, "CreateFile(%s) should succeed", p)
	return entry
}

// mustCreateDirectory creates a directory and fails the test if it errors.
func mustCreateDirectory(t *testing.T, store tree.Store, p string) *tree.Entry {
	t.Helper()
	entry, err := store.CreateDirectory(testContext(), p)
	require.NoError(t, err, "CreateDirectory(%s) should succeed", p)
	return entry
}

// mustLookup resolves a path and fails the test if it errors.
func mustLookup(t *testing.T, store tree.Store, p string) *tree.Entry {
	t.Helper()
	entry, err := store.Lookup(testContext(), p)
	require.NoError(t, err, "Lookup(%s) should succeed", p)
	return entry
}

// requireCode asserts that err is a *tree.StoreError with the given code.
func requireCode(t *testing.T, err error, code tree.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	got, ok := tree.CodeOf(err)
	require.True(t, ok, "expected a StoreError, got %T: %v", err, err)
	require.Equal(t, code, got, "unexpected error code (err=%v)", err)
}

// childNames returns the names of a directory's children in order.
func childNames(t *testing.T, store tree.Store, dir *tree.Entry) []string {
	t.Helper()
	children, err := store.Children(testContext(), dir.ID)
	require.NoError(t, err)
	names := make([]string, 0, len(children))
	for _, c := range children {
		names = append(names, c.Name)
	}
	return names
}
