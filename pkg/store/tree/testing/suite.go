package testing

import (
	"context"
	"testing"

	"github.com/marmos91/sandboxfs/pkg/store/tree"
)

// StoreTestSuite is a conformance test suite for tree.Store implementations.
// It tests the interface contract, not implementation details, making it reusable
// across backends (memory, badger).
//
// Usage:
//
//	func TestMyTreeStore(t *testing.T) {
//	    suite := &treetesting.StoreTestSuite{
//	        NewStore: func(t *testing.T) tree.Store {
//	            return mystore.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates a fresh, empty store for each test. Implementations
	// should register cleanup (e.g. Close) with t.Cleanup.
	NewStore func(t *testing.T) tree.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("Lookup", suite.RunLookupTests)
	t.Run("Create", suite.RunCreateTests)
	t.Run("Move", suite.RunMoveTests)
	t.Run("Remove", suite.RunRemoveTests)
}

// testContext returns a standard test context.
func testContext() context.Context {
	return context.Background()
}
