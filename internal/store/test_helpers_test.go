package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/tabula/internal/testutil"
)

// createTestStore creates a new store in a temporary directory with
// predictable history ids: entry-1, entry-2, ...
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithIDGenerator(testutil.NewSequentialIDs("entry")))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
