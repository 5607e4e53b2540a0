// Package testing provides shared test helpers for tipster packages.
package testing

import (
	"path/filepath"
	"testing"

	"github.com/aristath/tipster/internal/database"
)

// NewCacheDB creates a migrated cache database backed by a file in a
// per-test temporary directory. The database is closed automatically
// when the test finishes.
func NewCacheDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		t.Fatalf("Failed to open test cache database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate test cache database: %v", err)
	}

	return db
}
