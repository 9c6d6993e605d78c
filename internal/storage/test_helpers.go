package storage

import (
	"path/filepath"
	"testing"
)

// NewTestService opens a migrated database in a temporary directory.
// It is exported for tests of packages that sit on top of storage.
func NewTestService(t testing.TB) *Service {
	t.Helper()

	config := DefaultConfig(filepath.Join(t.TempDir(), "test.db"))
	config.AutoMigrate = true

	db, err := Open(config)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return NewService(db)
}
