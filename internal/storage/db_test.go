package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpen_NilConfig(t *testing.T) {
	if _, err := Open(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	if _, err := Open(DefaultConfig("")); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestOpen_AutoMigrateCreatesTables(t *testing.T) {
	config := DefaultConfig(filepath.Join(t.TempDir(), "nested", "binder.db"))
	config.AutoMigrate = true

	db, err := Open(config)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			t.Errorf("Error closing database: %v", err)
		}
	}()

	for _, table := range []string{"cards", "decks", "deck_cards", "wishlists", "wishlist_cards"} {
		var name string
		err := db.Conn().QueryRowContext(context.Background(),
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestMigrationManager_Version(t *testing.T) {
	path := filepath.Join(t.TempDir(), "binder.db")

	mgr, err := NewMigrationManager(path)
	if err != nil {
		t.Fatalf("NewMigrationManager() error = %v", err)
	}
	defer func() { _ = mgr.Close() }()

	if err := mgr.Up(); err != nil {
		t.Fatalf("Up() error = %v", err)
	}
	// A second Up is a no-op.
	if err := mgr.Up(); err != nil {
		t.Fatalf("second Up() error = %v", err)
	}

	version, dirty, err := mgr.Version()
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if version != 2 || dirty {
		t.Errorf("Version() = %d dirty=%v, want 2 clean", version, dirty)
	}
}
