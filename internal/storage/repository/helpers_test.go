package repository

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// setupTestDB creates a file-backed database with the card, deck and
// wishlist tables. A file is used so every pooled connection sees the schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "repo.db")
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE cards (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			colors TEXT NOT NULL DEFAULT '',
			set_code TEXT NOT NULL,
			set_number TEXT NOT NULL,
			price TEXT NOT NULL DEFAULT '0',
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE decks (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			image_uri TEXT,
			created_at DATETIME NOT NULL,
			modified_at DATETIME NOT NULL
		);

		CREATE TABLE deck_cards (
			deck_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			card_id TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			name TEXT NOT NULL,
			set_code TEXT NOT NULL,
			set_number TEXT NOT NULL,
			price TEXT NOT NULL DEFAULT '0',
			PRIMARY KEY (deck_id, card_id),
			FOREIGN KEY (deck_id) REFERENCES decks(id) ON DELETE CASCADE,
			CHECK (quantity >= 1)
		);

		CREATE TABLE wishlists (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			image_uri TEXT,
			created_at DATETIME NOT NULL,
			modified_at DATETIME NOT NULL
		);

		CREATE TABLE wishlist_cards (
			wishlist_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			card_id TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			name TEXT NOT NULL,
			set_code TEXT NOT NULL,
			set_number TEXT NOT NULL,
			price TEXT NOT NULL DEFAULT '0',
			PRIMARY KEY (wishlist_id, card_id),
			FOREIGN KEY (wishlist_id) REFERENCES wishlists(id) ON DELETE CASCADE,
			CHECK (quantity >= 1)
		);
	`

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Error closing database: %v", err)
		}
	})

	return db
}
