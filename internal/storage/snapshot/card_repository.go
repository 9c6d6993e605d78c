// Package snapshot implements the flat-file card store: a JSON array of cards
// that is read and parsed in full on every call.
package snapshot

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ramonehamilton/mtg-binder/internal/apperr"
	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
	"github.com/ramonehamilton/mtg-binder/internal/storage/repository"
)

// Store is the file-backed card adapter.
type Store interface {
	repository.CardRepository
	repository.Deleter

	// IsOwnWrite reports whether data is exactly what the store last wrote.
	IsOwnWrite(data []byte) bool
}

// cardRepository reads the catalog from a JSON snapshot file.
type cardRepository struct {
	path string

	mu      sync.Mutex // serializes rewrites
	written [sha256.Size]byte
	wrote   bool
}

// NewCardRepository creates a file-backed card repository for path.
// The file is not opened until the first read.
func NewCardRepository(path string) Store {
	return &cardRepository{path: path}
}

// GetCardByID scans the snapshot for id.
func (r *cardRepository) GetCardByID(ctx context.Context, id string) (*models.Card, error) {
	cards, err := r.GetAllCards(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range cards {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

// GetAllCards returns the cards in file order.
func (r *cardRepository) GetAllCards(ctx context.Context) ([]*models.Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeReadFailure, "failed to read card snapshot", err)
	}

	cards, err := Decode(data)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeReadFailure, "failed to parse card snapshot", err)
	}
	return cards, nil
}

// DeleteWhereIDIn rewrites the snapshot without ids. The new file replaces
// the old one by rename, so readers see either the old or the new catalog.
func (r *cardRepository) DeleteWhereIDIn(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cards, err := r.GetAllCards(ctx)
	if err != nil {
		return 0, err
	}

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := make([]*models.Card, 0, len(cards))
	for _, c := range cards {
		if _, ok := drop[c.ID]; !ok {
			kept = append(kept, c)
		}
	}

	deleted := int64(len(cards) - len(kept))
	if deleted == 0 {
		return 0, nil
	}
	data, err := Encode(kept)
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeWriteFailure, "failed to encode card snapshot", err)
	}
	// Recorded before the rename so a watcher never sees the new file first.
	r.written, r.wrote = sha256.Sum256(data), true
	if err := writeAtomic(r.path, data); err != nil {
		r.wrote = false
		return 0, apperr.Wrap(apperr.CodeWriteFailure, "failed to rewrite card snapshot", err)
	}
	return deleted, nil
}

// IsOwnWrite blocks while a rewrite is in progress.
func (r *cardRepository) IsOwnWrite(data []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.wrote && sha256.Sum256(data) == r.written
}

// Encode renders cards in the snapshot format.
func Encode(cards []*models.Card) ([]byte, error) {
	if cards == nil {
		cards = make([]*models.Card, 0)
	}
	return json.MarshalIndent(cards, "", "  ")
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".cards-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// Decode parses and validates a snapshot. Ids must be present and unique,
// prices non-negative and colors WUBRG symbols.
func Decode(data []byte) ([]*models.Card, error) {
	var cards []*models.Card
	if err := json.Unmarshal(data, &cards); err != nil {
		return nil, fmt.Errorf("decode cards: %w", err)
	}

	seen := make(map[string]struct{}, len(cards))
	for i, c := range cards {
		if c == nil {
			return nil, fmt.Errorf("card %d: null entry", i)
		}
		if c.ID == "" {
			return nil, fmt.Errorf("card %d: missing id", i)
		}
		if _, dup := seen[c.ID]; dup {
			return nil, fmt.Errorf("card %d: duplicate id %s", i, c.ID)
		}
		seen[c.ID] = struct{}{}
		if c.Price.IsNegative() {
			return nil, fmt.Errorf("card %s: negative price %s", c.ID, c.Price)
		}
		if err := models.ValidateColors(c.Colors); err != nil {
			return nil, fmt.Errorf("card %s: %w", c.ID, err)
		}
	}

	if cards == nil {
		cards = make([]*models.Card, 0)
	}
	return cards, nil
}
