package storage

import (
	"github.com/ramonehamilton/mtg-binder/internal/storage/repository"
)

// Service groups the SQLite repositories that share one connection pool.
type Service struct {
	db        *DB
	cards     repository.CardStore
	decks     repository.DeckRepository
	wishlists repository.WishlistRepository
}

// NewService creates a new storage service.
func NewService(db *DB) *Service {
	return &Service{
		db:        db,
		cards:     repository.NewCardRepository(db.Conn()),
		decks:     repository.NewDeckRepository(db.Conn()),
		wishlists: repository.NewWishlistRepository(db.Conn()),
	}
}

// Cards returns the relational card adapter.
func (s *Service) Cards() repository.CardStore {
	return s.cards
}

// Decks returns the deck repository.
func (s *Service) Decks() repository.DeckRepository {
	return s.decks
}

// Wishlists returns the wishlist repository.
func (s *Service) Wishlists() repository.WishlistRepository {
	return s.wishlists
}

// Close closes the underlying database.
func (s *Service) Close() error {
	return s.db.Close()
}
