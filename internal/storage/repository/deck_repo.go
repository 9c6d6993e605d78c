package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ramonehamilton/mtg-binder/internal/apperr"
	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
)

// DeckRepository handles database operations for decks.
type DeckRepository interface {
	// Create inserts a new deck.
	Create(ctx context.Context, deck *models.Deck) error

	// GetByID retrieves a deck by its ID. A miss returns (nil, nil).
	GetByID(ctx context.Context, id string) (*models.Deck, error)

	// List retrieves all decks, most recently modified first.
	List(ctx context.Context) ([]*models.Deck, error)

	// GetCards retrieves the rows of a deck in insertion order.
	GetCards(ctx context.Context, deckID string) ([]*models.DeckCard, error)

	// AddCard appends a row, or adds to the quantity of an existing row.
	AddCard(ctx context.Context, card *models.DeckCard) error

	Deleter
}

// deckRepository is the concrete implementation of DeckRepository.
type deckRepository struct {
	db *sql.DB
}

// NewDeckRepository creates a new deck repository.
func NewDeckRepository(db *sql.DB) DeckRepository {
	return &deckRepository{db: db}
}

// Create inserts a new deck.
func (r *deckRepository) Create(ctx context.Context, deck *models.Deck) error {
	query := `
		INSERT INTO decks (id, name, image_uri, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		deck.ID,
		deck.Name,
		deck.ImageURI,
		deck.CreatedAt,
		deck.ModifiedAt,
	)
	if err != nil {
		return apperr.Wrap(apperr.CodeWriteFailure, "failed to create deck", err)
	}

	return nil
}

// GetByID retrieves a deck by its ID.
func (r *deckRepository) GetByID(ctx context.Context, id string) (*models.Deck, error) {
	query := `
		SELECT id, name, image_uri, created_at, modified_at
		FROM decks
		WHERE id = ?
	`

	deck := &models.Deck{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&deck.ID,
		&deck.Name,
		&deck.ImageURI,
		&deck.CreatedAt,
		&deck.ModifiedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeReadFailure, "failed to get deck by id", err)
	}

	return deck, nil
}

// List retrieves all decks.
func (r *deckRepository) List(ctx context.Context) ([]*models.Deck, error) {
	query := `
		SELECT id, name, image_uri, created_at, modified_at
		FROM decks
		ORDER BY modified_at DESC, id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeReadFailure, "failed to list decks", err)
	}
	defer func() { _ = rows.Close() }()

	decks := make([]*models.Deck, 0)
	for rows.Next() {
		deck := &models.Deck{}
		if err := rows.Scan(
			&deck.ID,
			&deck.Name,
			&deck.ImageURI,
			&deck.CreatedAt,
			&deck.ModifiedAt,
		); err != nil {
			return nil, apperr.Wrap(apperr.CodeReadFailure, "failed to scan deck", err)
		}
		decks = append(decks, deck)
	}

	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.CodeReadFailure, "error iterating decks", err)
	}

	return decks, nil
}

// GetCards retrieves the rows of a deck in insertion order.
func (r *deckRepository) GetCards(ctx context.Context, deckID string) ([]*models.DeckCard, error) {
	query := `
		SELECT deck_id, position, card_id, quantity, name, set_code, set_number, price
		FROM deck_cards
		WHERE deck_id = ?
		ORDER BY position
	`

	rows, err := r.db.QueryContext(ctx, query, deckID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeReadFailure, "failed to get deck cards", err)
	}
	defer func() { _ = rows.Close() }()

	cards := make([]*models.DeckCard, 0)
	for rows.Next() {
		card := &models.DeckCard{}
		var price string
		if err := rows.Scan(
			&card.DeckID,
			&card.Position,
			&card.CardID,
			&card.Quantity,
			&card.Name,
			&card.SetCode,
			&card.SetNumber,
			&price,
		); err != nil {
			return nil, apperr.Wrap(apperr.CodeReadFailure, "failed to scan deck card", err)
		}
		if card.Price, err = parsePrice(price); err != nil {
			return nil, apperr.Wrap(apperr.CodeReadFailure, "failed to read deck card price", err)
		}
		cards = append(cards, card)
	}

	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.CodeReadFailure, "error iterating deck cards", err)
	}

	return cards, nil
}

// AddCard appends a row at the end of the deck. Adding a card that is
// already present increases its quantity and refreshes its snapshot.
func (r *deckRepository) AddCard(ctx context.Context, card *models.DeckCard) error {
	if card.Quantity < 1 {
		return apperr.New(apperr.CodeInvalidInput, fmt.Sprintf("invalid quantity %d", card.Quantity))
	}

	query := `
		INSERT INTO deck_cards (deck_id, position, card_id, quantity, name, set_code, set_number, price)
		VALUES (?, (SELECT COALESCE(MAX(position), 0) + 1 FROM deck_cards WHERE deck_id = ?), ?, ?, ?, ?, ?, ?)
		ON CONFLICT(deck_id, card_id) DO UPDATE SET
			quantity = deck_cards.quantity + excluded.quantity,
			name = excluded.name,
			set_code = excluded.set_code,
			set_number = excluded.set_number,
			price = excluded.price
	`

	err := withTransaction(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, query,
			card.DeckID,
			card.DeckID,
			card.CardID,
			card.Quantity,
			card.Name,
			card.SetCode,
			card.SetNumber,
			card.Price.String(),
		); err != nil {
			return fmt.Errorf("failed to add card: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE decks SET modified_at = ? WHERE id = ?`, time.Now(), card.DeckID,
		); err != nil {
			return fmt.Errorf("failed to touch deck: %w", err)
		}
		return nil
	})
	if err != nil {
		return apperr.Wrap(apperr.CodeWriteFailure, "failed to add card to deck", err)
	}

	return nil
}

// DeleteWhereIDIn deletes decks by id; their rows go with them.
func (r *deckRepository) DeleteWhereIDIn(ctx context.Context, ids []string) (int64, error) {
	n, err := deleteWhereIDIn(ctx, r.db, "decks", ids)
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeWriteFailure, "failed to delete decks", err)
	}
	return n, nil
}
