package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ramonehamilton/mtg-binder/internal/apperr"
	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
)

// CardRepository is the read capability every card store adapter provides.
// Callers depend on this interface only, never on a concrete adapter.
type CardRepository interface {
	// GetCardByID retrieves a card by its ID. A miss returns (nil, nil).
	GetCardByID(ctx context.Context, id string) (*models.Card, error)

	// GetAllCards returns the whole catalog in a stable order.
	// An empty catalog is an empty slice and a nil error.
	GetAllCards(ctx context.Context) ([]*models.Card, error)
}

// Deleter removes rows by identifier. Deleting an absent id is not an error,
// and the whole call is atomic as seen by later reads.
type Deleter interface {
	DeleteWhereIDIn(ctx context.Context, ids []string) (int64, error)
}

// CardWriter mutates the relational catalog.
type CardWriter interface {
	// UpsertCards inserts or replaces cards in one transaction.
	UpsertCards(ctx context.Context, cards []*models.Card) error

	// UpdatePrices sets new prices for existing cards. Unknown ids are ignored.
	UpdatePrices(ctx context.Context, prices []models.CardPrice) error
}

// CardStore is the full relational card adapter.
type CardStore interface {
	CardRepository
	CardWriter
	Deleter
}

// cardRepository is the SQLite implementation of CardStore.
type cardRepository struct {
	db *sql.DB
}

// NewCardRepository creates a new SQLite-backed card repository.
func NewCardRepository(db *sql.DB) CardStore {
	return &cardRepository{db: db}
}

const cardColumns = `id, name, colors, set_code, set_number, price`

// GetCardByID retrieves a card by its ID.
func (r *cardRepository) GetCardByID(ctx context.Context, id string) (*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = ?`

	card, err := scanCard(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeReadFailure, fmt.Sprintf("failed to get card %s", id), err)
	}
	return card, nil
}

// GetAllCards returns every card ordered by set, collector number and id.
// Collector numbers compare by their leading integer ("2" before "10"), then
// as text so suffixed printings like "12a" stay after "12".
func (r *cardRepository) GetAllCards(ctx context.Context) ([]*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards
		ORDER BY set_code, CAST(set_number AS INTEGER), set_number, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeReadFailure, "failed to list cards", err)
	}
	defer func() { _ = rows.Close() }()

	cards := make([]*models.Card, 0)
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeReadFailure, "failed to scan card", err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.CodeReadFailure, "error iterating cards", err)
	}

	return cards, nil
}

// UpsertCards inserts or replaces cards in one transaction.
func (r *cardRepository) UpsertCards(ctx context.Context, cards []*models.Card) error {
	if len(cards) == 0 {
		return nil
	}
	for _, c := range cards {
		if err := models.ValidateColors(c.Colors); err != nil {
			return apperr.Wrap(apperr.CodeInvalidInput, fmt.Sprintf("card %s", c.ID), err)
		}
	}

	query := `
		INSERT INTO cards (id, name, colors, set_code, set_number, price, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			colors = excluded.colors,
			set_code = excluded.set_code,
			set_number = excluded.set_number,
			price = excluded.price,
			updated_at = excluded.updated_at
	`

	now := time.Now()
	err := withTransaction(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare upsert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, c := range cards {
			if _, err := stmt.ExecContext(ctx,
				c.ID,
				c.Name,
				encodeColors(c.Colors),
				c.SetCode,
				c.SetNumber,
				c.Price.String(),
				now,
			); err != nil {
				return fmt.Errorf("failed to upsert card %s: %w", c.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return apperr.Wrap(apperr.CodeWriteFailure, "failed to upsert cards", err)
	}
	return nil
}

// UpdatePrices sets new prices for existing cards.
func (r *cardRepository) UpdatePrices(ctx context.Context, prices []models.CardPrice) error {
	if len(prices) == 0 {
		return nil
	}

	now := time.Now()
	err := withTransaction(ctx, r.db, func(tx *sql.Tx) error {
		for _, p := range prices {
			if _, err := tx.ExecContext(ctx,
				`UPDATE cards SET price = ?, updated_at = ? WHERE id = ?`,
				p.Price.String(), now, p.CardID,
			); err != nil {
				return fmt.Errorf("failed to update price of %s: %w", p.CardID, err)
			}
		}
		return nil
	})
	if err != nil {
		return apperr.Wrap(apperr.CodeWriteFailure, "failed to update prices", err)
	}
	return nil
}

// DeleteWhereIDIn removes cards by id. Deck and wishlist rows keep their
// denormalized snapshot of deleted cards.
func (r *cardRepository) DeleteWhereIDIn(ctx context.Context, ids []string) (int64, error) {
	n, err := deleteWhereIDIn(ctx, r.db, "cards", ids)
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeWriteFailure, "failed to delete cards", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCard(s rowScanner) (*models.Card, error) {
	var (
		card   models.Card
		colors string
		price  string
	)
	if err := s.Scan(&card.ID, &card.Name, &colors, &card.SetCode, &card.SetNumber, &price); err != nil {
		return nil, err
	}

	p, err := parsePrice(price)
	if err != nil {
		return nil, fmt.Errorf("card %s: %w", card.ID, err)
	}
	card.Price = p
	if card.Colors, err = decodeColors(colors); err != nil {
		return nil, fmt.Errorf("card %s: %w", card.ID, err)
	}

	return &card, nil
}

// encodeColors stores a color identity as a comma separated list.
func encodeColors(colors []models.Color) string {
	parts := make([]string, len(colors))
	for i, c := range colors {
		parts[i] = string(c)
	}
	return strings.Join(parts, ",")
}

func decodeColors(s string) ([]models.Color, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	colors := make([]models.Color, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			colors = append(colors, models.Color(p))
		}
	}
	if err := models.ValidateColors(colors); err != nil {
		return nil, err
	}
	return colors, nil
}
