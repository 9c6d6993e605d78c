package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ramonehamilton/mtg-binder/internal/apperr"
	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
)

// WishlistRepository handles database operations for wishlists.
type WishlistRepository interface {
	// Create inserts a new wishlist.
	Create(ctx context.Context, wishlist *models.Wishlist) error

	// GetByID retrieves a wishlist by its ID. A miss returns (nil, nil).
	GetByID(ctx context.Context, id string) (*models.Wishlist, error)

	// List retrieves all wishlists, most recently modified first.
	List(ctx context.Context) ([]*models.Wishlist, error)

	// GetCards retrieves the rows of a wishlist in insertion order.
	GetCards(ctx context.Context, wishlistID string) ([]*models.WishlistCard, error)

	// AddCard appends a row, or adds to the quantity of an existing row.
	AddCard(ctx context.Context, card *models.WishlistCard) error

	Deleter
}

type wishlistRepository struct {
	db *sql.DB
}

// NewWishlistRepository creates a new wishlist repository.
func NewWishlistRepository(db *sql.DB) WishlistRepository {
	return &wishlistRepository{db: db}
}

func (r *wishlistRepository) Create(ctx context.Context, wishlist *models.Wishlist) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wishlists (id, name, image_uri, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		wishlist.ID,
		wishlist.Name,
		wishlist.ImageURI,
		wishlist.CreatedAt,
		wishlist.ModifiedAt,
	)
	if err != nil {
		return apperr.Wrap(apperr.CodeWriteFailure, "failed to create wishlist", err)
	}
	return nil
}

func (r *wishlistRepository) GetByID(ctx context.Context, id string) (*models.Wishlist, error) {
	w := &models.Wishlist{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, image_uri, created_at, modified_at
		FROM wishlists
		WHERE id = ?
	`, id).Scan(&w.ID, &w.Name, &w.ImageURI, &w.CreatedAt, &w.ModifiedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeReadFailure, "failed to get wishlist by id", err)
	}
	return w, nil
}

func (r *wishlistRepository) List(ctx context.Context) ([]*models.Wishlist, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, image_uri, created_at, modified_at
		FROM wishlists
		ORDER BY modified_at DESC, id
	`)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeReadFailure, "failed to list wishlists", err)
	}
	defer func() { _ = rows.Close() }()

	wishlists := make([]*models.Wishlist, 0)
	for rows.Next() {
		w := &models.Wishlist{}
		if err := rows.Scan(&w.ID, &w.Name, &w.ImageURI, &w.CreatedAt, &w.ModifiedAt); err != nil {
			return nil, apperr.Wrap(apperr.CodeReadFailure, "failed to scan wishlist", err)
		}
		wishlists = append(wishlists, w)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.CodeReadFailure, "error iterating wishlists", err)
	}
	return wishlists, nil
}

func (r *wishlistRepository) GetCards(ctx context.Context, wishlistID string) ([]*models.WishlistCard, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT wishlist_id, position, card_id, quantity, name, set_code, set_number, price
		FROM wishlist_cards
		WHERE wishlist_id = ?
		ORDER BY position
	`, wishlistID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeReadFailure, "failed to get wishlist cards", err)
	}
	defer func() { _ = rows.Close() }()

	cards := make([]*models.WishlistCard, 0)
	for rows.Next() {
		c := &models.WishlistCard{}
		var price string
		if err := rows.Scan(&c.WishlistID, &c.Position, &c.CardID, &c.Quantity,
			&c.Name, &c.SetCode, &c.SetNumber, &price); err != nil {
			return nil, apperr.Wrap(apperr.CodeReadFailure, "failed to scan wishlist card", err)
		}
		if c.Price, err = parsePrice(price); err != nil {
			return nil, apperr.Wrap(apperr.CodeReadFailure, "failed to read wishlist card price", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.CodeReadFailure, "error iterating wishlist cards", err)
	}
	return cards, nil
}

func (r *wishlistRepository) AddCard(ctx context.Context, card *models.WishlistCard) error {
	if card.Quantity < 1 {
		return apperr.New(apperr.CodeInvalidInput, fmt.Sprintf("invalid quantity %d", card.Quantity))
	}

	err := withTransaction(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO wishlist_cards (wishlist_id, position, card_id, quantity, name, set_code, set_number, price)
			VALUES (?, (SELECT COALESCE(MAX(position), 0) + 1 FROM wishlist_cards WHERE wishlist_id = ?), ?, ?, ?, ?, ?, ?)
			ON CONFLICT(wishlist_id, card_id) DO UPDATE SET
				quantity = wishlist_cards.quantity + excluded.quantity,
				name = excluded.name,
				set_code = excluded.set_code,
				set_number = excluded.set_number,
				price = excluded.price
		`,
			card.WishlistID, card.WishlistID, card.CardID, card.Quantity,
			card.Name, card.SetCode, card.SetNumber, card.Price.String(),
		); err != nil {
			return fmt.Errorf("failed to add card: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE wishlists SET modified_at = ? WHERE id = ?`, time.Now(), card.WishlistID,
		); err != nil {
			return fmt.Errorf("failed to touch wishlist: %w", err)
		}
		return nil
	})
	if err != nil {
		return apperr.Wrap(apperr.CodeWriteFailure, "failed to add card to wishlist", err)
	}
	return nil
}

func (r *wishlistRepository) DeleteWhereIDIn(ctx context.Context, ids []string) (int64, error) {
	n, err := deleteWhereIDIn(ctx, r.db, "wishlists", ids)
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeWriteFailure, "failed to delete wishlists", err)
	}
	return n, nil
}

func parsePrice(s string) (decimal.Decimal, error) {
	p, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("malformed price %q: %w", s, err)
	}
	return p, nil
}
