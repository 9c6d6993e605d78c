package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Deck is the stored header of a deck.
type Deck struct {
	ID         string
	Name       string
	ImageURI   *string // Nullable
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// DeckCard is a denormalized row of a deck as stored.
// Name, set and price are a snapshot taken when the row was written and may
// not match the live card.
type DeckCard struct {
	DeckID    string
	Position  int // Insertion order within the deck
	CardID    string
	Quantity  int
	Name      string
	SetCode   string
	SetNumber string
	Price     decimal.Decimal
}

// Wishlist is the stored header of a wishlist.
type Wishlist struct {
	ID         string
	Name       string
	ImageURI   *string // Nullable
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// WishlistCard is a denormalized row of a wishlist as stored.
type WishlistCard struct {
	WishlistID string
	Position   int
	CardID     string
	Quantity   int
	Name       string
	SetCode    string
	SetNumber  string
	Price      decimal.Decimal
}

// Row is the store-native shape shared by deck and wishlist rows.
type Row struct {
	CardID    string
	Quantity  int
	Name      string
	SetCode   string
	SetNumber string
	Price     decimal.Decimal
}

// Row returns the collection-independent part of the deck row.
func (c *DeckCard) Row() Row {
	return Row{
		CardID:    c.CardID,
		Quantity:  c.Quantity,
		Name:      c.Name,
		SetCode:   c.SetCode,
		SetNumber: c.SetNumber,
		Price:     c.Price,
	}
}

// Row returns the collection-independent part of the wishlist row.
func (c *WishlistCard) Row() Row {
	return Row{
		CardID:    c.CardID,
		Quantity:  c.Quantity,
		Name:      c.Name,
		SetCode:   c.SetCode,
		SetNumber: c.SetNumber,
		Price:     c.Price,
	}
}
