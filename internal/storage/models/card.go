package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Color is a single color symbol of a card's color identity.
type Color string

const (
	White Color = "W"
	Blue  Color = "U"
	Black Color = "B"
	Red   Color = "R"
	Green Color = "G"
)

// ColorOrder is the canonical WUBRG ordering used when colors are displayed.
var ColorOrder = []Color{White, Blue, Black, Red, Green}

// Valid reports whether c is one of the five WUBRG symbols.
func (c Color) Valid() bool {
	switch c {
	case White, Blue, Black, Red, Green:
		return true
	}
	return false
}

// ValidateColors rejects any symbol outside WUBRG. Symbols are case-sensitive.
func ValidateColors(colors []Color) error {
	for _, c := range colors {
		if !c.Valid() {
			return fmt.Errorf("unknown color symbol %q", string(c))
		}
	}
	return nil
}

// Card is a catalog entry. Immutable once loaded within a request.
type Card struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Colors    []Color         `json:"colors"` // Empty means colorless
	SetCode   string          `json:"set"`
	SetNumber string          `json:"set_number"`
	Price     decimal.Decimal `json:"price"`
}

// CardWithQuantity is one line item of a deck or wishlist.
type CardWithQuantity struct {
	Card
	Quantity int `json:"quantity"`
}

// CardPrice is a price update for a single card.
type CardPrice struct {
	CardID string
	Price  decimal.Decimal
}
