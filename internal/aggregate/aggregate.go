// Package aggregate derives deck and wishlist summaries from their rows.
package aggregate

import (
	"github.com/shopspring/decimal"

	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
)

// Summary is the derived view of a collection's rows.
type Summary struct {
	Colors     []models.Color  `json:"colors"`
	CardCount  int             `json:"card_count"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// FormatPrice rounds a monetary amount to two decimal places for display.
// Arithmetic stays exact until this point.
func FormatPrice(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Summarize folds rows into a Summary in a single pass. The result does not
// depend on row order: colors come back in WUBRG order and both sums are exact.
func Summarize(rows []models.CardWithQuantity) Summary {
	seen := make(map[models.Color]struct{}, len(models.ColorOrder))
	count := 0
	total := decimal.Zero

	for _, row := range rows {
		for _, c := range row.Colors {
			seen[c] = struct{}{}
		}
		count += row.Quantity
		total = total.Add(row.Price.Mul(decimal.NewFromInt(int64(row.Quantity))))
	}

	return Summary{
		Colors:     orderColors(seen),
		CardCount:  count,
		TotalPrice: total,
	}
}

// orderColors returns the members of set in canonical order. The card
// adapters reject symbols outside WUBRG on read.
func orderColors(set map[models.Color]struct{}) []models.Color {
	colors := make([]models.Color, 0, len(set))
	for _, c := range models.ColorOrder {
		if _, ok := set[c]; ok {
			colors = append(colors, c)
		}
	}
	return colors
}

// CardLookup resolves live cards by id. Missing ids are absent from the map.
type CardLookup map[string]*models.Card

// JoinRows turns stored rows into line items. Live card data wins where the
// card still exists; otherwise the row's own snapshot is used and the card is
// treated as colorless.
func JoinRows(rows []models.Row, cards CardLookup) []models.CardWithQuantity {
	items := make([]models.CardWithQuantity, 0, len(rows))
	for _, row := range rows {
		if live, ok := cards[row.CardID]; ok && live != nil {
			items = append(items, models.CardWithQuantity{Card: *live, Quantity: row.Quantity})
			continue
		}
		items = append(items, models.CardWithQuantity{
			Card: models.Card{
				ID:        row.CardID,
				Name:      row.Name,
				Colors:    []models.Color{},
				SetCode:   row.SetCode,
				SetNumber: row.SetNumber,
				Price:     row.Price,
			},
			Quantity: row.Quantity,
		})
	}
	return items
}
