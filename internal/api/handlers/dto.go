package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ramonehamilton/mtg-binder/internal/aggregate"
	"github.com/ramonehamilton/mtg-binder/internal/collection"
	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
)

// CardResponse is the wire form of a card. Prices are decimal strings with
// two places.
type CardResponse struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Colors    []models.Color `json:"colors"`
	SetCode   string         `json:"set"`
	SetNumber string         `json:"set_number"`
	Price     string         `json:"price"`
}

// LineItemResponse is a card with its quantity inside a deck or wishlist.
type LineItemResponse struct {
	CardResponse
	Quantity int `json:"quantity"`
}

// SummaryResponse is the wire form of a deck or wishlist summary.
type SummaryResponse struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	ImageURI   *string        `json:"image_uri,omitempty"`
	Colors     []models.Color `json:"colors"`
	CardCount  int            `json:"card_count"`
	TotalPrice string         `json:"total_price"`
}

// DetailResponse is a summary plus its line items.
type DetailResponse struct {
	SummaryResponse
	Cards []LineItemResponse `json:"cards"`
}

func toCardResponse(c *models.Card) CardResponse {
	colors := c.Colors
	if colors == nil {
		colors = []models.Color{}
	}
	return CardResponse{
		ID:        c.ID,
		Name:      c.Name,
		Colors:    colors,
		SetCode:   c.SetCode,
		SetNumber: c.SetNumber,
		Price:     aggregate.FormatPrice(c.Price),
	}
}

func toCardResponses(cards []*models.Card) []CardResponse {
	out := make([]CardResponse, len(cards))
	for i, c := range cards {
		out[i] = toCardResponse(c)
	}
	return out
}

func toLineItems(items []models.CardWithQuantity) []LineItemResponse {
	out := make([]LineItemResponse, len(items))
	for i := range items {
		out[i] = LineItemResponse{
			CardResponse: toCardResponse(&items[i].Card),
			Quantity:     items[i].Quantity,
		}
	}
	return out
}

func deckSummary(d *collection.DeckInfo) SummaryResponse {
	return SummaryResponse{
		ID:         d.ID,
		Name:       d.Name,
		ImageURI:   d.ImageURI,
		Colors:     d.Colors,
		CardCount:  d.CardCount,
		TotalPrice: aggregate.FormatPrice(d.TotalPrice),
	}
}

func wishlistSummary(w *collection.WishlistInfo) SummaryResponse {
	return SummaryResponse{
		ID:         w.ID,
		Name:       w.Name,
		ImageURI:   w.ImageURI,
		Colors:     w.Colors,
		CardCount:  w.CardCount,
		TotalPrice: aggregate.FormatPrice(w.TotalPrice),
	}
}

// CreateRequest creates a deck or wishlist.
type CreateRequest struct {
	Name     string  `json:"name"`
	ImageURI *string `json:"image_uri,omitempty"`
}

// AddCardRequest adds copies of a card to a deck or wishlist.
type AddCardRequest struct {
	CardID   string `json:"card_id"`
	Quantity int    `json:"quantity"`
}

var errInvalidBody = errors.New("invalid request body")

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errInvalidBody
	}
	return nil
}
