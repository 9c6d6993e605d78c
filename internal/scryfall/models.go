package scryfall

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
)

// Card is the subset of a Scryfall card object used for pricing.
type Card struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	SetCode         string   `json:"set"`
	CollectorNumber string   `json:"collector_number"`
	ColorIdentity   []string `json:"color_identity"`
	Prices          Prices   `json:"prices"`
}

// Prices represents the prices of a card in various currencies.
type Prices struct {
	USD       *string `json:"usd,omitempty"`
	USDFoil   *string `json:"usd_foil,omitempty"`
	USDEtched *string `json:"usd_etched,omitempty"`
	EUR       *string `json:"eur,omitempty"`
	TIX       *string `json:"tix,omitempty"`
}

// USDPrice returns the nonfoil USD price, falling back to foil and etched.
// ok is false when Scryfall has no USD price for the printing.
func (p Prices) USDPrice() (price decimal.Decimal, ok bool, err error) {
	for _, s := range []*string{p.USD, p.USDFoil, p.USDEtched} {
		if s == nil || *s == "" {
			continue
		}
		d, err := decimal.NewFromString(*s)
		if err != nil {
			return decimal.Zero, false, fmt.Errorf("invalid price %q: %w", *s, err)
		}
		return d, true, nil
	}
	return decimal.Zero, false, nil
}

// CardIdentifier identifies a printing for the /cards/collection endpoint.
type CardIdentifier struct {
	ID              string `json:"id,omitempty"`               // Scryfall ID
	Name            string `json:"name,omitempty"`             // Card name
	Set             string `json:"set,omitempty"`              // Set code (requires collector_number)
	CollectorNumber string `json:"collector_number,omitempty"` // Collector number (requires set)
}

// Key returns the set/collector-number key used to match responses to
// requests. Scryfall lowercases set codes.
func (id CardIdentifier) Key() string {
	return printingKey(id.Set, id.CollectorNumber)
}

// IdentifierFor identifies a catalog card by its printing.
func IdentifierFor(card *models.Card) CardIdentifier {
	return CardIdentifier{Set: card.SetCode, CollectorNumber: card.SetNumber}
}

// Key returns the set/collector-number key of the card.
func (c Card) Key() string {
	return printingKey(c.SetCode, c.CollectorNumber)
}

func printingKey(set, number string) string {
	return strings.ToLower(set) + "#" + number
}

// CollectionRequest is the request body for /cards/collection.
type CollectionRequest struct {
	Identifiers []CardIdentifier `json:"identifiers"`
}

// CollectionResponse is the response from /cards/collection.
type CollectionResponse struct {
	Object   string           `json:"object"`
	NotFound []CardIdentifier `json:"not_found"`
	Data     []Card           `json:"data"`
}

// APIError represents an error response from Scryfall.
type APIError struct {
	Object  string `json:"object"`
	Code    string `json:"code"`
	Status  int    `json:"status"`
	Details string `json:"details"`
}

// Error implements the error interface for APIError.
func (e *APIError) Error() string {
	return fmt.Sprintf("Scryfall API error (HTTP %d): %s", e.Status, e.Details)
}
