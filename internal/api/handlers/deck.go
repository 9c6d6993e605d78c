package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/mtg-binder/internal/api/response"
	"github.com/ramonehamilton/mtg-binder/internal/collection"
)

// DeckService is the deck surface of collection.Service.
type DeckService interface {
	ListDecks(ctx context.Context) ([]*collection.DeckInfo, error)
	GetDeck(ctx context.Context, id string) (*collection.Deck, error)
	CreateDeck(ctx context.Context, name string, imageURI *string) (*collection.DeckInfo, error)
	AddDeckCard(ctx context.Context, deckID, cardID string, quantity int) error
}

// DeckHandler handles deck-related API requests.
type DeckHandler struct {
	service DeckService
}

// NewDeckHandler creates a new DeckHandler.
func NewDeckHandler(service DeckService) *DeckHandler {
	return &DeckHandler{service: service}
}

// GetDecks returns a summary of every deck.
func (h *DeckHandler) GetDecks(w http.ResponseWriter, r *http.Request) {
	decks, err := h.service.ListDecks(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}

	out := make([]SummaryResponse, len(decks))
	for i, d := range decks {
		out[i] = deckSummary(d)
	}
	response.Success(w, out)
}

// GetDeck returns a single deck with its cards.
func (h *DeckHandler) GetDeck(w http.ResponseWriter, r *http.Request) {
	deckID := chi.URLParam(r, "deckID")
	if deckID == "" {
		response.BadRequest(w, errors.New("deck ID is required"))
		return
	}

	deck, err := h.service.GetDeck(r.Context(), deckID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	if deck == nil {
		response.NotFound(w, errors.New("deck not found"))
		return
	}

	response.Success(w, DetailResponse{
		SummaryResponse: deckSummary(&deck.DeckInfo),
		Cards:           toLineItems(deck.Cards),
	})
}

// CreateDeck creates an empty deck.
func (h *DeckHandler) CreateDeck(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := decodeBody(r, &req); err != nil {
		response.BadRequest(w, err)
		return
	}

	deck, err := h.service.CreateDeck(r.Context(), req.Name, req.ImageURI)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, deckSummary(deck))
}

// AddCard adds copies of a catalog card to a deck.
func (h *DeckHandler) AddCard(w http.ResponseWriter, r *http.Request) {
	deckID := chi.URLParam(r, "deckID")

	var req AddCardRequest
	if err := decodeBody(r, &req); err != nil {
		response.BadRequest(w, err)
		return
	}
	if req.CardID == "" {
		response.BadRequest(w, errors.New("card_id is required"))
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	if err := h.service.AddDeckCard(r.Context(), deckID, req.CardID, req.Quantity); err != nil {
		response.FromError(w, err)
		return
	}

	response.NoContent(w)
}
