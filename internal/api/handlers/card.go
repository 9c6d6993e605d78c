package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/mtg-binder/internal/api/response"
	"github.com/ramonehamilton/mtg-binder/internal/pagination"
	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
)

// CardPager is the pagination surface the card handler needs.
type CardPager interface {
	Page(ctx context.Context, page, pageSize int) (*pagination.Page, error)
	LoadInitialIDs(ctx context.Context, count int) ([]string, error)
}

// CardReader looks up single cards.
type CardReader interface {
	GetCardByID(ctx context.Context, id string) (*models.Card, error)
}

// CardHandler handles card catalog requests.
type CardHandler struct {
	pages        CardPager
	cards        CardReader
	pageSize     int
	initialCount int
}

// NewCardHandler creates a new CardHandler. pageSize and initialCount are
// the defaults used when a request does not set them.
func NewCardHandler(pages CardPager, cards CardReader, pageSize, initialCount int) *CardHandler {
	return &CardHandler{
		pages:        pages,
		cards:        cards,
		pageSize:     pageSize,
		initialCount: initialCount,
	}
}

// CardPageResponse is one page of the catalog.
type CardPageResponse struct {
	IDs   []string       `json:"ids"`
	Cards []CardResponse `json:"cards"`
}

// ListCards returns one page of the catalog.
func (h *CardHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		response.BadRequest(w, err)
		return
	}
	pageSize, err := queryInt(r, "page_size", h.pageSize)
	if err != nil {
		response.BadRequest(w, err)
		return
	}

	p, err := h.pages.Page(r.Context(), page, pageSize)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Paginated(w, CardPageResponse{
		IDs:   p.IDs,
		Cards: toCardResponses(p.Cards),
	}, p.Page, p.PageSize, p.TotalCount, p.TotalPages)
}

// InitialCards returns the ids for first paint.
func (h *CardHandler) InitialCards(w http.ResponseWriter, r *http.Request) {
	count, err := queryInt(r, "count", h.initialCount)
	if err != nil {
		response.BadRequest(w, err)
		return
	}

	ids, err := h.pages.LoadInitialIDs(r.Context(), count)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, map[string][]string{"ids": ids})
}

// GetCard returns a single card by ID.
func (h *CardHandler) GetCard(w http.ResponseWriter, r *http.Request) {
	cardID := chi.URLParam(r, "cardID")
	if cardID == "" {
		response.BadRequest(w, errors.New("card ID is required"))
		return
	}

	card, err := h.cards.GetCardByID(r.Context(), cardID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	if card == nil {
		response.NotFound(w, errors.New("card not found"))
		return
	}

	response.Success(w, toCardResponse(card))
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return v, nil
}
