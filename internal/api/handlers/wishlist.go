package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/mtg-binder/internal/api/response"
	"github.com/ramonehamilton/mtg-binder/internal/collection"
)

// WishlistService is the wishlist surface of collection.Service.
type WishlistService interface {
	ListWishlists(ctx context.Context) ([]*collection.WishlistInfo, error)
	GetWishlist(ctx context.Context, id string) (*collection.Wishlist, error)
	CreateWishlist(ctx context.Context, name string, imageURI *string) (*collection.WishlistInfo, error)
	AddWishlistCard(ctx context.Context, wishlistID, cardID string, quantity int) error
}

// WishlistHandler handles wishlist-related API requests.
type WishlistHandler struct {
	service WishlistService
}

// NewWishlistHandler creates a new WishlistHandler.
func NewWishlistHandler(service WishlistService) *WishlistHandler {
	return &WishlistHandler{service: service}
}

// GetWishlists returns a summary of every wishlist.
func (h *WishlistHandler) GetWishlists(w http.ResponseWriter, r *http.Request) {
	lists, err := h.service.ListWishlists(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}

	out := make([]SummaryResponse, len(lists))
	for i, l := range lists {
		out[i] = wishlistSummary(l)
	}
	response.Success(w, out)
}

// GetWishlist returns a single wishlist with its cards.
func (h *WishlistHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	wishlistID := chi.URLParam(r, "wishlistID")
	if wishlistID == "" {
		response.BadRequest(w, errors.New("wishlist ID is required"))
		return
	}

	list, err := h.service.GetWishlist(r.Context(), wishlistID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	if list == nil {
		response.NotFound(w, errors.New("wishlist not found"))
		return
	}

	response.Success(w, DetailResponse{
		SummaryResponse: wishlistSummary(&list.WishlistInfo),
		Cards:           toLineItems(list.Cards),
	})
}

// CreateWishlist creates an empty wishlist.
func (h *WishlistHandler) CreateWishlist(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := decodeBody(r, &req); err != nil {
		response.BadRequest(w, err)
		return
	}

	list, err := h.service.CreateWishlist(r.Context(), req.Name, req.ImageURI)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, wishlistSummary(list))
}

// AddCard adds copies of a catalog card to a wishlist.
func (h *WishlistHandler) AddCard(w http.ResponseWriter, r *http.Request) {
	wishlistID := chi.URLParam(r, "wishlistID")

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

	if err := h.service.AddWishlistCard(r.Context(), wishlistID, req.CardID, req.Quantity); err != nil {
		response.FromError(w, err)
		return
	}

	response.NoContent(w)
}
