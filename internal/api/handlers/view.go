package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/mtg-binder/internal/api/response"
	"github.com/ramonehamilton/mtg-binder/internal/bulk"
	"github.com/ramonehamilton/mtg-binder/internal/events"
	"github.com/ramonehamilton/mtg-binder/internal/selection"
	"github.com/ramonehamilton/mtg-binder/internal/storage/repository"
)

// ViewHandler scopes selections to mounted views and runs bulk deletes of
// a view's selection.
type ViewHandler struct {
	registry   *selection.Registry
	stores     map[string]repository.Deleter
	dispatcher events.Dispatcher
	logger     *slog.Logger

	mu       sync.Mutex
	mutators map[string]*bulk.Mutator
}

// NewViewHandler creates a ViewHandler. stores maps a collection path
// ("/cards", "/decks", "/wishlists") to the store its ids are deleted from.
func NewViewHandler(registry *selection.Registry, stores map[string]repository.Deleter, dispatcher events.Dispatcher, logger *slog.Logger) *ViewHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ViewHandler{
		registry:   registry,
		stores:     stores,
		dispatcher: dispatcher,
		logger:     logger,
		mutators:   make(map[string]*bulk.Mutator),
	}
}

// MountRequest mounts a view over a collection.
type MountRequest struct {
	Collection string `json:"collection"`
}

// ViewResponse describes a mounted view.
type ViewResponse struct {
	ViewID     string `json:"view_id"`
	Collection string `json:"collection"`
}

// SelectionResponse is the current selection of a view.
type SelectionResponse struct {
	IDs   []string `json:"ids"`
	Count int      `json:"count"`
}

// ToggleRequest toggles one id.
type ToggleRequest struct {
	ID string `json:"id"`
}

// SelectAllRequest selects many ids.
type SelectAllRequest struct {
	IDs []string `json:"ids"`
}

// Mount creates a view with an empty selection.
func (h *ViewHandler) Mount(w http.ResponseWriter, r *http.Request) {
	var req MountRequest
	if err := decodeBody(r, &req); err != nil {
		response.BadRequest(w, err)
		return
	}
	store, ok := h.stores[req.Collection]
	if !ok || store == nil {
		response.BadRequest(w, fmt.Errorf("unknown collection %q", req.Collection))
		return
	}

	view := h.registry.Mount(req.Collection)

	h.mu.Lock()
	h.mutators[view.ID] = bulk.NewMutator(bulk.Config{
		Store:      store,
		Path:       req.Collection,
		Dispatcher: h.dispatcher,
		Logger:     h.logger.With("view_id", view.ID),
	})
	h.mu.Unlock()

	response.Created(w, ViewResponse{ViewID: view.ID, Collection: view.Collection})
}

// Unmount discards a view and its selection. A delete already submitted for
// the view still completes.
func (h *ViewHandler) Unmount(w http.ResponseWriter, r *http.Request) {
	viewID := chi.URLParam(r, "viewID")
	if !h.registry.Unmount(viewID) {
		response.NotFound(w, errors.New("view not found"))
		return
	}

	h.mu.Lock()
	delete(h.mutators, viewID)
	h.mu.Unlock()

	response.NoContent(w)
}

// GetSelection returns the selected ids of a view.
func (h *ViewHandler) GetSelection(w http.ResponseWriter, r *http.Request) {
	view := h.view(w, r)
	if view == nil {
		return
	}
	writeSelection(w, view.Selection)
}

// Toggle flips one id.
func (h *ViewHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	view := h.view(w, r)
	if view == nil {
		return
	}

	var req ToggleRequest
	if err := decodeBody(r, &req); err != nil {
		response.BadRequest(w, err)
		return
	}
	if req.ID == "" {
		response.BadRequest(w, errors.New("id is required"))
		return
	}

	selected := view.Selection.Toggle(req.ID)
	response.Success(w, map[string]any{"id": req.ID, "selected": selected})
}

// SelectAll adds ids to the selection.
func (h *ViewHandler) SelectAll(w http.ResponseWriter, r *http.Request) {
	view := h.view(w, r)
	if view == nil {
		return
	}

	var req SelectAllRequest
	if err := decodeBody(r, &req); err != nil {
		response.BadRequest(w, err)
		return
	}

	view.Selection.SelectAll(req.IDs)
	writeSelection(w, view.Selection)
}

// Clear empties the selection.
func (h *ViewHandler) Clear(w http.ResponseWriter, r *http.Request) {
	view := h.view(w, r)
	if view == nil {
		return
	}

	view.Selection.Clear()
	writeSelection(w, view.Selection)
}

// Delete deletes every selected id from the view's collection. The deleted
// ids leave the selection only when the delete succeeds.
func (h *ViewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	view := h.view(w, r)
	if view == nil {
		return
	}

	h.mu.Lock()
	m := h.mutators[view.ID]
	h.mu.Unlock()
	if m == nil {
		response.NotFound(w, errors.New("view not found"))
		return
	}

	res := m.DeleteSelected(r.Context(), view.Selection)
	switch {
	case res.Success:
		response.JSON(w, http.StatusOK, res)
	case errors.Is(res.Err, bulk.ErrDeleteInFlight):
		response.JSON(w, http.StatusConflict, res)
	default:
		response.JSON(w, response.StatusFor(res.Err), res)
	}
}

func (h *ViewHandler) view(w http.ResponseWriter, r *http.Request) *selection.View {
	view := h.registry.Get(chi.URLParam(r, "viewID"))
	if view == nil {
		response.NotFound(w, errors.New("view not found"))
	}
	return view
}

func writeSelection(w http.ResponseWriter, set *selection.Set) {
	ids := set.SelectedIDs()
	response.Success(w, SelectionResponse{IDs: ids, Count: len(ids)})
}
