package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/mtg-binder/internal/bulk"
	"github.com/ramonehamilton/mtg-binder/internal/events"
	"github.com/ramonehamilton/mtg-binder/internal/selection"
	"github.com/ramonehamilton/mtg-binder/internal/storage"
	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
	"github.com/ramonehamilton/mtg-binder/internal/storage/repository"
)

func viewRouter(stores map[string]repository.Deleter, d events.Dispatcher) http.Handler {
	h := NewViewHandler(selection.NewRegistry(), stores, d, nil)
	r := chi.NewRouter()
	r.Post("/views", h.Mount)
	r.Delete("/views/{viewID}", h.Unmount)
	r.Get("/views/{viewID}/selection", h.GetSelection)
	r.Post("/views/{viewID}/selection/toggle", h.Toggle)
	r.Post("/views/{viewID}/selection/select-all", h.SelectAll)
	r.Post("/views/{viewID}/selection/clear", h.Clear)
	r.Post("/views/{viewID}/delete", h.Delete)
	return r
}

func mountView(t *testing.T, router http.Handler, collection string) string {
	t.Helper()

	rec := doRequest(t, router, http.MethodPost, "/views", MountRequest{Collection: collection})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	view := decodeData[ViewResponse](t, rec)
	require.NotEmpty(t, view.ViewID)
	assert.Equal(t, collection, view.Collection)
	return view.ViewID
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) bulk.Result {
	t.Helper()

	var res bulk.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res), rec.Body.String())
	return res
}

func TestViewHandler_Mount_UnknownCollection(t *testing.T) {
	router := viewRouter(map[string]repository.Deleter{}, nil)

	rec := doRequest(t, router, http.MethodPost, "/views", MountRequest{Collection: "/binders"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestViewHandler_UnknownView(t *testing.T) {
	router := viewRouter(map[string]repository.Deleter{}, nil)

	for _, req := range []struct{ method, path string }{
		{http.MethodGet, "/views/nope/selection"},
		{http.MethodPost, "/views/nope/selection/clear"},
		{http.MethodPost, "/views/nope/delete"},
		{http.MethodDelete, "/views/nope"},
	} {
		rec := doRequest(t, router, req.method, req.path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, req.path)
	}
}

func TestViewHandler_SelectionIsScopedToView(t *testing.T) {
	router := viewRouter(map[string]repository.Deleter{events.PathDecks: newBlockingDeleter()}, nil)
	first := mountView(t, router, events.PathDecks)
	second := mountView(t, router, events.PathDecks)

	rec := doRequest(t, router, http.MethodPost, "/views/"+first+"/selection/toggle", ToggleRequest{ID: "a"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeData[map[string]any](t, rec)["selected"])

	rec = doRequest(t, router, http.MethodGet, "/views/"+second+"/selection", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decodeData[SelectionResponse](t, rec).Count)

	rec = doRequest(t, router, http.MethodPost, "/views/"+first+"/selection/toggle", ToggleRequest{ID: "a"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeData[map[string]any](t, rec)["selected"])

	rec = doRequest(t, router, http.MethodPost, "/views/"+first+"/selection/toggle", ToggleRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/views/"+first+"/selection/select-all", SelectAllRequest{IDs: []string{"c", "b", "c"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"b", "c"}, decodeData[SelectionResponse](t, rec).IDs)

	rec = doRequest(t, router, http.MethodPost, "/views/"+first+"/selection/clear", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decodeData[SelectionResponse](t, rec).Count)

	rec = doRequest(t, router, http.MethodDelete, "/views/"+first, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = doRequest(t, router, http.MethodGet, "/views/"+first+"/selection", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestViewHandler_DeleteDecks(t *testing.T) {
	store := storage.NewTestService(t)
	ctx := context.Background()
	now := time.Now()
	for _, id := range []string{"d1", "d2", "d3"} {
		require.NoError(t, store.Decks().Create(ctx, &models.Deck{ID: id, Name: id, CreatedAt: now, ModifiedAt: now}))
	}

	d := events.NewEventDispatcher(nil)
	rec := events.NewRecordingObserver(events.TypeCollectionInvalidated)
	d.Register(rec)

	router := viewRouter(map[string]repository.Deleter{events.PathDecks: store.Decks()}, d)
	viewID := mountView(t, router, events.PathDecks)

	// Empty selection succeeds without an event.
	resp := doRequest(t, router, http.MethodPost, "/views/"+viewID+"/delete", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, decodeResult(t, resp).Success)
	assert.Empty(t, rec.Events())

	doRequest(t, router, http.MethodPost, "/views/"+viewID+"/selection/select-all", SelectAllRequest{IDs: []string{"d1", "d3"}})

	resp = doRequest(t, router, http.MethodPost, "/views/"+viewID+"/delete", nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	res := decodeResult(t, resp)
	assert.True(t, res.Success)
	assert.Equal(t, int64(2), res.Deleted)

	decks, err := store.Decks().List(ctx)
	require.NoError(t, err)
	require.Len(t, decks, 1)
	assert.Equal(t, "d2", decks[0].ID)

	resp = doRequest(t, router, http.MethodGet, "/views/"+viewID+"/selection", nil)
	assert.Equal(t, 0, decodeData[SelectionResponse](t, resp).Count)

	recorded := rec.Events()
	require.Len(t, recorded, 1)
	payload, ok := events.GetTypedData[events.CollectionInvalidatedEvent](recorded[0])
	require.True(t, ok)
	assert.Equal(t, events.PathDecks, payload.Path)
}

// blockingDeleter holds every delete until release is closed.
type blockingDeleter struct {
	started chan struct{}
	release chan struct{}
	err     error
}

func newBlockingDeleter() *blockingDeleter {
	return &blockingDeleter{started: make(chan struct{}, 1), release: make(chan struct{})}
}

func (b *blockingDeleter) DeleteWhereIDIn(_ context.Context, ids []string) (int64, error) {
	b.started <- struct{}{}
	<-b.release
	if b.err != nil {
		return 0, b.err
	}
	return int64(len(ids)), nil
}

func TestViewHandler_DeleteInFlight(t *testing.T) {
	store := newBlockingDeleter()
	router := viewRouter(map[string]repository.Deleter{events.PathWishlists: store}, nil)
	viewID := mountView(t, router, events.PathWishlists)
	doRequest(t, router, http.MethodPost, "/views/"+viewID+"/selection/toggle", ToggleRequest{ID: "w1"})

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- doRequest(t, router, http.MethodPost, "/views/"+viewID+"/delete", nil)
	}()

	select {
	case <-store.started:
	case <-time.After(2 * time.Second):
		t.Fatal("delete never reached the store")
	}

	resp := doRequest(t, router, http.MethodPost, "/views/"+viewID+"/delete", nil)
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.False(t, decodeResult(t, resp).Success)

	close(store.release)
	first := <-done
	assert.Equal(t, http.StatusOK, first.Code)
}

func TestViewHandler_DeleteFailureKeepsSelection(t *testing.T) {
	store := newBlockingDeleter()
	store.err = errors.New("database is locked")
	close(store.release)

	router := viewRouter(map[string]repository.Deleter{events.PathWishlists: store}, nil)
	viewID := mountView(t, router, events.PathWishlists)
	doRequest(t, router, http.MethodPost, "/views/"+viewID+"/selection/toggle", ToggleRequest{ID: "w1"})

	resp := doRequest(t, router, http.MethodPost, "/views/"+viewID+"/delete", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.False(t, decodeResult(t, resp).Success)

	resp = doRequest(t, router, http.MethodGet, "/views/"+viewID+"/selection", nil)
	assert.Equal(t, []string{"w1"}, decodeData[SelectionResponse](t, resp).IDs)
}
