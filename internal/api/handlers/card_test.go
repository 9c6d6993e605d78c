package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/mtg-binder/internal/apperr"
	"github.com/ramonehamilton/mtg-binder/internal/pagination"
	"github.com/ramonehamilton/mtg-binder/internal/storage"
	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
)

type cardPage struct {
	Data       CardPageResponse `json:"data"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalCount int              `json:"total_count"`
	TotalPages int              `json:"total_pages"`
}

func cardRouter(pages CardPager, cards CardReader) http.Handler {
	h := NewCardHandler(pages, cards, 2, 1)
	r := chi.NewRouter()
	r.Get("/cards", h.ListCards)
	r.Get("/cards/initial", h.InitialCards)
	r.Get("/cards/{cardID}", h.GetCard)
	return r
}

func storeCardRouter(t *testing.T) http.Handler {
	t.Helper()

	store := storage.NewTestService(t)
	seedCatalog(t, store)
	return cardRouter(pagination.NewEngine(store.Cards()), store.Cards())
}

func TestCardHandler_ListCards(t *testing.T) {
	router := storeCardRouter(t)

	tests := []struct {
		name      string
		query     string
		wantIDs   []string
		wantPage  int
		wantPages int
	}{
		{name: "default page size", query: "", wantIDs: []string{"shock", "wand"}, wantPage: 1, wantPages: 2},
		{name: "second page", query: "?page=2", wantIDs: []string{"opt"}, wantPage: 2, wantPages: 2},
		{name: "past the end", query: "?page=9", wantIDs: []string{}, wantPage: 9, wantPages: 2},
		{name: "page below one", query: "?page=-3", wantIDs: []string{"shock", "wand"}, wantPage: 1, wantPages: 2},
		{name: "explicit page size", query: "?page_size=3", wantIDs: []string{"shock", "wand", "opt"}, wantPage: 1, wantPages: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodGet, "/cards"+tt.query, nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var got cardPage
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.wantIDs, got.Data.IDs)
			assert.Len(t, got.Data.Cards, len(tt.wantIDs))
			assert.Equal(t, tt.wantPage, got.Page)
			assert.Equal(t, tt.wantPages, got.TotalPages)
			assert.Equal(t, 3, got.TotalCount)
		})
	}
}

func TestCardHandler_ListCards_BadQuery(t *testing.T) {
	router := storeCardRouter(t)

	for _, q := range []string{"?page=abc", "?page_size=0", "?page_size=-1", "?page_size=x"} {
		rec := doRequest(t, router, http.MethodGet, "/cards"+q, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

type failingPager struct{ err error }

func (f failingPager) Page(context.Context, int, int) (*pagination.Page, error) { return nil, f.err }

func (f failingPager) LoadInitialIDs(context.Context, int) ([]string, error) { return nil, f.err }

func TestCardHandler_ReadFailure(t *testing.T) {
	err := apperr.Wrap(apperr.CodeReadFailure, "failed to list cards", errors.New("locked"))
	router := cardRouter(failingPager{err: err}, nil)

	rec := doRequest(t, router, http.MethodGet, "/cards", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/cards/initial", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCardHandler_InitialCards(t *testing.T) {
	router := storeCardRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/cards/initial", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"shock"}, decodeData[map[string][]string](t, rec)["ids"])

	rec = doRequest(t, router, http.MethodGet, "/cards/initial?count=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"shock", "wand"}, decodeData[map[string][]string](t, rec)["ids"])
}

func TestCardHandler_GetCard(t *testing.T) {
	router := storeCardRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/cards/opt", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	card := decodeData[CardResponse](t, rec)
	assert.Equal(t, "Opt", card.Name)
	assert.Equal(t, "1.00", card.Price)
	assert.Equal(t, []models.Color{models.Blue}, card.Colors)

	rec = doRequest(t, router, http.MethodGet, "/cards/wand", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []models.Color{}, decodeData[CardResponse](t, rec).Colors)

	rec = doRequest(t, router, http.MethodGet, "/cards/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
