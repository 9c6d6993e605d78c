package scryfall

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/mtg-binder/internal/events"
	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
)

type memoryStore struct {
	mu      sync.Mutex
	cards   []*models.Card
	updates [][]models.CardPrice
}

func (s *memoryStore) GetCardByID(_ context.Context, id string) (*models.Card, error) {
	for _, c := range s.cards {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

func (s *memoryStore) GetAllCards(context.Context) ([]*models.Card, error) {
	return s.cards, nil
}

func (s *memoryStore) UpdatePrices(_ context.Context, prices []models.CardPrice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, prices)
	return nil
}

// priceServer answers collection requests with usd = "<collector number>.00".
func priceServer(t *testing.T, batches *[]int) *httptest.Server {
	t.Helper()
	var mu sync.Mutex
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req CollectionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		mu.Lock()
		*batches = append(*batches, len(req.Identifiers))
		mu.Unlock()

		resp := CollectionResponse{Object: "list"}
		for _, id := range req.Identifiers {
			if id.Set == "MISSING" {
				resp.NotFound = append(resp.NotFound, id)
				continue
			}
			usd := id.CollectorNumber + ".00"
			resp.Data = append(resp.Data, Card{
				Name:            "card " + id.CollectorNumber,
				SetCode:         id.Set,
				CollectorNumber: id.CollectorNumber,
				Prices:          Prices{USD: &usd},
			})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestRefresh_UpdatesChangedPrices(t *testing.T) {
	var batches []int
	server := priceServer(t, &batches)
	defer server.Close()

	store := &memoryStore{cards: []*models.Card{
		{ID: "a", SetCode: "tst", SetNumber: "1", Price: decimal.RequireFromString("1.00")},
		{ID: "b", SetCode: "tst", SetNumber: "2", Price: decimal.RequireFromString("0.50")},
		{ID: "b-alt", SetCode: "TST", SetNumber: "2", Price: decimal.RequireFromString("0.50")},
		{ID: "gone", SetCode: "MISSING", SetNumber: "9"},
		{ID: "no-printing", Name: "Proxy"},
	}}

	d := events.NewEventDispatcher(nil)
	rec := events.NewRecordingObserver()
	d.Register(rec)

	r := NewPriceRefresher(RefresherConfig{Client: newTestClient(server.URL), Store: store, Dispatcher: d})
	result, err := r.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.Requested, "duplicate printings are requested once")
	assert.Equal(t, 2, result.Updated)
	assert.Equal(t, 1, result.NotFound)

	require.Len(t, store.updates, 1, "prices are written in one update")
	got := map[string]string{}
	for _, u := range store.updates[0] {
		got[u.CardID] = u.Price.StringFixed(2)
	}
	assert.Equal(t, map[string]string{"b": "2.00", "b-alt": "2.00"}, got)

	recorded := rec.Events()
	require.Len(t, recorded, 2)
	assert.Equal(t, events.TypePricesRefreshed, recorded[0].Type)
	inv, ok := events.GetTypedData[events.CollectionInvalidatedEvent](recorded[1])
	require.True(t, ok)
	assert.Equal(t, events.PathCards, inv.Path)
	assert.ElementsMatch(t, []string{"b", "b-alt"}, inv.IDs)
}

func TestRefresh_Batches(t *testing.T) {
	var batches []int
	server := priceServer(t, &batches)
	defer server.Close()

	store := &memoryStore{}
	for i := 1; i <= 160; i++ {
		store.cards = append(store.cards, &models.Card{ID: fmt.Sprint(i), SetCode: "big", SetNumber: fmt.Sprint(i)})
	}

	r := NewPriceRefresher(RefresherConfig{Client: newTestClient(server.URL), Store: store})
	_, err := r.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{75, 75, 10}, batches)
}

func TestRefresh_FailedBatchWritesNothing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	store := &memoryStore{cards: []*models.Card{{ID: "a", SetCode: "tst", SetNumber: "1"}}}
	d := events.NewEventDispatcher(nil)
	rec := events.NewRecordingObserver()
	d.Register(rec)

	r := NewPriceRefresher(RefresherConfig{Client: newTestClient(server.URL), Store: store, Dispatcher: d})
	_, err := r.Refresh(context.Background())

	assert.Error(t, err)
	assert.Empty(t, store.updates)
	assert.Empty(t, rec.Events())
}
