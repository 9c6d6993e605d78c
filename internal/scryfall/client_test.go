package scryfall

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(url string) *Client {
	return NewClient(ClientOptions{
		BaseURL:   url,
		RateLimit: time.Millisecond,
		Backoff:   time.Millisecond,
	})
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(ClientOptions{})

	if client.baseURL != DefaultBaseURL {
		t.Errorf("Expected base URL %s, got %s", DefaultBaseURL, client.baseURL)
	}
	if client.httpClient == nil {
		t.Error("httpClient is nil")
	}
	if client.rateLimiter == nil {
		t.Error("rateLimiter is nil")
	}
	if client.userAgent == "" {
		t.Error("userAgent is empty")
	}
}

func TestClient_GetCollection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/cards/collection" {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}

		var req CollectionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if len(req.Identifiers) != 2 {
			t.Errorf("Expected 2 identifiers, got %d", len(req.Identifiers))
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"object": "list",
			"not_found": [{"set": "zzz", "collector_number": "1"}],
			"data": [{"id": "sf-1", "name": "Lightning Bolt", "set": "2xm", "collector_number": "141", "prices": {"usd": "1.75"}}]
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	found, notFound, err := client.GetCollection(context.Background(), []CardIdentifier{
		{Set: "2XM", CollectorNumber: "141"},
		{Set: "ZZZ", CollectorNumber: "1"},
	})
	if err != nil {
		t.Fatalf("GetCollection() error = %v", err)
	}

	if len(found) != 1 || found[0].Name != "Lightning Bolt" {
		t.Fatalf("Unexpected cards: %+v", found)
	}
	if found[0].Key() != (CardIdentifier{Set: "2XM", CollectorNumber: "141"}).Key() {
		t.Error("Expected response key to match the request key regardless of set case")
	}
	if len(notFound) != 1 {
		t.Errorf("Expected 1 not found, got %d", len(notFound))
	}
}

func TestClient_GetCollection_BatchLimit(t *testing.T) {
	client := newTestClient("http://unused.invalid")

	ids := make([]CardIdentifier, MaxBatchSize+1)
	if _, _, err := client.GetCollection(context.Background(), ids); err == nil {
		t.Error("Expected error for oversized batch")
	}

	found, _, err := client.GetCollection(context.Background(), nil)
	if err != nil || len(found) != 0 {
		t.Errorf("Expected empty result for empty batch, got %v, %v", found, err)
	}
}

func TestClient_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"object": "list", "data": []}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, _, err := client.GetCollection(context.Background(), []CardIdentifier{{Name: "Opt"}})
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("Expected 3 calls, got %d", calls.Load())
	}
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, _, err := client.GetCollection(context.Background(), []CardIdentifier{{Name: "Opt"}})
	if err == nil {
		t.Fatal("Expected error after max retries")
	}
	if calls.Load() != maxRetries+1 {
		t.Errorf("Expected %d calls, got %d", maxRetries+1, calls.Load())
	}
}

func TestClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"object": "error", "code": "bad_request", "status": 400, "details": "too many identifiers"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, _, err := client.GetCollection(context.Background(), []CardIdentifier{{Name: "Opt"}})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", apiErr.Status)
	}
}

func TestPrices_USDPrice(t *testing.T) {
	str := func(s string) *string { return &s }

	tests := []struct {
		name    string
		prices  Prices
		want    string
		ok      bool
		wantErr bool
	}{
		{name: "nonfoil", prices: Prices{USD: str("1.25"), USDFoil: str("9.00")}, want: "1.25", ok: true},
		{name: "foil fallback", prices: Prices{USDFoil: str("9.00")}, want: "9", ok: true},
		{name: "etched fallback", prices: Prices{USDEtched: str("4.50")}, want: "4.5", ok: true},
		{name: "no usd", prices: Prices{EUR: str("1.00")}, ok: false},
		{name: "malformed", prices: Prices{USD: str("n/a")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := tt.prices.USDPrice()
			if (err != nil) != tt.wantErr {
				t.Fatalf("USDPrice() error = %v, wantErr %v", err, tt.wantErr)
			}
			if ok != tt.ok {
				t.Errorf("USDPrice() ok = %v, want %v", ok, tt.ok)
			}
			if tt.ok && got.String() != tt.want {
				t.Errorf("USDPrice() = %s, want %s", got, tt.want)
			}
		})
	}
}
