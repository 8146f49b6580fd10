package scryfall

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mtgproxyprint/server/internal/models"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(Options{
		BaseURL:            server.URL,
		MinRequestInterval: time.Millisecond,
	})
	return client, server
}

func writeCard(w http.ResponseWriter, card models.CatalogCard) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(card)
}

func TestFetchByCollectorRetriesUntilSuccess(t *testing.T) {
	var attempts atomic.Int64
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeCard(w, models.CatalogCard{ID: "abc", Name: "Shock", Set: "m21", CollectorNumber: "159", Lang: "en"})
	}))

	card, err := client.FetchByCollector(context.Background(), "m21", "159", "en", nil)
	if err != nil {
		t.Fatalf("FetchByCollector: %v", err)
	}
	if card == nil || card.ID != "abc" {
		t.Fatalf("expected card abc, got %+v", card)
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestRetryBudgetIsBounded(t *testing.T) {
	var attempts atomic.Int64
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := client.FetchByCollector(context.Background(), "m21", "159", "en", nil)
	if err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
	// Two retries on top of the initial attempt, never more.
	if got := attempts.Load(); got != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", got)
	}

	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Status != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", apiErr.Status)
	}
}

func TestNonRetryableStatusFailsImmediately(t *testing.T) {
	var attempts atomic.Int64
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))

	_, err := client.FetchByCollector(context.Background(), "m21", "159", "en", nil)
	if err == nil {
		t.Fatal("expected an error for a 400 response")
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("expected a single attempt for a non-retryable status, got %d", got)
	}
}

func TestFetchByCollectorNotFoundIsAbsence(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	card, err := client.FetchByCollector(context.Background(), "m21", "999", "en", nil)
	if err != nil {
		t.Fatalf("expected 404 to be absence, got error: %v", err)
	}
	if card != nil {
		t.Errorf("expected nil card, got %+v", card)
	}
}

func TestFetchNamedUsesCache(t *testing.T) {
	var requests atomic.Int64
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		writeCard(w, models.CatalogCard{ID: "opt-1", Name: "Opt", Set: "dom", CollectorNumber: "60", Lang: "en"})
	}))

	cache, err := NewCache(16)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}

	lookup := NamedLookup{Name: "Opt", Lang: "en"}
	for i := 0; i < 3; i++ {
		card, err := client.FetchNamed(context.Background(), lookup, cache)
		if err != nil {
			t.Fatalf("FetchNamed: %v", err)
		}
		if card == nil || card.ID != "opt-1" {
			t.Fatalf("expected opt-1, got %+v", card)
		}
	}

	if got := requests.Load(); got != 1 {
		t.Errorf("expected a single network request, got %d", got)
	}
}

func TestFetchBySearchPrefersRequestedLanguage(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []models.CatalogCard{
				{ID: "en-1", Name: "Shock", Lang: "en", Set: "m21", CollectorNumber: "159"},
				{ID: "de-1", Name: "Shock", PrintedName: "Schock", Lang: "de", Set: "m21", CollectorNumber: "159"},
			},
		})
	}))

	card, err := client.FetchBySearch(context.Background(), `name:"Shock"`, "de", nil)
	if err != nil {
		t.Fatalf("FetchBySearch: %v", err)
	}
	if card == nil || card.ID != "de-1" {
		t.Errorf("expected the German printing, got %+v", card)
	}
}

func TestFetchBySearchFailureIsAbsence(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	card, err := client.FetchBySearch(context.Background(), `name:"Nonexistent"`, "en", nil)
	if err != nil {
		t.Fatalf("expected a failed search to be absence, got error: %v", err)
	}
	if card != nil {
		t.Errorf("expected nil card, got %+v", card)
	}
}

func TestTimeoutIsRetriedLikeServerError(t *testing.T) {
	var attempts atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			// Outlast the client timeout so the first attempt fails in
			// transit rather than with a status code.
			time.Sleep(300 * time.Millisecond)
			return
		}
		writeCard(w, models.CatalogCard{ID: "s-1", Name: "Shock", Set: "m21", CollectorNumber: "159", Lang: "en"})
	}))
	t.Cleanup(server.Close)

	client := NewClient(Options{
		BaseURL:            server.URL,
		MinRequestInterval: time.Millisecond,
		HTTPClient:         &http.Client{Timeout: 50 * time.Millisecond},
	})

	card, err := client.FetchByCollector(context.Background(), "m21", "159", "en", nil)
	if err != nil {
		t.Fatalf("FetchByCollector: %v", err)
	}
	if card == nil || card.ID != "s-1" {
		t.Fatalf("expected s-1 after the timed-out attempt was retried, got %+v", card)
	}
	if got := attempts.Load(); got != 2 {
		t.Errorf("expected 2 attempts, got %d", got)
	}
}

func TestRetryAfterHeaderIsHonored(t *testing.T) {
	var attempts atomic.Int64
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeCard(w, models.CatalogCard{ID: "s-1", Name: "Shock", Set: "m21", CollectorNumber: "159", Lang: "en"})
	}))

	start := time.Now()
	card, err := client.FetchByCollector(context.Background(), "m21", "159", "en", nil)
	if err != nil {
		t.Fatalf("FetchByCollector: %v", err)
	}
	if card == nil || card.ID != "s-1" {
		t.Fatalf("expected s-1, got %+v", card)
	}
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Errorf("expected the Retry-After delay to be honored, total elapsed %v", elapsed)
	}
	if got := attempts.Load(); got != 2 {
		t.Errorf("expected 2 attempts, got %d", got)
	}
}
