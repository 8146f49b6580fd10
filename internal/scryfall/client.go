// Package scryfall is the facade over the live Scryfall API. It owns
// request throttling, retry with backoff, per-call result caching, and
// image selection for resolved cards.
package scryfall

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/mtgproxyprint/server/internal/metrics"
	"github.com/mtgproxyprint/server/internal/models"
)

const (
	defaultBaseURL   = "https://api.scryfall.com"
	defaultUserAgent = "MTGProxyPrint/1.0 (+https://github.com/mtgproxyprint/server)"

	// Scryfall asks clients to keep 50-100ms between requests.
	defaultMinRequestInterval = 100 * time.Millisecond

	requestTimeout = 10 * time.Second
	maxRetries     = 2
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = time.Second
)

var retryableStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Cache is a shared lookup cache keyed by canonical identifier string.
// A nil value under a present key records a confirmed miss.
type Cache = lru.Cache[string, *models.CatalogCard]

// NewCache creates a card cache of the given capacity.
func NewCache(size int) (*Cache, error) {
	return lru.New[string, *models.CatalogCard](size)
}

// Client talks to the Scryfall API with a serialized minimum
// inter-request interval shared across all endpoints.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	userAgent  string
}

// Options configures a Client. The zero value uses production defaults.
type Options struct {
	BaseURL            string
	UserAgent          string
	MinRequestInterval time.Duration
	HTTPClient         *http.Client
}

// NewClient creates a Scryfall API client.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.MinRequestInterval == 0 {
		opts.MinRequestInterval = defaultMinRequestInterval
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: requestTimeout}
	}

	return &Client{
		httpClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(rate.Every(opts.MinRequestInterval), 1),
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		userAgent:  opts.UserAgent,
	}
}

// NamedLookup identifies a card by exact name with optional set and
// language filters.
type NamedLookup struct {
	Name string
	Set  string
	Lang string
}

// FetchNamed looks a card up by exact name. Returns nil, nil when the
// card does not exist (404).
func (c *Client) FetchNamed(ctx context.Context, lookup NamedLookup, cache *Cache) (*models.CatalogCard, error) {
	name := strings.TrimSpace(lookup.Name)
	set := strings.ToLower(lookup.Set)
	lang := strings.ToLower(lookup.Lang)

	cacheKey := namedCacheKey(name, set, lang)
	if card, ok := cacheGet(cache, "named", cacheKey); ok {
		return card, nil
	}

	params := url.Values{}
	params.Set("exact", name)
	params.Set("pretty", "false")
	if set != "" {
		params.Set("set", set)
	}
	if lang != "" {
		params.Set("lang", lang)
	}

	reqURL := fmt.Sprintf("%s/cards/named?%s", c.baseURL, params.Encode())
	resp, err := c.do(ctx, http.MethodGet, reqURL, nil, "named")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, reqURL); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var card models.CatalogCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return nil, fmt.Errorf("failed to decode scryfall response: %w", err)
	}

	cacheAdd(cache, cacheKey, &card)
	return &card, nil
}

// FetchBySearch runs a full-text search and returns the best match,
// preferring the requested language among the results. A failed or empty
// search is an absent result, not an error.
func (c *Client) FetchBySearch(ctx context.Context, query, lang string, cache *Cache) (*models.CatalogCard, error) {
	lang = strings.ToLower(lang)

	cacheKey := searchCacheKey(query, lang)
	if card, ok := cacheGet(cache, "search", cacheKey); ok {
		return card, nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("unique", "prints")
	if lang != "" {
		params.Set("order", "lang")
	}

	reqURL := fmt.Sprintf("%s/cards/search?%s", c.baseURL, params.Encode())
	resp, err := c.do(ctx, http.MethodGet, reqURL, nil, "search")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	var result struct {
		Data []models.CatalogCard `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode scryfall response: %w", err)
	}
	if len(result.Data) == 0 {
		return nil, nil
	}

	// Client-side language selection: the API cannot filter by language.
	card := &result.Data[0]
	if lang != "" {
		for i := range result.Data {
			if strings.ToLower(result.Data[i].Lang) == lang {
				card = &result.Data[i]
				break
			}
		}
	}

	cacheAdd(cache, cacheKey, card)
	return card, nil
}

// FetchByCollector looks a card up by set code, collector number, and
// optional language path segments. Returns nil, nil on 404.
func (c *Client) FetchByCollector(ctx context.Context, set, collector, lang string, cache *Cache) (*models.CatalogCard, error) {
	set = strings.ToLower(set)
	lang = strings.ToLower(lang)

	cacheKey := collectorCacheKey(set, collector, lang)
	if card, ok := cacheGet(cache, "collector", cacheKey); ok {
		return card, nil
	}

	reqURL := fmt.Sprintf("%s/cards/%s/%s", c.baseURL, url.PathEscape(set), url.PathEscape(collector))
	if lang != "" {
		reqURL += "/" + url.PathEscape(lang)
	}

	resp, err := c.do(ctx, http.MethodGet, reqURL, nil, "collector")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, reqURL); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var card models.CatalogCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return nil, fmt.Errorf("failed to decode scryfall response: %w", err)
	}

	cacheAdd(cache, cacheKey, &card)
	return &card, nil
}

// do performs a request with throttling and retry. Retryable statuses
// (429, 500, 502, 503, 504) and transport failures, including timeouts,
// are retried up to maxRetries times with exponential backoff, honoring
// a server-provided Retry-After when present. The final response is
// returned unconsumed; callers own status handling and the body.
func (c *Client) do(ctx context.Context, method, reqURL string, body []byte, endpoint string) (*http.Response, error) {
	backoff := initialBackoff
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			metrics.ScryfallRetriesTotal.Inc()
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Timeouts follow the same retry policy as a 5xx.
			lastErr = fmt.Errorf("scryfall request failed: %w", err)
			metrics.ScryfallRequestsTotal.WithLabelValues(endpoint, "error").Inc()
			if attempt < maxRetries {
				if err := sleepCtx(ctx, backoff); err != nil {
					return nil, err
				}
				backoff = minDuration(backoff*2, maxBackoff)
				continue
			}
			return nil, lastErr
		}

		metrics.ScryfallRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

		if retryableStatuses[resp.StatusCode] && attempt < maxRetries {
			delay := retryAfterDelay(resp, backoff)
			resp.Body.Close()
			if err := sleepCtx(ctx, delay); err != nil {
				return nil, err
			}
			backoff = minDuration(backoff*2, maxBackoff)
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

// retryAfterDelay prefers the server's Retry-After header (seconds) over
// the computed backoff.
func retryAfterDelay(resp *http.Response, fallback time.Duration) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return fallback
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func cacheGet(cache *Cache, name, key string) (*models.CatalogCard, bool) {
	if cache == nil {
		return nil, false
	}
	card, ok := cache.Get(key)
	if ok {
		metrics.CacheRequestsTotal.WithLabelValues(name, "hit").Inc()
		return card.Clone(), true
	}
	metrics.CacheRequestsTotal.WithLabelValues(name, "miss").Inc()
	return nil, false
}

func cacheAdd(cache *Cache, key string, card *models.CatalogCard) {
	if cache == nil {
		return
	}
	cache.Add(key, card.Clone())
}

func namedCacheKey(name, set, lang string) string {
	if lang == "" {
		lang = "en"
	}
	return fmt.Sprintf("named:%s|%s|%s", strings.ToLower(name), set, lang)
}

func searchCacheKey(query, lang string) string {
	if lang == "" {
		lang = "en"
	}
	return fmt.Sprintf("search:%s:%s", query, lang)
}

func collectorCacheKey(set, collector, lang string) string {
	if lang == "" {
		lang = "en"
	}
	return fmt.Sprintf("collector:%s:%s:%s", set, collector, lang)
}
