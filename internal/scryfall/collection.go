package scryfall

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/mtgproxyprint/server/internal/models"
)

// MaxCollectionBatch is the Scryfall per-call identifier cap.
const MaxCollectionBatch = 75

// CollectionLookup is one batch identifier tied back to its request
// position.
type CollectionLookup struct {
	Index           int
	Set             string
	CollectorNumber string
	Lang            string
}

// CollectionResult maps request positions to cards; NotFound lists the
// positions the API could not resolve.
type CollectionResult struct {
	Found    map[int]*models.CatalogCard
	NotFound []int
}

type collectionIdentifier struct {
	Set             string `json:"set"`
	CollectorNumber string `json:"collector_number"`
	Lang            string `json:"lang,omitempty"`
}

type collectionRequest struct {
	Identifiers []collectionIdentifier `json:"identifiers"`
}

type collectionResponse struct {
	Data     []models.CatalogCard `json:"data"`
	NotFound []struct {
		Set             string `json:"set"`
		Code            string `json:"code"`
		CollectorNumber string `json:"collector_number"`
		Lang            string `json:"lang"`
	} `json:"not_found"`
}

// FetchCollection resolves a batch of set+collector identifiers via the
// /cards/collection endpoint. Lookups beyond the per-call cap are split
// into sequential chunks. Not-found entries are matched back to request
// positions by canonical identifier key, not array position, because the
// API does not guarantee not_found ordering.
func (c *Client) FetchCollection(ctx context.Context, lookups []CollectionLookup, cache *Cache) (*CollectionResult, error) {
	result := &CollectionResult{Found: make(map[int]*models.CatalogCard)}
	if len(lookups) == 0 {
		return result, nil
	}

	pending := make([]CollectionLookup, 0, len(lookups))
	for _, lookup := range lookups {
		key := collectionCacheKey(lookup)
		if card, ok := cacheGet(cache, "collection", key); ok {
			result.Found[lookup.Index] = card
			continue
		}
		pending = append(pending, lookup)
	}

	for offset := 0; offset < len(pending); offset += MaxCollectionBatch {
		end := offset + MaxCollectionBatch
		if end > len(pending) {
			end = len(pending)
		}
		chunk := pending[offset:end]

		if err := c.fetchCollectionChunk(ctx, chunk, cache, result); err != nil {
			return nil, fmt.Errorf("failed to fetch collection chunk %d-%d: %w", offset, end, err)
		}
	}

	return result, nil
}

func (c *Client) fetchCollectionChunk(ctx context.Context, chunk []CollectionLookup, cache *Cache, result *CollectionResult) error {
	reqBody := collectionRequest{Identifiers: make([]collectionIdentifier, len(chunk))}
	for i, lookup := range chunk {
		reqBody.Identifiers[i] = collectionIdentifier{
			Set:             strings.ToLower(lookup.Set),
			CollectorNumber: lookup.CollectorNumber,
			Lang:            strings.ToLower(lookup.Lang),
		}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	reqURL := c.baseURL + "/cards/collection"
	resp, err := c.do(ctx, http.MethodPost, reqURL, payload, "collection")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// 404 here means the endpoint itself is missing, not an absent card,
	// so it surfaces as an error rather than an empty result.
	if err := checkStatus(resp, reqURL); err != nil {
		return err
	}

	var decoded collectionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("failed to decode scryfall response: %w", err)
	}

	notFoundKeys := make(map[string]bool, len(decoded.NotFound))
	for _, entry := range decoded.NotFound {
		set := entry.Set
		if set == "" {
			set = entry.Code
		}
		notFoundKeys[collectionCacheKey(CollectionLookup{
			Set:             set,
			CollectorNumber: entry.CollectorNumber,
			Lang:            entry.Lang,
		})] = true
	}

	// Found cards come back in request order with not-found entries
	// removed, so walk the chunk and consume data positionally only for
	// identifiers the API resolved.
	dataIndex := 0
	for _, lookup := range chunk {
		key := collectionCacheKey(lookup)
		if notFoundKeys[key] {
			result.NotFound = append(result.NotFound, lookup.Index)
			continue
		}
		if dataIndex >= len(decoded.Data) {
			result.NotFound = append(result.NotFound, lookup.Index)
			continue
		}
		card := &decoded.Data[dataIndex]
		dataIndex++
		result.Found[lookup.Index] = card
		cacheAdd(cache, key, card)
	}

	return nil
}

func collectionCacheKey(lookup CollectionLookup) string {
	lang := strings.ToLower(lookup.Lang)
	if lang == "" {
		lang = "en"
	}
	return fmt.Sprintf("collection:%s:%s:%s",
		strings.ToLower(lookup.Set),
		strings.ToLower(lookup.CollectorNumber),
		lang)
}
