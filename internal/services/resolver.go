package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mtgproxyprint/server/internal/bulk"
	"github.com/mtgproxyprint/server/internal/metrics"
	"github.com/mtgproxyprint/server/internal/models"
	"github.com/mtgproxyprint/server/internal/scryfall"
)

const (
	defaultRemoteConcurrency = 4
	defaultRefreshInterval   = 24 * time.Hour

	collectionCacheSize = 4096
	namedCacheSize      = 2048
	searchCacheSize     = 2048
)

// FindByNameOptions narrows a name lookup.
type FindByNameOptions struct {
	Lang string
	Set  string
}

// Resolver answers card lookups from the local bulk indices first and
// falls back to the live API under a bounded concurrency limiter. It
// owns the process-wide lookup caches.
type Resolver struct {
	store  *bulk.Store
	client *scryfall.Client

	collectionCache *scryfall.Cache
	namedCache      *scryfall.Cache
	searchCache     *scryfall.Cache

	remoteSlots chan struct{}

	refreshInterval time.Duration
}

// ResolverOptions configures a Resolver.
type ResolverOptions struct {
	RemoteConcurrency int
	RefreshInterval   time.Duration
}

// NewResolver wires the store and client behind a single lookup API.
func NewResolver(store *bulk.Store, client *scryfall.Client, opts ResolverOptions) (*Resolver, error) {
	if opts.RemoteConcurrency <= 0 {
		opts.RemoteConcurrency = defaultRemoteConcurrency
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = defaultRefreshInterval
	}

	collectionCache, err := scryfall.NewCache(collectionCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection cache: %w", err)
	}
	namedCache, err := scryfall.NewCache(namedCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create named cache: %w", err)
	}
	searchCache, err := scryfall.NewCache(searchCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create search cache: %w", err)
	}

	return &Resolver{
		store:           store,
		client:          client,
		collectionCache: collectionCache,
		namedCache:      namedCache,
		searchCache:     searchCache,
		remoteSlots:     make(chan struct{}, opts.RemoteConcurrency),
		refreshInterval: opts.RefreshInterval,
	}, nil
}

// FindByCollector resolves a (set, collector, language) lookup, local
// index first. A remote hit is immediately indexed so later lookups in
// the same process skip the network.
func (r *Resolver) FindByCollector(ctx context.Context, set, collector, lang string) (*models.CatalogCard, error) {
	if local := r.store.FindBySetAndCollector(set, collector, lang); local != nil {
		return local, nil
	}

	if err := r.acquireRemoteSlot(ctx); err != nil {
		return nil, err
	}
	defer r.releaseRemoteSlot()

	metrics.RemoteFallbacksTotal.Inc()
	card, err := r.client.FetchByCollector(ctx, set, collector, lang, r.collectionCache)
	if err != nil {
		return nil, err
	}
	if card != nil {
		r.store.IndexRemoteCard(card)
	}
	return card, nil
}

// FindByName resolves a name lookup, local index first. The remote
// fallback tries an exact named lookup, then a quoted search in the
// requested language, then a named lookup without the language filter.
// Outcomes, including confirmed misses, are cached.
func (r *Resolver) FindByName(ctx context.Context, name string, opts FindByNameOptions) (*models.CatalogCard, error) {
	lang := strings.ToLower(opts.Lang)

	if local := r.store.FindByName(name, lang, opts.Set); local != nil {
		return local, nil
	}

	if err := r.acquireRemoteSlot(ctx); err != nil {
		return nil, err
	}
	defer r.releaseRemoteSlot()

	cacheKey := nameOutcomeKey(name, lang, opts.Set)
	if cached, ok := r.searchCache.Get(cacheKey); ok {
		metrics.CacheRequestsTotal.WithLabelValues("name_outcome", "hit").Inc()
		return cached.Clone(), nil
	}
	metrics.CacheRequestsTotal.WithLabelValues("name_outcome", "miss").Inc()

	metrics.RemoteFallbacksTotal.Inc()
	card, err := r.client.FetchNamed(ctx, scryfall.NamedLookup{Name: name, Set: opts.Set, Lang: lang}, r.namedCache)
	if err != nil {
		return nil, err
	}

	if card == nil && lang != "" {
		card, err = r.client.FetchBySearch(ctx, fmt.Sprintf("%q", name), lang, r.namedCache)
		if err != nil {
			return nil, err
		}
	}

	if card == nil {
		// Final fallback without language restriction.
		card, err = r.client.FetchNamed(ctx, scryfall.NamedLookup{Name: name, Set: opts.Set}, r.namedCache)
		if err != nil {
			return nil, err
		}
	}

	if card != nil {
		r.store.IndexRemoteCard(card)
	}
	r.searchCache.Add(cacheKey, card.Clone())
	return card, nil
}

// GetPrintings lists every known printing sharing the card's oracle id,
// newest first, falling back to just the given card when no grouping is
// known.
func (r *Resolver) GetPrintings(card *models.CatalogCard) []models.CatalogCard {
	printings := r.store.PrintingsForOracleID(card.OracleID)
	if len(printings) > 0 {
		return printings
	}
	return []models.CatalogCard{*card.Clone()}
}

// SearchByName serves autocomplete-style queries from the local index.
func (r *Resolver) SearchByName(query string, limit int, lang string) []models.CatalogCard {
	return r.store.SearchByName(query, limit, lang)
}

// RefreshIfStale exposes the store's coalesced rebuild.
func (r *Resolver) RefreshIfStale(ctx context.Context) (bool, error) {
	return r.store.RefreshIfStale(ctx)
}

// StartAutoRefresh periodically refreshes the bulk snapshot until ctx is
// cancelled. It never blocks shutdown; run it on its own goroutine.
func (r *Resolver) StartAutoRefresh(ctx context.Context) {
	log.Printf("[scryfall] auto refresh started (interval %v)", r.refreshInterval)

	ticker := time.NewTicker(r.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[scryfall] auto refresh stopping")
			return
		case <-ticker.C:
			refreshed, err := r.store.RefreshIfStale(ctx)
			if err != nil {
				log.Printf("[scryfall] bulk data refresh failed: %v", err)
				continue
			}
			if refreshed {
				log.Printf("[scryfall] bulk data refreshed (%d cards indexed)", r.store.CardCount())
			}
		}
	}
}

func (r *Resolver) acquireRemoteSlot(ctx context.Context) error {
	select {
	case r.remoteSlots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Resolver) releaseRemoteSlot() {
	<-r.remoteSlots
}

func nameOutcomeKey(name, lang, set string) string {
	if lang == "" {
		lang = "en"
	}
	return strings.ToLower(name) + "::" + lang + "::" + strings.ToLower(set)
}
