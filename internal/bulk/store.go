// Package bulk owns the local snapshot of the Scryfall catalog: a
// line-delimited file of normalized card records plus three in-memory
// indices (set+collector+language, oracle id, normalized name).
package bulk

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mtgproxyprint/server/internal/metrics"
	"github.com/mtgproxyprint/server/internal/models"
)

const (
	defaultBulkMetadataURL = "https://api.scryfall.com/bulk-data/all-cards"
	schemaVersion          = 2

	indexFileName = "cards.ndjson"
	metaFileName  = "metadata.json"
)

// storedCard is a CatalogCard plus the folded name keys computed at
// ingestion time.
type storedCard struct {
	models.CatalogCard
	NameKey        string `json:"name_key"`
	PrintedNameKey string `json:"printed_name_key,omitempty"`
}

type nameEntry struct {
	lang string
	card *storedCard
}

// langBucket keeps per-language printings of one (set, collector) pair.
// Insertion order is preserved so the any-language fallback is
// deterministic.
type langBucket struct {
	order  []string
	byLang map[string]*storedCard
}

// cardIndex holds all lookup structures. A rebuild constructs a fresh
// cardIndex and swaps it in whole; remote enrichment inserts into the
// live one under the write lock.
type cardIndex struct {
	bySetCollector map[string]*langBucket
	byOracleID     map[string][]*storedCard
	byNameKey      map[string][]nameEntry
	allCards       []*storedCard
}

func newCardIndex() *cardIndex {
	return &cardIndex{
		bySetCollector: make(map[string]*langBucket),
		byOracleID:     make(map[string][]*storedCard),
		byNameKey:      make(map[string][]nameEntry),
	}
}

// Store is the bulk data store. Lookups are cheap reads under an RWMutex;
// the only writers are full index swaps (rebuild) and incremental remote
// enrichment.
type Store struct {
	dataDir   string
	indexFile string
	metaFile  string

	metadataURL string
	metaClient  *http.Client
	bulkClient  *http.Client

	mu    sync.RWMutex
	index *cardIndex

	refresh singleflight.Group
}

// Options configures a Store. The zero value uses production defaults
// except DataDir, which is required.
type Options struct {
	DataDir string

	// MetadataURL overrides the bulk metadata endpoint, used by tests.
	MetadataURL string

	// HTTPClient is used for the metadata call; the bulk download uses
	// its own long-timeout client unless BulkHTTPClient is set.
	HTTPClient     *http.Client
	BulkHTTPClient *http.Client
}

// NewStore creates a store rooted at opts.DataDir. No network or disk
// activity happens until RefreshIfStale is called.
func NewStore(opts Options) (*Store, error) {
	if opts.DataDir == "" {
		return nil, fmt.Errorf("bulk store requires a data directory")
	}
	if opts.MetadataURL == "" {
		opts.MetadataURL = defaultBulkMetadataURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.BulkHTTPClient == nil {
		opts.BulkHTTPClient = &http.Client{Timeout: 15 * time.Minute}
	}

	return &Store{
		dataDir:     opts.DataDir,
		indexFile:   filepath.Join(opts.DataDir, indexFileName),
		metaFile:    filepath.Join(opts.DataDir, metaFileName),
		metadataURL: opts.MetadataURL,
		metaClient:  opts.HTTPClient,
		bulkClient:  opts.BulkHTTPClient,
		index:       newCardIndex(),
	}, nil
}

// CardCount reports the number of indexed printings.
func (s *Store) CardCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index.allCards)
}

// FindBySetAndCollector returns the printing for an exact
// (set, collector, language) triple. When the requested language is
// absent it falls back to English, then to the first-inserted language.
func (s *Store) FindBySetAndCollector(setCode, collectorNumber, lang string) *models.CatalogCard {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket := s.index.bySetCollector[setCollectorKey(setCode, collectorNumber)]
	if bucket == nil {
		return nil
	}

	if lang != "" {
		if card, ok := bucket.byLang[strings.ToLower(lang)]; ok {
			return card.Clone()
		}
	}
	if card, ok := bucket.byLang["en"]; ok {
		return card.Clone()
	}
	if len(bucket.order) > 0 {
		return bucket.byLang[bucket.order[0]].Clone()
	}
	return nil
}

// FindByName returns the best printing for a folded name. Candidates are
// scored by language mismatch then release recency; a set filter that
// excludes every candidate is retried once without the filter.
func (s *Store) FindByName(name, lang, set string) *models.CatalogCard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findByNameLocked(name, strings.ToLower(lang), strings.ToLower(set))
}

func (s *Store) findByNameLocked(name, lang, set string) *models.CatalogCard {
	entries := s.index.byNameKey[NormalizeName(name)]
	if len(entries) == 0 {
		return nil
	}

	var best *storedCard
	bestScore := float64(0)
	for _, entry := range entries {
		if set != "" && strings.ToLower(entry.card.Set) != set {
			continue
		}
		score := nameScore(entry.lang, lang, entry.card.ReleasedAt)
		if best == nil || score < bestScore {
			best = entry.card
			bestScore = score
		}
	}

	if best == nil {
		if set != "" {
			return s.findByNameLocked(name, lang, "")
		}
		return nil
	}

	return best.Clone()
}

// nameScore: lower is better. A language mismatch costs 5; recency is a
// small negative bonus (seconds scaled down) so it breaks ties without
// overriding the language preference.
func nameScore(entryLang, preferredLang, releasedAt string) float64 {
	score := 0.0
	if preferredLang != "" && entryLang != preferredLang {
		score += 5
	}
	score -= float64(releaseTime(releasedAt)) / 1e9
	return score
}

// SearchByName scores every indexed card against a folded query. A
// prefix match on the canonical or printed-name key beats a substring
// match; language mismatch penalizes; ties break newest-first. Results
// are deduplicated by card id before truncating to limit.
func (s *Store) SearchByName(query string, limit int, lang string) []models.CatalogCard {
	normalizedQuery := NormalizeName(query)
	if normalizedQuery == "" || limit <= 0 {
		return nil
	}
	preferredLang := strings.ToLower(lang)

	type scoredCard struct {
		score float64
		card  *storedCard
	}

	s.mu.RLock()
	scored := make([]scoredCard, 0, 64)
	for _, card := range s.index.allCards {
		score, ok := searchScore(card, normalizedQuery, preferredLang)
		if !ok {
			continue
		}
		scored = append(scored, scoredCard{score: score, card: card})
	}
	s.mu.RUnlock()

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score < scored[j].score
		}
		return releaseTime(scored[i].card.ReleasedAt) > releaseTime(scored[j].card.ReleasedAt)
	})

	seen := make(map[string]bool, limit)
	results := make([]models.CatalogCard, 0, limit)
	for _, entry := range scored {
		if seen[entry.card.ID] {
			continue
		}
		seen[entry.card.ID] = true
		results = append(results, *entry.card.Clone())
		if len(results) >= limit {
			break
		}
	}
	return results
}

func searchScore(card *storedCard, query, preferredLang string) (float64, bool) {
	matchesCanonical := strings.Contains(card.NameKey, query)
	matchesPrinted := card.PrintedNameKey != "" && strings.Contains(card.PrintedNameKey, query)
	if !matchesCanonical && !matchesPrinted {
		return 0, false
	}

	score := 1.0
	switch {
	case strings.HasPrefix(card.NameKey, query):
		score = 0
	case card.PrintedNameKey != "" && strings.HasPrefix(card.PrintedNameKey, query):
		score = 0.5
	}

	if preferredLang != "" && strings.ToLower(card.Lang) != preferredLang {
		score += 2
	}

	return score, true
}

// PrintingsForOracleID returns every indexed printing sharing an oracle
// id, newest release first. Empty oracle ids yield an empty list.
func (s *Store) PrintingsForOracleID(oracleID string) []models.CatalogCard {
	if oracleID == "" {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	cards := s.index.byOracleID[strings.ToLower(oracleID)]
	if len(cards) == 0 {
		return nil
	}

	printings := make([]models.CatalogCard, len(cards))
	for i, card := range cards {
		printings[i] = *card.Clone()
	}
	return printings
}

// IndexRemoteCard inserts a card learned from a live API lookup into the
// in-memory indices. The insert is an idempotent upsert: a printing
// whose (set, collector, language) triple is already indexed is left
// untouched, so bulk-loaded cards keep precedence and repeat enrichment
// never duplicates index entries. The on-disk snapshot is not modified.
func (s *Store) IndexRemoteCard(card *models.CatalogCard) {
	trimmed := filterCard(card)
	if trimmed == nil {
		return
	}

	s.mu.Lock()
	inserted := s.index.insert(trimmed, true)
	s.mu.Unlock()

	if inserted {
		metrics.IndexedCardsTotal.Inc()
	}
}

// insert adds a card to all indices, reporting whether it was new. When
// sortedInsert is set the oracle bucket keeps its newest-first order;
// bulk loading skips that and sorts each bucket once after the full
// load instead.
func (idx *cardIndex) insert(card *storedCard, sortedInsert bool) bool {
	key := setCollectorKey(card.Set, card.CollectorNumber)
	lang := strings.ToLower(card.Lang)

	bucket := idx.bySetCollector[key]
	if bucket == nil {
		bucket = &langBucket{byLang: make(map[string]*storedCard)}
		idx.bySetCollector[key] = bucket
	}
	if _, exists := bucket.byLang[lang]; exists {
		// Already indexed; first insert wins.
		return false
	}
	bucket.byLang[lang] = card
	bucket.order = append(bucket.order, lang)

	if card.OracleID != "" {
		oracleKey := strings.ToLower(card.OracleID)
		list := idx.byOracleID[oracleKey]
		if sortedInsert {
			pos := sort.Search(len(list), func(i int) bool {
				return releaseTime(list[i].ReleasedAt) < releaseTime(card.ReleasedAt)
			})
			list = append(list, nil)
			copy(list[pos+1:], list[pos:])
			list[pos] = card
		} else {
			list = append(list, card)
		}
		idx.byOracleID[oracleKey] = list
	}

	idx.byNameKey[card.NameKey] = append(idx.byNameKey[card.NameKey], nameEntry{lang: lang, card: card})
	idx.allCards = append(idx.allCards, card)
	return true
}

func setCollectorKey(setCode, collectorNumber string) string {
	return strings.ToLower(setCode) + "::" + strings.ToLower(collectorNumber)
}

// SnapshotPath reports the committed snapshot file location.
func (s *Store) SnapshotPath() string { return s.indexFile }

func (s *Store) ensureDataDir() error {
	return os.MkdirAll(s.dataDir, 0o755)
}
