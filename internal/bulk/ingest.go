package bulk

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mtgproxyprint/server/internal/metrics"
	"github.com/mtgproxyprint/server/internal/models"
)

// bulkMetadata is the remote catalog's bulk descriptor.
type bulkMetadata struct {
	UpdatedAt   string `json:"updated_at"`
	DownloadURI string `json:"download_uri"`
}

// localMetadata records what the committed snapshot was built from.
type localMetadata struct {
	UpdatedAt     string    `json:"updatedAt"`
	DownloadedAt  time.Time `json:"downloadedAt"`
	SchemaVersion int       `json:"schemaVersion"`
}

// RefreshIfStale rebuilds the snapshot and indices when the remote
// version tag or local schema version changed, or on first run. Returns
// true iff a rebuild occurred. Concurrent callers are coalesced: they
// all await the single in-flight refresh instead of triggering duplicate
// downloads.
func (s *Store) RefreshIfStale(ctx context.Context) (bool, error) {
	refreshed, err, _ := s.refresh.Do("refresh", func() (interface{}, error) {
		return s.ensureFreshIndex(ctx)
	})
	if err != nil {
		return false, err
	}
	return refreshed.(bool), nil
}

func (s *Store) ensureFreshIndex(ctx context.Context) (bool, error) {
	if err := s.ensureDataDir(); err != nil {
		return false, fmt.Errorf("failed to create data directory: %w", err)
	}

	remote, err := s.fetchBulkMetadata(ctx)
	if err != nil {
		return false, err
	}

	local := s.readLocalMetadata()
	indexExists := fileExists(s.indexFile)

	needsRefresh := !indexExists ||
		local == nil ||
		local.SchemaVersion != schemaVersion ||
		local.UpdatedAt != remote.UpdatedAt

	if needsRefresh {
		started := time.Now()
		if err := s.rebuildSnapshot(ctx, remote); err != nil {
			metrics.BulkRebuildsTotal.WithLabelValues("error").Inc()
			return false, err
		}
		metrics.BulkRebuildsTotal.WithLabelValues("success").Inc()
		metrics.BulkRebuildDuration.Observe(time.Since(started).Seconds())

		meta := localMetadata{
			UpdatedAt:     remote.UpdatedAt,
			DownloadedAt:  time.Now().UTC(),
			SchemaVersion: schemaVersion,
		}
		if err := s.writeLocalMetadata(meta); err != nil {
			return false, err
		}
	}

	if needsRefresh || s.CardCount() == 0 {
		if err := s.loadSnapshot(); err != nil {
			return false, err
		}
	}

	return needsRefresh, nil
}

func (s *Store) fetchBulkMetadata(ctx context.Context) (*bulkMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.metadataURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.metaClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bulk metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bulk metadata request returned status %d", resp.StatusCode)
	}

	var meta bulkMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("failed to decode bulk metadata: %w", err)
	}
	if meta.DownloadURI == "" {
		return nil, fmt.Errorf("bulk metadata response missing download URI")
	}
	return &meta, nil
}

// rebuildSnapshot streams the bulk payload, filters and normalizes each
// record, and writes one self-contained JSON object per line to a
// temporary file that atomically replaces the committed snapshot on
// success. A failure leaves the previous snapshot untouched.
func (s *Store) rebuildSnapshot(ctx context.Context, meta *bulkMetadata) (err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, meta.DownloadURI, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.bulkClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download bulk data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bulk download returned status %d", resp.StatusCode)
	}

	var payload io.Reader = resp.Body
	encoding := resp.Header.Get("Content-Encoding")
	if strings.Contains(strings.ToLower(encoding), "gzip") ||
		strings.HasSuffix(strings.ToLower(meta.DownloadURI), ".gz") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		payload = gz
	}

	tmp, err := os.CreateTemp(s.dataDir, "cards-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	writer := bufio.NewWriterSize(tmp, 1<<20)
	encoder := json.NewEncoder(writer)

	if err = streamCards(payload, func(card *storedCard) error {
		return encoder.Encode(card)
	}); err != nil {
		return fmt.Errorf("failed to parse bulk payload: %w", err)
	}

	if err = writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush snapshot: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err = os.Rename(tmp.Name(), s.indexFile); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// streamCards incrementally decodes a JSON array of card records without
// buffering the whole payload, invoking emit for each record that
// survives the ingestion filter.
func streamCards(r io.Reader, emit func(*storedCard) error) error {
	dec := json.NewDecoder(bufio.NewReaderSize(r, 1<<20))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("bulk payload is not a JSON array: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return fmt.Errorf("bulk payload is not a JSON array")
	}

	for dec.More() {
		var raw models.CatalogCard
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("malformed card record: %w", err)
		}
		card := filterCard(&raw)
		if card == nil {
			continue
		}
		if err := emit(card); err != nil {
			return err
		}
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("unterminated bulk payload: %w", err)
	}
	return nil
}

// filterCard applies the ingestion filter and normalizes a raw record:
// non-paper printings, token/emblem/planar/scheme layouts, and records
// missing identity fields are dropped; image variants are trimmed to the
// printable set and name keys are computed.
func filterCard(raw *models.CatalogCard) *storedCard {
	if raw == nil {
		return nil
	}

	if raw.Games != nil && !containsString(raw.Games, "paper") {
		return nil
	}

	layout := strings.ToLower(raw.Layout)
	if strings.Contains(layout, "token") || layout == "emblem" || layout == "planar" || layout == "scheme" {
		return nil
	}

	if raw.ID == "" || raw.Name == "" || raw.Set == "" || raw.CollectorNumber == "" {
		return nil
	}

	card := raw.Clone()
	if card.Lang == "" {
		card.Lang = "en"
	}
	card.ImageURIs = trimImageURIs(card.ImageURIs)
	for i := range card.CardFaces {
		card.CardFaces[i].ImageURIs = trimImageURIs(card.CardFaces[i].ImageURIs)
	}

	stored := &storedCard{
		CatalogCard: *card,
		NameKey:     NormalizeName(card.Name),
	}
	if card.PrintedName != "" {
		stored.PrintedNameKey = NormalizeName(card.PrintedName)
	}
	return stored
}

func trimImageURIs(uris *models.ImageURIs) *models.ImageURIs {
	if uris == nil {
		return nil
	}
	if uris.PNG == "" && uris.Large == "" && uris.Normal == "" && uris.ArtCrop == "" && uris.BorderCrop == "" {
		return nil
	}
	return uris
}

func containsString(list []string, want string) bool {
	for _, entry := range list {
		if entry == want {
			return true
		}
	}
	return false
}

// loadSnapshot streams the committed snapshot line by line into a fresh
// index, sorts each oracle bucket newest-first once, and swaps the live
// index atomically.
func (s *Store) loadSnapshot() error {
	idx := newCardIndex()

	file, err := os.Open(s.indexFile)
	if err != nil {
		if os.IsNotExist(err) {
			s.swapIndex(idx)
			return nil
		}
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var card storedCard
		if err := json.Unmarshal([]byte(line), &card); err != nil {
			return fmt.Errorf("corrupt snapshot line: %w", err)
		}
		idx.insert(&card, false)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	for _, cards := range idx.byOracleID {
		sort.SliceStable(cards, func(i, j int) bool {
			return releaseTime(cards[i].ReleasedAt) > releaseTime(cards[j].ReleasedAt)
		})
	}

	s.swapIndex(idx)
	return nil
}

func (s *Store) swapIndex(idx *cardIndex) {
	s.mu.Lock()
	s.index = idx
	s.mu.Unlock()
	metrics.IndexedCardsTotal.Set(float64(len(idx.allCards)))
}

func (s *Store) readLocalMetadata() *localMetadata {
	data, err := os.ReadFile(s.metaFile)
	if err != nil {
		return nil
	}
	var meta localMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil
	}
	return &meta
}

func (s *Store) writeLocalMetadata(meta localMetadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(s.metaFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
