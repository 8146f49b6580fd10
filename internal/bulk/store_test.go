package bulk

import (
	"testing"

	"github.com/mtgproxyprint/server/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(Options{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func testCard(id, name, set, collector, lang, released string) *models.CatalogCard {
	return &models.CatalogCard{
		ID:              id,
		OracleID:        "oracle-" + name,
		Name:            name,
		Lang:            lang,
		Set:             set,
		CollectorNumber: collector,
		ReleasedAt:      released,
		Games:           []string{"paper"},
		ImageURIs:       &models.ImageURIs{PNG: "https://img.example/" + id + ".png"},
	}
}

func TestFindBySetAndCollectorLanguageFallback(t *testing.T) {
	store := newTestStore(t)
	store.IndexRemoteCard(testCard("en-1", "Shock", "m21", "159", "en", "2020-07-03"))
	store.IndexRemoteCard(testCard("de-1", "Schock", "m21", "159", "de", "2020-07-03"))

	if card := store.FindBySetAndCollector("m21", "159", "de"); card == nil || card.ID != "de-1" {
		t.Errorf("expected German printing, got %+v", card)
	}
	if card := store.FindBySetAndCollector("M21", "159", "en"); card == nil || card.ID != "en-1" {
		t.Errorf("expected English printing with case-folded set, got %+v", card)
	}
	// Unknown language falls back to English.
	if card := store.FindBySetAndCollector("m21", "159", "fr"); card == nil || card.ID != "en-1" {
		t.Errorf("expected English fallback, got %+v", card)
	}
}

func TestFindBySetAndCollectorFirstInsertedFallback(t *testing.T) {
	store := newTestStore(t)
	store.IndexRemoteCard(testCard("ja-1", "Shock", "sta", "44", "ja", "2021-04-23"))

	// No English printing indexed: fall back to the first-inserted language.
	if card := store.FindBySetAndCollector("sta", "44", "en"); card == nil || card.ID != "ja-1" {
		t.Errorf("expected first-inserted language fallback, got %+v", card)
	}
	if card := store.FindBySetAndCollector("sta", "999", "en"); card != nil {
		t.Errorf("expected nil for unknown collector, got %+v", card)
	}
}

func TestFindByNamePrefersLanguageThenRecency(t *testing.T) {
	store := newTestStore(t)
	store.IndexRemoteCard(testCard("en-old", "Opt", "xln", "65", "en", "2017-09-29"))
	store.IndexRemoteCard(testCard("en-new", "Opt", "dom", "60", "en", "2018-04-27"))
	store.IndexRemoteCard(testCard("de-1", "Opt", "eld", "59", "de", "2019-10-04"))

	// Matching language wins over recency.
	if card := store.FindByName("Opt", "en", ""); card == nil || card.ID != "en-new" {
		t.Errorf("expected newest English printing, got %+v", card)
	}
	if card := store.FindByName("opt", "de", ""); card == nil || card.ID != "de-1" {
		t.Errorf("expected German printing despite newer alternatives, got %+v", card)
	}
}

func TestFindByNameSetFilterRetriesWithoutSet(t *testing.T) {
	store := newTestStore(t)
	store.IndexRemoteCard(testCard("lea-1", "Lightning Bolt", "lea", "161", "en", "1993-08-05"))

	if card := store.FindByName("Lightning Bolt", "en", "m21"); card == nil || card.ID != "lea-1" {
		t.Errorf("expected set filter to be dropped when it excludes everything, got %+v", card)
	}
}

func TestFindByNameFoldsAccents(t *testing.T) {
	store := newTestStore(t)
	store.IndexRemoteCard(testCard("se-1", "Séance", "dka", "109", "en", "2012-02-03"))

	if card := store.FindByName("seance", "en", ""); card == nil || card.ID != "se-1" {
		t.Errorf("expected accent-folded name match, got %+v", card)
	}
	if card := store.FindByName("SÉANCE", "en", ""); card == nil || card.ID != "se-1" {
		t.Errorf("expected case and accent folded match, got %+v", card)
	}
}

func TestSearchByNamePrefixBeatsSubstring(t *testing.T) {
	store := newTestStore(t)
	store.IndexRemoteCard(testCard("bolt-1", "Lightning Bolt", "lea", "161", "en", "1993-08-05"))
	store.IndexRemoteCard(testCard("wall-1", "Wall of Lightning", "arb", "34", "en", "2009-04-30"))

	results := store.SearchByName("lightning", 10, "en")
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "bolt-1" {
		t.Errorf("expected prefix match first, got %s", results[0].ID)
	}
}

func TestSearchByNameLimitsAndOrders(t *testing.T) {
	store := newTestStore(t)
	store.IndexRemoteCard(testCard("s-1", "Shock", "m21", "159", "en", "2020-07-03"))
	store.IndexRemoteCard(testCard("s-2", "Shock", "m20", "160", "en", "2019-07-12"))
	store.IndexRemoteCard(testCard("s-3", "Shocker", "tmp", "211", "en", "1997-10-14"))

	results := store.SearchByName("shock", 2, "en")
	if len(results) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(results))
	}
	// Ties on score break newest-first.
	if results[0].ID != "s-1" {
		t.Errorf("expected newest printing first, got %s", results[0].ID)
	}

	if results := store.SearchByName("", 10, "en"); results != nil {
		t.Errorf("expected no results for empty query, got %d", len(results))
	}
}

func TestSearchByNameMatchesPrintedName(t *testing.T) {
	store := newTestStore(t)
	card := testCard("de-bolt", "Lightning Bolt", "fbb", "161", "de", "1994-04-01")
	card.PrintedName = "Blitzschlag"
	store.IndexRemoteCard(card)

	results := store.SearchByName("blitz", 10, "de")
	if len(results) != 1 || results[0].ID != "de-bolt" {
		t.Fatalf("expected printed-name match, got %+v", results)
	}
}

func TestPrintingsForOracleIDNewestFirst(t *testing.T) {
	store := newTestStore(t)
	store.IndexRemoteCard(testCard("p-old", "Opt", "xln", "65", "en", "2017-09-29"))
	store.IndexRemoteCard(testCard("p-new", "Opt", "eld", "59", "en", "2019-10-04"))
	store.IndexRemoteCard(testCard("p-mid", "Opt", "dom", "60", "en", "2018-04-27"))

	printings := store.PrintingsForOracleID("oracle-Opt")
	if len(printings) != 3 {
		t.Fatalf("expected 3 printings, got %d", len(printings))
	}
	want := []string{"p-new", "p-mid", "p-old"}
	for i, id := range want {
		if printings[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, printings[i].ID)
		}
	}

	if printings := store.PrintingsForOracleID(""); printings != nil {
		t.Error("expected nil for empty oracle id")
	}
}

func TestIndexRemoteCardIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	first := testCard("first", "Shock", "m21", "159", "en", "2020-07-03")
	store.IndexRemoteCard(first)

	// Same (set, collector, lang) triple: the original entry wins.
	duplicate := testCard("second", "Shock", "m21", "159", "en", "2020-07-03")
	store.IndexRemoteCard(duplicate)

	if store.CardCount() != 1 {
		t.Fatalf("expected 1 indexed card, got %d", store.CardCount())
	}
	if card := store.FindBySetAndCollector("m21", "159", "en"); card == nil || card.ID != "first" {
		t.Errorf("expected first insert to win, got %+v", card)
	}
}

func TestIndexRemoteCardAppliesIngestionFilter(t *testing.T) {
	store := newTestStore(t)

	digital := testCard("dig-1", "Shock", "m21", "159", "en", "2020-07-03")
	digital.Games = []string{"arena"}
	store.IndexRemoteCard(digital)

	token := testCard("tok-1", "Soldier", "tm21", "3", "en", "2020-07-03")
	token.Layout = "token"
	store.IndexRemoteCard(token)

	if store.CardCount() != 0 {
		t.Errorf("expected filtered cards to be skipped, got %d indexed", store.CardCount())
	}
}

func TestLookupsReturnClones(t *testing.T) {
	store := newTestStore(t)
	store.IndexRemoteCard(testCard("c-1", "Opt", "dom", "60", "en", "2018-04-27"))

	card := store.FindByName("Opt", "en", "")
	if card == nil {
		t.Fatal("expected a card")
	}
	card.Name = "mutated"
	card.ImageURIs.PNG = "mutated"

	again := store.FindByName("Opt", "en", "")
	if again == nil || again.Name != "Opt" {
		t.Errorf("index was mutated through a returned card: %+v", again)
	}
	if again.ImageURIs.PNG != "https://img.example/c-1.png" {
		t.Errorf("nested image state was mutated: %+v", again.ImageURIs)
	}
}

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Lightning Bolt", "lightning bolt"},
		{"Séance", "seance"},
		{"  Opt  ", "opt"},
		{"JÖTUN GRUNT", "jotun grunt"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeName(tc.in); got != tc.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
