package layout

import (
	"strings"
	"testing"
)

func TestBuildHTMLPaginatesByPaperCapacity(t *testing.T) {
	tiles := []Tile{{Image: "https://img.example/card.png", Qty: 10}}

	html := BuildHTML(tiles, Options{Paper: "A4"})

	// A4 holds 9 cards per page, so 10 copies need 2 pages.
	if got := strings.Count(html, `<div class="page">`); got != 2 {
		t.Errorf("expected 2 pages, got %d", got)
	}
	if got := strings.Count(html, `<div class="tile"`); got != 10 {
		t.Errorf("expected 10 tiles, got %d", got)
	}
}

func TestBuildHTMLQuantityExpansion(t *testing.T) {
	tiles := []Tile{
		{Image: "https://img.example/a.png", Qty: 3},
		{Image: "https://img.example/b.png", Qty: 0}, // treated as 1
		{Image: "", Qty: 5},                          // dropped
	}

	html := BuildHTML(tiles, Options{Paper: "A4"})

	if got := strings.Count(html, "a.png"); got != 3 {
		t.Errorf("expected 3 copies of a.png, got %d", got)
	}
	if got := strings.Count(html, "b.png"); got != 1 {
		t.Errorf("expected 1 copy of b.png, got %d", got)
	}
}

func TestBuildHTMLUnknownPaperFallsBackToA4(t *testing.T) {
	html := BuildHTML([]Tile{{Image: "x.png", Qty: 1}}, Options{Paper: "B5"})
	if !strings.Contains(html, "size: A4;") {
		t.Error("expected unknown paper to fall back to A4")
	}
}

func TestBuildHTMLPaperGrids(t *testing.T) {
	cases := []struct {
		paper   string
		perPage int
	}{
		{"A4", 9},
		{"A3", 24},
		{"A5", 4},
		{"Letter", 9},
		{"Legal", 12},
		{"Tabloid", 20},
	}

	for _, tc := range cases {
		tiles := []Tile{{Image: "c.png", Qty: tc.perPage + 1}}
		html := BuildHTML(tiles, Options{Paper: tc.paper})
		if got := strings.Count(html, `<div class="page">`); got != 2 {
			t.Errorf("%s: expected capacity %d to spill onto 2 pages, got %d pages", tc.paper, tc.perPage, got)
		}
	}
}

func TestBuildHTMLCutMarks(t *testing.T) {
	tiles := []Tile{{Image: "c.png", Qty: 1}}

	with := BuildHTML(tiles, Options{Paper: "A4", CutMarks: true})
	if got := strings.Count(with, `class="cut-mark`); got != 4 {
		t.Errorf("expected 4 cut marks per tile, got %d", got)
	}

	without := BuildHTML(tiles, Options{Paper: "A4"})
	if strings.Contains(without, `class="cut-mark`) {
		t.Error("expected no cut marks when disabled")
	}
}

func TestBuildHTMLGapRule(t *testing.T) {
	tiles := []Tile{{Image: "c.png", Qty: 1}}

	spaced := BuildHTML(tiles, Options{Paper: "A4", GapMM: 2})
	if !strings.Contains(spaced, "gap: var(--gap);") {
		t.Error("expected gap rule when gap > 0")
	}

	tight := BuildHTML(tiles, Options{Paper: "A4", GapMM: -3})
	if strings.Contains(tight, "gap: var(--gap);") {
		t.Error("expected no gap rule for non-positive gap")
	}
}

func TestBuildHTMLEscapesImageURL(t *testing.T) {
	tiles := []Tile{{Image: `https://img.example/x.png?a=1&b="<script>`, Qty: 1}}

	html := BuildHTML(tiles, Options{Paper: "A4"})

	if strings.Contains(html, `b="<script>`) {
		t.Error("expected image URL to be escaped")
	}
	if !strings.Contains(html, "&amp;") {
		t.Error("expected ampersand to be escaped")
	}
}
