// Package layout renders resolved card images into a print-ready HTML
// document. Pages are sized for physical paper and tiled with real card
// dimensions so the output can be printed and cut without scaling.
package layout

import (
	"fmt"
	"html"
	"math"
	"strings"
)

// Physical dimensions in millimeters. Cards use the standard trading
// card size.
const (
	cardWidthMM        = 63
	cardHeightMM       = 88
	cutMarkThicknessMM = 0.2
	cutMarkLengthMM    = 3
	pageMarginMM       = 10
)

// PaperConfig is the card grid a paper size can hold at full card size.
type PaperConfig struct {
	CardsPerRow     int
	CardsPerColumn  int
	MaxCardsPerPage int
}

var paperConfigs = map[string]PaperConfig{
	"A4":      {CardsPerRow: 3, CardsPerColumn: 3, MaxCardsPerPage: 9},
	"A3":      {CardsPerRow: 4, CardsPerColumn: 6, MaxCardsPerPage: 24},
	"A5":      {CardsPerRow: 2, CardsPerColumn: 2, MaxCardsPerPage: 4},
	"Letter":  {CardsPerRow: 3, CardsPerColumn: 3, MaxCardsPerPage: 9},
	"Legal":   {CardsPerRow: 3, CardsPerColumn: 4, MaxCardsPerPage: 12},
	"Tabloid": {CardsPerRow: 4, CardsPerColumn: 5, MaxCardsPerPage: 20},
}

// Tile is one card to print. Qty below 1 is treated as 1.
type Tile struct {
	Image string `json:"image"`
	Qty   int    `json:"qty"`
	Label string `json:"label,omitempty"`
}

// Options controls the page layout. Unknown paper sizes fall back to A4.
type Options struct {
	Paper    string  `json:"paper"`
	GapMM    float64 `json:"gapMm"`
	CutMarks bool    `json:"cutMarks"`
}

// BuildHTML renders tiles into a paginated HTML document.
func BuildHTML(tiles []Tile, opts Options) string {
	gap := opts.GapMM
	if math.IsNaN(gap) || math.IsInf(gap, 0) || gap < 0 {
		gap = 0
	}

	paper := opts.Paper
	config, ok := paperConfigs[paper]
	if !ok {
		paper = "A4"
		config = paperConfigs["A4"]
	}

	copies := expandTiles(tiles)

	var pages []string
	for start := 0; start < len(copies); start += config.MaxCardsPerPage {
		end := start + config.MaxCardsPerPage
		if end > len(copies) {
			end = len(copies)
		}
		pages = append(pages, pageMarkup(copies[start:end], start, opts.CutMarks))
	}

	gapRule := ""
	if gap > 0 {
		gapRule = "gap: var(--gap);"
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="UTF-8" />
    <title>MTG Proxy Print</title>
    <style>
      :root {
        --card-width: %dmm;
        --card-height: %dmm;
        --gap: %gmm;
        --cut-mark-thickness: %gmm;
        --cut-mark-length: %dmm;
      }

      @page {
        size: %s;
        margin: %dmm;
      }

      * {
        box-sizing: border-box;
      }

      body {
        margin: 0;
        background: #ffffff;
      }

      .page {
        width: 100%%;
        height: 100vh;
        display: flex;
        align-items: center;
        justify-content: center;
        page-break-after: always;
      }

      .page:last-child {
        page-break-after: avoid;
      }

      .grid {
        display: grid;
        grid-template-columns: repeat(%d, var(--card-width));
        grid-template-rows: repeat(%d, var(--card-height));
        %s
        justify-content: center;
        align-content: center;
      }

      .tile {
        position: relative;
        width: var(--card-width);
        height: var(--card-height);
        page-break-inside: avoid;
        overflow: visible;
      }

      .tile img {
        width: 100%%;
        height: 100%%;
        object-fit: cover;
        display: block;
        border-radius: 1mm;
      }

      .cut-mark {
        position: absolute;
        background: #000;
      }

      .cut-mark.horizontal {
        width: 2mm;
        height: var(--cut-mark-thickness);
        left: 50%%;
        transform: translateX(-50%%);
      }

      .cut-mark.vertical {
        width: var(--cut-mark-thickness);
        height: 2mm;
        top: 50%%;
        transform: translateY(-50%%);
      }

      .cut-mark.top {
        top: -2mm;
      }

      .cut-mark.bottom {
        bottom: -2mm;
      }

      .cut-mark.left {
        left: -2mm;
      }

      .cut-mark.right {
        right: -2mm;
      }
    </style>
  </head>
  <body>
    %s
  </body>
</html>`,
		cardWidthMM, cardHeightMM, gap, cutMarkThicknessMM, cutMarkLengthMM,
		paper, pageMarginMM,
		config.CardsPerRow, config.CardsPerColumn, gapRule,
		strings.Join(pages, "\n"))

	return b.String()
}

// expandTiles repeats each tile by its quantity and drops tiles with no
// image, so page capacity math works on printed copies.
func expandTiles(tiles []Tile) []Tile {
	var expanded []Tile
	for _, tile := range tiles {
		if tile.Image == "" {
			continue
		}
		qty := tile.Qty
		if qty < 1 {
			qty = 1
		}
		for i := 0; i < qty; i++ {
			expanded = append(expanded, Tile{Image: tile.Image, Label: tile.Label})
		}
	}
	return expanded
}

func pageMarkup(pageTiles []Tile, startIndex int, cutMarks bool) string {
	var tiles []string
	for i, tile := range pageTiles {
		tiles = append(tiles, tileMarkup(tile, startIndex+i, cutMarks))
	}
	return fmt.Sprintf(`<div class="page">
    <div class="grid">
      %s
    </div>
  </div>`, strings.Join(tiles, "\n"))
}

func tileMarkup(tile Tile, index int, cutMarks bool) string {
	cutMarkup := ""
	if cutMarks {
		cutMarkup = `<span class="cut-mark horizontal top"></span>
       <span class="cut-mark horizontal bottom"></span>
       <span class="cut-mark vertical left"></span>
       <span class="cut-mark vertical right"></span>`
	}
	return fmt.Sprintf(`<div class="tile" data-index="%d">
    <img src="%s" alt="Card image" />
    %s
  </div>`, index, escapeAttribute(tile.Image), cutMarkup)
}

func escapeAttribute(value string) string {
	return strings.ReplaceAll(html.EscapeString(value), "`", "&#96;")
}
