package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mtgproxyprint/server/internal/layout"
	"github.com/mtgproxyprint/server/internal/services"
)

var validPapers = map[string]string{
	"a4":      "A4",
	"a3":      "A3",
	"a5":      "A5",
	"letter":  "Letter",
	"legal":   "Legal",
	"tabloid": "Tabloid",
}

type PDFHandler struct {
	stats *services.StatsService
}

func NewPDFHandler(stats *services.StatsService) *PDFHandler {
	return &PDFHandler{stats: stats}
}

type pdfRequest struct {
	Tiles    []layout.Tile `json:"tiles"`
	Paper    string        `json:"paper"`
	GapMM    float64       `json:"gapMm"`
	CutMarks bool          `json:"cutMarks"`
}

// Render builds the printable HTML document for a set of card tiles.
// The browser's print dialog turns it into a PDF; no server-side
// rendering is involved.
func (h *PDFHandler) Render(c *gin.Context) {
	var req pdfRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Tiles) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "tiles array is required"})
		return
	}

	paper := "A4"
	if trimmed := strings.TrimSpace(req.Paper); trimmed != "" {
		resolved, ok := validPapers[strings.ToLower(trimmed)]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"message": "paper must be one of: A4, A3, A5, Letter, Legal, Tabloid"})
			return
		}
		paper = resolved
	}

	tiles := make([]layout.Tile, 0, len(req.Tiles))
	for _, tile := range req.Tiles {
		image := strings.TrimSpace(tile.Image)
		if image == "" {
			continue
		}
		qty := tile.Qty
		if qty < 1 {
			qty = 1
		}
		tiles = append(tiles, layout.Tile{Image: image, Qty: qty, Label: tile.Label})
	}
	if len(tiles) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "tiles must contain at least one valid image entry"})
		return
	}

	html := layout.BuildHTML(tiles, layout.Options{
		Paper:    paper,
		GapMM:    req.GapMM,
		CutMarks: req.CutMarks,
	})

	if h.stats != nil {
		if err := h.stats.RecordDeckRendered(); err != nil {
			log.Printf("Warning: failed to record rendered deck: %v", err)
		}
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}
