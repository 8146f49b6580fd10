package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mtgproxyprint/server/internal/decklist"
	"github.com/mtgproxyprint/server/internal/models"
	"github.com/mtgproxyprint/server/internal/services"
)

type ResolveHandler struct {
	pipeline *services.Pipeline
}

func NewResolveHandler(pipeline *services.Pipeline) *ResolveHandler {
	return &ResolveHandler{pipeline: pipeline}
}

type resolveRequest struct {
	Decklist string `json:"decklist"`
	Lang     string `json:"lang"`
}

// Resolve parses a raw decklist and resolves every line to a printable
// card. One item per line comes back, in input order, unresolvable lines
// included.
func (h *ResolveHandler) Resolve(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "decklist is required"})
		return
	}
	if strings.TrimSpace(req.Decklist) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "decklist is required"})
		return
	}

	lines := decklist.Parse(req.Decklist)

	items, err := h.pipeline.Resolve(c.Request.Context(), lines, req.Lang)
	if err != nil {
		log.Printf("Resolve failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Deck resolution failed."})
		return
	}
	if items == nil {
		items = []models.ResolveItem{}
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}
