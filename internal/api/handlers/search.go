package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mtgproxyprint/server/internal/models"
	"github.com/mtgproxyprint/server/internal/scryfall"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 20
)

// CardSearcher is the local-index search surface used by the search
// endpoint.
type CardSearcher interface {
	SearchByName(query string, limit int, lang string) []models.CatalogCard
}

type SearchHandler struct {
	searcher CardSearcher
}

func NewSearchHandler(searcher CardSearcher) *SearchHandler {
	return &SearchHandler{searcher: searcher}
}

type searchRequest struct {
	Query string `json:"query"`
	Lang  string `json:"lang"`
	Limit int    `json:"limit"`
}

type searchResult struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	Set             string              `json:"set"`
	CollectorNumber string              `json:"collector_number"`
	Image           string              `json:"image,omitempty"`
	Lang            string              `json:"lang"`
	FullCard        *models.CatalogCard `json:"fullCard,omitempty"`
}

// Search runs a name search against the local card index.
func (h *SearchHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "query is required"})
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "query is required"})
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	cards := h.searcher.SearchByName(query, limit, strings.ToLower(strings.TrimSpace(req.Lang)))

	results := make([]searchResult, 0, len(cards))
	for i := range cards {
		card := &cards[i]
		image, _ := scryfall.SelectBestImage(card)
		result := searchResult{
			ID:              card.ID,
			Name:            card.Name,
			Set:             card.Set,
			CollectorNumber: card.CollectorNumber,
			Image:           image,
			Lang:            card.Lang,
		}
		if len(card.CardFaces) >= 2 {
			result.FullCard = card.Clone()
		}
		results = append(results, result)
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}
