package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mtgproxyprint/server/internal/services"
)

type StatsHandler struct {
	stats *services.StatsService
}

func NewStatsHandler(stats *services.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

func (h *StatsHandler) GetStats(c *gin.Context) {
	stats, err := h.stats.GetStats()
	if err != nil {
		log.Printf("Failed to fetch stats: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *StatsHandler) RecordVisit(c *gin.Context) {
	if err := h.stats.RecordVisit(); err != nil {
		log.Printf("Failed to record visit: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to record visit"})
		return
	}

	stats, err := h.stats.GetStats()
	if err != nil {
		log.Printf("Failed to fetch stats: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
