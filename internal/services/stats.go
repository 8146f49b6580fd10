package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mtgproxyprint/server/internal/models"
)

// StatsService persists usage counters in SQLite.
type StatsService struct {
	db *gorm.DB
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{db: db}
}

// RecordVisit increments the visit counter.
func (s *StatsService) RecordVisit() error {
	return s.increment(models.StatVisits)
}

// RecordDeckRendered increments the rendered-deck counter.
func (s *StatsService) RecordDeckRendered() error {
	return s.increment(models.StatDecksRendered)
}

func (s *StatsService) increment(name string) error {
	stat := models.UsageStat{
		Name:      name,
		Count:     1,
		UpdatedAt: time.Now(),
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"count":      gorm.Expr("count + 1"),
			"updated_at": time.Now(),
		}),
	}).Create(&stat).Error
	if err != nil {
		return fmt.Errorf("failed to increment %s counter: %w", name, err)
	}
	return nil
}

// GetStats reads all counters. Missing counters report zero.
func (s *StatsService) GetStats() (*models.UsageStats, error) {
	var rows []models.UsageStat
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load usage stats: %w", err)
	}

	stats := &models.UsageStats{}
	for _, row := range rows {
		switch row.Name {
		case models.StatVisits:
			stats.Visits = row.Count
		case models.StatDecksRendered:
			stats.DecksRendered = row.Count
		}
	}
	return stats, nil
}
