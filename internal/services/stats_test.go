package services

import (
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mtgproxyprint/server/internal/models"
)

func newStatsService(t *testing.T) *StatsService {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "stats.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&models.UsageStat{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return NewStatsService(db)
}

func TestStatsStartAtZero(t *testing.T) {
	service := newStatsService(t)

	stats, err := service.GetStats()
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.Visits != 0 || stats.DecksRendered != 0 {
		t.Errorf("expected zero counters, got %+v", stats)
	}
}

func TestStatsCountersIncrement(t *testing.T) {
	service := newStatsService(t)

	for i := 0; i < 3; i++ {
		if err := service.RecordVisit(); err != nil {
			t.Fatalf("RecordVisit: %v", err)
		}
	}
	if err := service.RecordDeckRendered(); err != nil {
		t.Fatalf("RecordDeckRendered: %v", err)
	}

	stats, err := service.GetStats()
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.Visits != 3 {
		t.Errorf("expected 3 visits, got %d", stats.Visits)
	}
	if stats.DecksRendered != 1 {
		t.Errorf("expected 1 rendered deck, got %d", stats.DecksRendered)
	}
}
