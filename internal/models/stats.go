package models

import (
	"time"
)

// Usage counter names.
const (
	StatVisits        = "visits"
	StatDecksRendered = "decks_rendered"
)

// UsageStat is one named usage counter persisted in SQLite.
type UsageStat struct {
	Name      string    `json:"name" gorm:"primaryKey"`
	Count     int64     `json:"count" gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UsageStats is the aggregate reported by the stats endpoint.
type UsageStats struct {
	Visits        int64 `json:"visits"`
	DecksRendered int64 `json:"pdfGenerated"`
}
