package models

import (
	"time"

	"gorm.io/datatypes"
)

// PositionSnapshot - запись журнала позиций МКС. Только добавление, порядок по ID.
type PositionSnapshot struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	FetchedAt time.Time      `gorm:"not null;index" json:"fetched_at"`
	SourceURL string         `gorm:"not null" json:"source_url"`
	Payload   datatypes.JSON `gorm:"not null" json:"payload"`
}

func (PositionSnapshot) TableName() string { return "iss_fetch_log" }

type ISSTrend struct {
	Movement    bool       `json:"movement"`
	DeltaKm     float64    `json:"delta_km"`
	DtSec       float64    `json:"dt_sec"`
	VelocityKmh *float64   `json:"velocity_kmh,omitempty"`
	FromTime    *time.Time `json:"from_time,omitempty"`
	ToTime      *time.Time `json:"to_time,omitempty"`
	FromLat     *float64   `json:"from_lat,omitempty"`
	FromLon     *float64   `json:"from_lon,omitempty"`
	ToLat       *float64   `json:"to_lat,omitempty"`
	ToLon       *float64   `json:"to_lon,omitempty"`
}
