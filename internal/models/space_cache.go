package models

import (
	"time"

	"gorm.io/datatypes"
)

// CachedDocument - последний полученный ответ источника.
// Одна строка на источник, каждая запись заменяет предыдущую.
type CachedDocument struct {
	Source    Source         `gorm:"primaryKey;type:varchar(32)" json:"source"`
	FetchedAt time.Time      `gorm:"not null" json:"fetched_at"`
	Payload   datatypes.JSON `gorm:"not null" json:"payload"`
}

func (CachedDocument) TableName() string { return "space_cache" }
