package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CatalogItem - запись каталога наборов данных OSDR.
// DatasetID уникален, если задан; строки без ключа не объединяются.
type CatalogItem struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DatasetID     *string        `gorm:"uniqueIndex;type:varchar(255)" json:"dataset_id"`
	Title         *string        `gorm:"type:text" json:"title"`
	Status        *string        `gorm:"type:varchar(100)" json:"status"`
	SourceUpdated *time.Time     `gorm:"column:updated_at" json:"updated_at"`
	Raw           datatypes.JSON `gorm:"not null" json:"raw"`
	FirstSeenAt   time.Time      `gorm:"not null" json:"first_seen_at"`
	LastTouchedAt time.Time      `gorm:"not null;index" json:"last_touched_at"`
}

func (CatalogItem) TableName() string { return "osdr_items" }

func (i *CatalogItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// CatalogRecord - поля, извлечённые из одного элемента ответа OSDR
type CatalogRecord struct {
	DatasetID string
	Title     *string
	Status    *string
	UpdatedAt *time.Time
	Raw       datatypes.JSON
}

func (r CatalogRecord) Keyed() bool {
	return r.DatasetID != ""
}
