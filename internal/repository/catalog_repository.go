package repository

import (
	"context"
	"fmt"

	"spacefeed/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Колонки, которые перезаписываются при повторной встрече dataset_id.
// first_seen_at и id не трогаются.
var catalogUpsertColumns = []string{"title", "status", "updated_at", "raw", "last_touched_at"}

const defaultCatalogLimit = 20

type CatalogRepository interface {
	Upsert(ctx context.Context, rec models.CatalogRecord) error
	InsertUnkeyed(ctx context.Context, rec models.CatalogRecord) error
	IngestBatch(ctx context.Context, recs []models.CatalogRecord) (IngestResult, error)
	List(ctx context.Context, limit int) ([]models.CatalogItem, error)
	Count(ctx context.Context) (int64, error)
}

// IngestResult - сколько записей пошло по каждой ветке
type IngestResult struct {
	Upserted int `json:"upserted"`
	Inserted int `json:"inserted"`
}

func (r IngestResult) Total() int {
	return r.Upserted + r.Inserted
}

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func newItem(db *gorm.DB, rec models.CatalogRecord) *models.CatalogItem {
	now := db.NowFunc()
	item := &models.CatalogItem{
		Title:         rec.Title,
		Status:        rec.Status,
		SourceUpdated: rec.UpdatedAt,
		Raw:           rec.Raw,
		FirstSeenAt:   now,
		LastTouchedAt: now,
	}
	if rec.Keyed() {
		key := rec.DatasetID
		item.DatasetID = &key
	}
	return item
}

// Upsert вставляет или обновляет запись одним INSERT ... ON CONFLICT (dataset_id)
func (r *catalogRepository) Upsert(ctx context.Context, rec models.CatalogRecord) error {
	return upsert(r.db.WithContext(ctx), rec)
}

func upsert(db *gorm.DB, rec models.CatalogRecord) error {
	if !rec.Keyed() {
		return models.ErrEmptyKey
	}

	err := db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "dataset_id"}},
			DoUpdates: clause.AssignmentColumns(catalogUpsertColumns),
		}).
		Create(newItem(db, rec)).
		Error
	if err != nil {
		return fmt.Errorf("failed to upsert dataset %s: %w", rec.DatasetID, err)
	}
	return nil
}

// InsertUnkeyed всегда добавляет новую строку с пустым dataset_id
func (r *catalogRepository) InsertUnkeyed(ctx context.Context, rec models.CatalogRecord) error {
	return insertUnkeyed(r.db.WithContext(ctx), rec)
}

func insertUnkeyed(db *gorm.DB, rec models.CatalogRecord) error {
	rec.DatasetID = ""
	if err := db.Create(newItem(db, rec)).Error; err != nil {
		return fmt.Errorf("failed to insert unkeyed dataset: %w", err)
	}
	return nil
}

// IngestBatch применяет весь ответ в одной транзакции
func (r *catalogRepository) IngestBatch(ctx context.Context, recs []models.CatalogRecord) (IngestResult, error) {
	var result IngestResult
	if len(recs) == 0 {
		return result, nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result = IngestResult{}
		for _, rec := range recs {
			if rec.Keyed() {
				if err := upsert(tx, rec); err != nil {
					return err
				}
				result.Upserted++
				continue
			}
			if err := insertUnkeyed(tx, rec); err != nil {
				return err
			}
			result.Inserted++
		}
		return nil
	})
	if err != nil {
		return IngestResult{}, err
	}
	return result, nil
}

// List возвращает записи, новые по last_touched_at первыми
func (r *catalogRepository) List(ctx context.Context, limit int) ([]models.CatalogItem, error) {
	if limit < 1 {
		limit = defaultCatalogLimit
	}

	var items []models.CatalogItem
	err := r.db.WithContext(ctx).
		Order("last_touched_at DESC").
		Limit(limit).
		Find(&items).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}
	return items, nil
}

func (r *catalogRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CatalogItem{}).
		Count(&count).
		Error
	return count, err
}
