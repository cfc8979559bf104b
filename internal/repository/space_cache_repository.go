package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spacefeed/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Кэш последнего значения в таблице space_cache, одна строка на источник
type spaceCacheRepository struct {
	db *gorm.DB
}

func NewSpaceCacheRepository(db *gorm.DB) LatestCache {
	return &spaceCacheRepository{db: db}
}

func (r *spaceCacheRepository) Save(ctx context.Context, source models.Source, payload datatypes.JSON, fetchedAt time.Time) error {
	doc := models.CachedDocument{
		Source:    source,
		FetchedAt: fetchedAt.UTC(),
		Payload:   payload,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "source"}},
			DoUpdates: clause.AssignmentColumns([]string{"fetched_at", "payload"}),
		}).
		Create(&doc).
		Error
	if err != nil {
		return fmt.Errorf("failed to save %s to space_cache: %w", source, err)
	}
	return nil
}

func (r *spaceCacheRepository) GetLatest(ctx context.Context, source models.Source) (*models.CachedDocument, error) {
	var doc models.CachedDocument
	err := r.db.WithContext(ctx).
		Where("source = ?", source).
		First(&doc).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read %s from space_cache: %w", source, err)
	}
	return &doc, nil
}
