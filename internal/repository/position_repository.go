package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spacefeed/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PositionRepository - журнал позиций МКС, только добавление
type PositionRepository interface {
	Append(ctx context.Context, sourceURL string, payload datatypes.JSON, fetchedAt time.Time) (*models.PositionSnapshot, error)
	GetLatest(ctx context.Context) (*models.PositionSnapshot, error)
	GetRecent(ctx context.Context, n int) ([]models.PositionSnapshot, error)
	Count(ctx context.Context) (int64, error)
}

type positionRepository struct {
	db *gorm.DB
}

func NewPositionRepository(db *gorm.DB) PositionRepository {
	return &positionRepository{db: db}
}

func (r *positionRepository) Append(ctx context.Context, sourceURL string, payload datatypes.JSON, fetchedAt time.Time) (*models.PositionSnapshot, error) {
	snap := &models.PositionSnapshot{
		FetchedAt: fetchedAt.UTC(),
		SourceURL: sourceURL,
		Payload:   payload,
	}
	if err := r.db.WithContext(ctx).Create(snap).Error; err != nil {
		return nil, fmt.Errorf("failed to append position: %w", err)
	}
	return snap, nil
}

func (r *positionRepository) GetLatest(ctx context.Context) (*models.PositionSnapshot, error) {
	var snap models.PositionSnapshot
	err := r.db.WithContext(ctx).
		Order("id DESC").
		First(&snap).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest position: %w", err)
	}
	return &snap, nil
}

// GetRecent возвращает до n последних записей, новые первыми
func (r *positionRepository) GetRecent(ctx context.Context, n int) ([]models.PositionSnapshot, error) {
	if n < 1 {
		return nil, nil
	}

	var snaps []models.PositionSnapshot
	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(n).
		Find(&snaps).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to get recent positions: %w", err)
	}
	return snaps, nil
}

func (r *positionRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PositionSnapshot{}).
		Count(&count).
		Error
	return count, err
}
