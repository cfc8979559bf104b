package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"spacefeed/internal/models"

	"github.com/go-redis/redis/v8"
	"gorm.io/datatypes"
)

// LatestCache хранит последний ответ каждого источника
type LatestCache interface {
	Save(ctx context.Context, source models.Source, payload datatypes.JSON, fetchedAt time.Time) error
	GetLatest(ctx context.Context, source models.Source) (*models.CachedDocument, error)
}

const latestKeyPrefix = "space:latest:"

type redisLatestCache struct {
	client *redis.Client
}

func NewRedisLatestCache(client *redis.Client) LatestCache {
	return &redisLatestCache{client: client}
}

func latestKey(source models.Source) string {
	return latestKeyPrefix + string(source)
}

// Save перезаписывает значение одной командой SET, без срока жизни
func (r *redisLatestCache) Save(ctx context.Context, source models.Source, payload datatypes.JSON, fetchedAt time.Time) error {
	doc := models.CachedDocument{
		Source:    source,
		FetchedAt: fetchedAt.UTC(),
		Payload:   payload,
	}

	jsonData, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal cached document: %w", err)
	}

	if err := r.client.Set(ctx, latestKey(source), jsonData, 0).Err(); err != nil {
		return fmt.Errorf("failed to save %s to redis: %w", source, err)
	}
	return nil
}

func (r *redisLatestCache) GetLatest(ctx context.Context, source models.Source) (*models.CachedDocument, error) {
	val, err := r.client.Get(ctx, latestKey(source)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read %s from redis: %w", source, err)
	}

	var doc models.CachedDocument
	if err := json.Unmarshal(val, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached document: %w", err)
	}
	return &doc, nil
}
