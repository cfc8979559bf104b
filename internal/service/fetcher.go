package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"spacefeed/internal/clients"
	"spacefeed/internal/metrics"
	"spacefeed/internal/models"
	"spacefeed/internal/repository"

	"gorm.io/datatypes"
)

// Fetcher выполняет один цикл загрузки источника
type Fetcher interface {
	Source() models.Source
	Fetch(ctx context.Context) (models.Outcome, error)
}

// FetchFunc - запрос к внешнему API конкретного источника
type FetchFunc func(ctx context.Context) (*clients.Response, error)

type sourceFetcher struct {
	source    models.Source
	fetch     FetchFunc
	cache     repository.LatestCache
	catalog   repository.CatalogRepository
	positions repository.PositionRepository
	metrics   metrics.Recorder
	logger    *slog.Logger
}

func (f *sourceFetcher) Source() models.Source {
	return f.source
}

func (f *sourceFetcher) Fetch(ctx context.Context) (models.Outcome, error) {
	start := time.Now()
	outcome, written, err := f.run(ctx)
	duration := time.Since(start)

	f.metrics.RecordCycle(f.source, outcome, duration)
	f.metrics.RecordItemsWritten(f.source, written)

	attrs := []any{
		"source", f.source,
		"outcome", outcome,
		"duration_ms", duration.Milliseconds(),
	}
	switch outcome {
	case models.OutcomeFailed:
		f.logger.Error("fetch cycle failed", append(attrs, "error", err)...)
	case models.OutcomeSkipped:
		f.logger.Warn("fetch cycle skipped", append(attrs, "reason", models.KindPermissionDenied)...)
	default:
		f.logger.Info("fetch cycle finished", append(attrs, "items", written)...)
	}

	return outcome, err
}

func (f *sourceFetcher) run(ctx context.Context) (models.Outcome, int, error) {
	resp, err := f.fetch(ctx)
	if err != nil {
		// 403 - ключ не подходит, пропускаем цикл без ошибки
		if kind, ok := models.KindOf(err); ok && kind == models.KindPermissionDenied {
			return models.OutcomeSkipped, 0, nil
		}
		return models.OutcomeFailed, 0, err
	}

	written, err := f.store(ctx, resp)
	if err != nil {
		return models.OutcomeFailed, 0, models.NewFetchError(f.source, models.KindStoreUnavailable, err)
	}
	return models.OutcomeStored, written, nil
}

func (f *sourceFetcher) store(ctx context.Context, resp *clients.Response) (int, error) {
	switch f.source.Policy() {
	case models.PolicyCacheLatest:
		if err := f.cache.Save(ctx, f.source, datatypes.JSON(resp.Raw), resp.FetchedAt); err != nil {
			return 0, err
		}
		return 1, nil

	case models.PolicyPositionLog:
		if _, err := f.positions.Append(ctx, resp.URL, datatypes.JSON(resp.Raw), resp.FetchedAt); err != nil {
			return 0, err
		}
		return 1, nil

	case models.PolicyCatalogUpsert:
		shape, recs := CatalogRecords(resp.Body)
		result, err := f.catalog.IngestBatch(ctx, recs)
		if err != nil {
			return 0, err
		}
		f.logger.Debug("catalog batch applied",
			"source", f.source,
			"shape", shape.String(),
			"upserted", result.Upserted,
			"inserted", result.Inserted,
			"skipped", len(shape.Items)-len(recs),
		)
		return result.Total(), nil

	default:
		return 0, fmt.Errorf("no storage policy for %s", f.source)
	}
}
