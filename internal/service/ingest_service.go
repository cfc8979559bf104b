package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"spacefeed/internal/clients"
	"spacefeed/internal/metrics"
	"spacefeed/internal/models"
	"spacefeed/internal/repository"

	"gorm.io/datatypes"
)

type IngestService interface {
	Fetchers() []Fetcher
	TriggerFetch(ctx context.Context, source models.Source) (models.Outcome, error)
	GetLatestCached(ctx context.Context, source models.Source) (*models.CachedDocument, error)
	GetLatestPosition(ctx context.Context) (*models.PositionSnapshot, error)
	GetTrend(ctx context.Context) (*models.ISSTrend, error)
	ListCatalog(ctx context.Context, limit int) ([]models.CatalogItem, error)
	CountCatalog(ctx context.Context) (int64, error)
	Summary(ctx context.Context) (*Summary, error)
}

// Deps - все зависимости сервиса. Клиент, равный nil, отключает свои источники.
type Deps struct {
	Cache     repository.LatestCache
	Catalog   repository.CatalogRepository
	Positions repository.PositionRepository

	ISS    clients.ISSClient
	NASA   clients.NASAClient
	SpaceX clients.SpaceXClient

	Metrics       metrics.Recorder
	Logger        *slog.Logger
	OSDRListLimit int
}

// SummaryEntry - последнее значение источника для сводки
type SummaryEntry struct {
	At      time.Time      `json:"at"`
	Payload datatypes.JSON `json:"payload"`
}

type Summary struct {
	APOD      *SummaryEntry `json:"apod"`
	NEO       *SummaryEntry `json:"neo"`
	FLR       *SummaryEntry `json:"flr"`
	CME       *SummaryEntry `json:"cme"`
	SpaceX    *SummaryEntry `json:"spacex"`
	ISS       *SummaryEntry `json:"iss"`
	OSDRCount int64         `json:"osdr_count"`
}

type ingestService struct {
	deps     Deps
	fetchers map[models.Source]Fetcher
}

func NewIngestService(deps Deps) IngestService {
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.OSDRListLimit <= 0 {
		deps.OSDRListLimit = 20
	}

	s := &ingestService{
		deps:     deps,
		fetchers: make(map[models.Source]Fetcher),
	}

	funcs := make(map[models.Source]FetchFunc)
	if deps.ISS != nil {
		funcs[models.SourceISS] = deps.ISS.GetCurrentPosition
	}
	if deps.NASA != nil {
		nasa := deps.NASA
		funcs[models.SourceOSDR] = nasa.FetchOSDR
		funcs[models.SourceAPOD] = nasa.FetchAPOD
		funcs[models.SourceNEO] = nasa.FetchNEOFeed
		funcs[models.SourceFLR] = func(ctx context.Context) (*clients.Response, error) {
			return nasa.FetchDONKI(ctx, models.SourceFLR)
		}
		funcs[models.SourceCME] = func(ctx context.Context) (*clients.Response, error) {
			return nasa.FetchDONKI(ctx, models.SourceCME)
		}
	}
	if deps.SpaceX != nil {
		funcs[models.SourceSpaceX] = deps.SpaceX.FetchNextLaunch
	}

	for source, fn := range funcs {
		s.fetchers[source] = &sourceFetcher{
			source:    source,
			fetch:     fn,
			cache:     deps.Cache,
			catalog:   deps.Catalog,
			positions: deps.Positions,
			metrics:   deps.Metrics,
			logger:    deps.Logger,
		}
	}

	return s
}

// Fetchers возвращает загрузчики в порядке models.AllSources
func (s *ingestService) Fetchers() []Fetcher {
	var out []Fetcher
	for _, source := range models.AllSources() {
		if f, ok := s.fetchers[source]; ok {
			out = append(out, f)
		}
	}
	return out
}

// TriggerFetch запускает цикл загрузки вне расписания
func (s *ingestService) TriggerFetch(ctx context.Context, source models.Source) (models.Outcome, error) {
	f, ok := s.fetchers[source]
	if !ok {
		return models.OutcomeFailed, fmt.Errorf("%w: %q", models.ErrUnknownSource, source)
	}
	return f.Fetch(ctx)
}

// GetLatestCached возвращает ErrNotFound и для источников, которые не хранятся в кэше
func (s *ingestService) GetLatestCached(ctx context.Context, source models.Source) (*models.CachedDocument, error) {
	if !source.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownSource, source)
	}
	if source.Policy() != models.PolicyCacheLatest {
		return nil, models.ErrNotFound
	}

	doc, err := s.deps.Cache.GetLatest(ctx, source)
	if err != nil {
		return nil, storeError(source, err)
	}
	return doc, nil
}

func (s *ingestService) GetLatestPosition(ctx context.Context) (*models.PositionSnapshot, error) {
	snap, err := s.deps.Positions.GetLatest(ctx)
	if err != nil {
		return nil, storeError(models.SourceISS, err)
	}
	return snap, nil
}

// GetTrend не возвращает ошибку при короткой истории, только при сбое хранилища
func (s *ingestService) GetTrend(ctx context.Context) (*models.ISSTrend, error) {
	recent, err := s.deps.Positions.GetRecent(ctx, 2)
	if err != nil {
		return nil, storeError(models.SourceISS, err)
	}
	return CalculateTrend(recent), nil
}

func (s *ingestService) ListCatalog(ctx context.Context, limit int) ([]models.CatalogItem, error) {
	if limit <= 0 {
		limit = s.deps.OSDRListLimit
	}
	items, err := s.deps.Catalog.List(ctx, limit)
	if err != nil {
		return nil, storeError(models.SourceOSDR, err)
	}
	return items, nil
}

func (s *ingestService) CountCatalog(ctx context.Context) (int64, error) {
	count, err := s.deps.Catalog.Count(ctx)
	if err != nil {
		return 0, storeError(models.SourceOSDR, err)
	}
	return count, nil
}

// Summary собирает последние значения всех источников
func (s *ingestService) Summary(ctx context.Context) (*Summary, error) {
	summary := &Summary{}

	targets := map[models.Source]**SummaryEntry{
		models.SourceAPOD:   &summary.APOD,
		models.SourceNEO:    &summary.NEO,
		models.SourceFLR:    &summary.FLR,
		models.SourceCME:    &summary.CME,
		models.SourceSpaceX: &summary.SpaceX,
	}
	for _, source := range models.CachedSources() {
		doc, err := s.GetLatestCached(ctx, source)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		*targets[source] = &SummaryEntry{At: doc.FetchedAt, Payload: doc.Payload}
	}

	snap, err := s.GetLatestPosition(ctx)
	switch {
	case errors.Is(err, models.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		summary.ISS = &SummaryEntry{At: snap.FetchedAt, Payload: snap.Payload}
	}

	count, err := s.CountCatalog(ctx)
	if err != nil {
		return nil, err
	}
	summary.OSDRCount = count

	return summary, nil
}

// storeError помечает сбой хранилища, ErrNotFound пропускает как есть
func storeError(source models.Source, err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return err
	}
	return models.NewFetchError(source, models.KindStoreUnavailable, err)
}
