package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"spacefeed/internal/clients"
	"spacefeed/internal/config"
	"spacefeed/internal/extract"
	"spacefeed/internal/logger"
	"spacefeed/internal/models"
	"spacefeed/internal/repository"
	"spacefeed/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

var fetchedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// Моки клиентов на функциях
type mockISSClient struct {
	GetCurrentPositionFunc func(ctx context.Context) (*clients.Response, error)
}

func (m *mockISSClient) GetCurrentPosition(ctx context.Context) (*clients.Response, error) {
	return m.GetCurrentPositionFunc(ctx)
}

type mockNASAClient struct {
	FetchFunc func(ctx context.Context, source models.Source) (*clients.Response, error)
}

func (m *mockNASAClient) FetchOSDR(ctx context.Context) (*clients.Response, error) {
	return m.FetchFunc(ctx, models.SourceOSDR)
}

func (m *mockNASAClient) FetchAPOD(ctx context.Context) (*clients.Response, error) {
	return m.FetchFunc(ctx, models.SourceAPOD)
}

func (m *mockNASAClient) FetchNEOFeed(ctx context.Context) (*clients.Response, error) {
	return m.FetchFunc(ctx, models.SourceNEO)
}

func (m *mockNASAClient) FetchDONKI(ctx context.Context, source models.Source) (*clients.Response, error) {
	return m.FetchFunc(ctx, source)
}

type mockSpaceXClient struct {
	FetchNextLaunchFunc func(ctx context.Context) (*clients.Response, error)
}

func (m *mockSpaceXClient) FetchNextLaunch(ctx context.Context) (*clients.Response, error) {
	return m.FetchNextLaunchFunc(ctx)
}

// brokenCache всегда отвечает ошибкой хранилища
type brokenCache struct{}

func (brokenCache) Save(context.Context, models.Source, datatypes.JSON, time.Time) error {
	return errors.New("connection refused")
}

func (brokenCache) GetLatest(context.Context, models.Source) (*models.CachedDocument, error) {
	return nil, errors.New("connection refused")
}

func jsonResponse(t *testing.T, source models.Source, url, raw string) *clients.Response {
	t.Helper()
	body, err := extract.Decode([]byte(raw))
	require.NoError(t, err)
	return &clients.Response{
		Source:     source,
		URL:        url,
		StatusCode: http.StatusOK,
		Body:       body,
		Raw:        []byte(raw),
		FetchedAt:  fetchedAt,
	}
}

type fixture struct {
	svc       IngestService
	cache     repository.LatestCache
	catalog   repository.CatalogRepository
	positions repository.PositionRepository
}

func newFixture(t *testing.T, deps Deps) *fixture {
	t.Helper()

	db := testutil.OpenSQLite(t, nil)
	if deps.Cache == nil {
		deps.Cache = repository.NewSpaceCacheRepository(db)
	}
	deps.Catalog = repository.NewCatalogRepository(db)
	deps.Positions = repository.NewPositionRepository(db)
	deps.Logger = logger.Discard()

	return &fixture{
		svc:       NewIngestService(deps),
		cache:     deps.Cache,
		catalog:   deps.Catalog,
		positions: deps.Positions,
	}
}

func TestIngestService_FetchersOrder(t *testing.T) {
	f := newFixture(t, Deps{
		ISS:    &mockISSClient{},
		NASA:   &mockNASAClient{},
		SpaceX: &mockSpaceXClient{},
	})

	var got []models.Source
	for _, fetcher := range f.svc.Fetchers() {
		got = append(got, fetcher.Source())
	}
	assert.Equal(t, models.AllSources(), got)
}

func TestIngestService_NilClientDisablesSources(t *testing.T) {
	f := newFixture(t, Deps{ISS: &mockISSClient{}})

	require.Len(t, f.svc.Fetchers(), 1)

	_, err := f.svc.TriggerFetch(context.Background(), models.SourceAPOD)
	assert.ErrorIs(t, err, models.ErrUnknownSource)
}

func TestIngestService_CacheLatest(t *testing.T) {
	payloads := []string{`{"title":"first"}`, `{"title":"second"}`}
	var calls int32
	f := newFixture(t, Deps{NASA: &mockNASAClient{
		FetchFunc: func(ctx context.Context, source models.Source) (*clients.Response, error) {
			i := atomic.AddInt32(&calls, 1) - 1
			return jsonResponse(t, source, "https://api.nasa.gov/planetary/apod", payloads[i]), nil
		},
	}})
	ctx := context.Background()

	for range payloads {
		outcome, err := f.svc.TriggerFetch(ctx, models.SourceAPOD)
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeStored, outcome)
	}

	doc, err := f.svc.GetLatestCached(ctx, models.SourceAPOD)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"second"}`, string(doc.Payload))
	assert.True(t, doc.FetchedAt.Equal(fetchedAt))

	_, err = f.svc.GetLatestCached(ctx, models.SourceNEO)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestIngestService_ForbiddenIsSkippedWithoutOverwrite(t *testing.T) {
	var forbidden atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if forbidden.Load() {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":{"code":"API_KEY_INVALID"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"title":"Pillars of Creation"}`))
	}))
	defer srv.Close()

	source := config.SourceConfig{URL: srv.URL + "/planetary/apod", Timeout: time.Second, UsesAPIKey: true}
	nasa := clients.NewNASAClient(clients.NewUpstreamClient(clients.UpstreamConfig{}), clients.NASAConfig{
		APIKey: "DEMO_KEY",
		APOD:   source,
	})
	f := newFixture(t, Deps{NASA: nasa})
	ctx := context.Background()

	outcome, err := f.svc.TriggerFetch(ctx, models.SourceAPOD)
	require.NoError(t, err)
	require.Equal(t, models.OutcomeStored, outcome)

	forbidden.Store(true)
	outcome, err = f.svc.TriggerFetch(ctx, models.SourceAPOD)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeSkipped, outcome)

	doc, err := f.svc.GetLatestCached(ctx, models.SourceAPOD)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Pillars of Creation"}`, string(doc.Payload))
}

func TestIngestService_UpstreamFailuresDoNotWrite(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind models.ErrorKind
	}{
		{
			name: "rejected",
			err:  &models.FetchError{Source: models.SourceNEO, Kind: models.KindUpstreamRejected, StatusCode: 500},
			kind: models.KindUpstreamRejected,
		},
		{
			name: "unavailable",
			err:  models.NewFetchError(models.SourceNEO, models.KindUpstreamUnavailable, errors.New("dial tcp: timeout")),
			kind: models.KindUpstreamUnavailable,
		},
		{
			name: "malformed",
			err:  models.NewFetchError(models.SourceNEO, models.KindMalformedResponse, errors.New("unexpected EOF")),
			kind: models.KindMalformedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Deps{NASA: &mockNASAClient{
				FetchFunc: func(ctx context.Context, source models.Source) (*clients.Response, error) {
					return nil, tt.err
				},
			}})
			ctx := context.Background()

			outcome, err := f.svc.TriggerFetch(ctx, models.SourceNEO)
			assert.Equal(t, models.OutcomeFailed, outcome)
			kind, ok := models.KindOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.kind, kind)

			_, err = f.cache.GetLatest(ctx, models.SourceNEO)
			assert.ErrorIs(t, err, models.ErrNotFound)
		})
	}
}

func TestIngestService_StoreFailure(t *testing.T) {
	f := newFixture(t, Deps{
		Cache: brokenCache{},
		NASA: &mockNASAClient{
			FetchFunc: func(ctx context.Context, source models.Source) (*clients.Response, error) {
				return jsonResponse(t, source, "https://api.nasa.gov/DONKI/CME", `[]`), nil
			},
		},
	})
	ctx := context.Background()

	outcome, err := f.svc.TriggerFetch(ctx, models.SourceCME)
	assert.Equal(t, models.OutcomeFailed, outcome)
	kind, ok := models.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, models.KindStoreUnavailable, kind)

	_, err = f.svc.GetLatestCached(ctx, models.SourceCME)
	kind, ok = models.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, models.KindStoreUnavailable, kind)

	_, err = f.svc.Summary(ctx)
	assert.Error(t, err)
}

func TestIngestService_CatalogIngest(t *testing.T) {
	responses := []string{
		`{"items": [{"dataset_id": "A", "title": "t1"}, {"title": "orphan"}]}`,
		`[{"dataset_id": "A", "title": "t2"}, {"title": "orphan"}]`,
	}
	var calls int32
	f := newFixture(t, Deps{NASA: &mockNASAClient{
		FetchFunc: func(ctx context.Context, source models.Source) (*clients.Response, error) {
			i := atomic.AddInt32(&calls, 1) - 1
			return jsonResponse(t, source, "https://visualization.osdr.nasa.gov/biodata/api/v2/datasets/", responses[i]), nil
		},
	}})
	ctx := context.Background()

	for range responses {
		outcome, err := f.svc.TriggerFetch(ctx, models.SourceOSDR)
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeStored, outcome)
	}

	count, err := f.svc.CountCatalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	items, err := f.svc.ListCatalog(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 3)

	var keyed int
	for _, item := range items {
		if item.DatasetID != nil {
			keyed++
			assert.Equal(t, "A", *item.DatasetID)
			assert.Equal(t, "t2", *item.Title)
		}
	}
	assert.Equal(t, 1, keyed)
}

func TestIngestService_PositionLogAndTrend(t *testing.T) {
	const issURL = "https://api.wheretheiss.at/v1/satellites/25544"
	payloads := []string{
		`{"latitude": 0, "longitude": 0, "velocity": 27580}`,
		`{"latitude": 0, "longitude": 1, "velocity": 27600}`,
	}
	var calls int32
	f := newFixture(t, Deps{ISS: &mockISSClient{
		GetCurrentPositionFunc: func(ctx context.Context) (*clients.Response, error) {
			i := atomic.AddInt32(&calls, 1) - 1
			resp := jsonResponse(t, models.SourceISS, issURL, payloads[i])
			resp.FetchedAt = fetchedAt.Add(time.Duration(i) * time.Minute)
			return resp, nil
		},
	}})
	ctx := context.Background()

	_, err := f.svc.GetLatestPosition(ctx)
	assert.ErrorIs(t, err, models.ErrNotFound)

	trend, err := f.svc.GetTrend(ctx)
	require.NoError(t, err)
	assert.False(t, trend.Movement)
	assert.Zero(t, trend.DeltaKm)

	for range payloads {
		outcome, err := f.svc.TriggerFetch(ctx, models.SourceISS)
		require.NoError(t, err)
		require.Equal(t, models.OutcomeStored, outcome)
	}

	snap, err := f.svc.GetLatestPosition(ctx)
	require.NoError(t, err)
	assert.Equal(t, issURL, snap.SourceURL)
	assert.JSONEq(t, payloads[1], string(snap.Payload))

	trend, err = f.svc.GetTrend(ctx)
	require.NoError(t, err)
	assert.True(t, trend.Movement)
	assert.InDelta(t, 111.19, trend.DeltaKm, 0.01)
	assert.Equal(t, 60.0, trend.DtSec)
	require.NotNil(t, trend.VelocityKmh)
	assert.Equal(t, 27600.0, *trend.VelocityKmh)

	// Позиции не попадают в кэш последнего значения
	_, err = f.svc.GetLatestCached(ctx, models.SourceISS)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestIngestService_GetLatestCachedUnknownSource(t *testing.T) {
	f := newFixture(t, Deps{})

	_, err := f.svc.GetLatestCached(context.Background(), models.Source("jwst"))
	assert.ErrorIs(t, err, models.ErrUnknownSource)
}

func TestIngestService_Summary(t *testing.T) {
	f := newFixture(t, Deps{
		NASA: &mockNASAClient{
			FetchFunc: func(ctx context.Context, source models.Source) (*clients.Response, error) {
				return jsonResponse(t, source, "https://api.nasa.gov", `{"source":"`+string(source)+`"}`), nil
			},
		},
		SpaceX: &mockSpaceXClient{
			FetchNextLaunchFunc: func(ctx context.Context) (*clients.Response, error) {
				return jsonResponse(t, models.SourceSpaceX, "https://api.spacexdata.com/v4/launches/next", `{"name":"Crew-10"}`), nil
			},
		},
	})
	ctx := context.Background()

	empty, err := f.svc.Summary(ctx)
	require.NoError(t, err)
	assert.Nil(t, empty.APOD)
	assert.Nil(t, empty.ISS)
	assert.Zero(t, empty.OSDRCount)

	for _, source := range []models.Source{models.SourceAPOD, models.SourceFLR, models.SourceSpaceX} {
		_, err := f.svc.TriggerFetch(ctx, source)
		require.NoError(t, err)
	}
	_, err = f.positions.Append(ctx, "https://api.wheretheiss.at/v1/satellites/25544", datatypes.JSON(`{"latitude":1}`), fetchedAt)
	require.NoError(t, err)
	require.NoError(t, f.catalog.Upsert(ctx, models.CatalogRecord{DatasetID: "OSD-1", Raw: datatypes.JSON(`{}`)}))

	summary, err := f.svc.Summary(ctx)
	require.NoError(t, err)

	require.NotNil(t, summary.APOD)
	assert.JSONEq(t, `{"source":"apod"}`, string(summary.APOD.Payload))
	require.NotNil(t, summary.FLR)
	assert.Nil(t, summary.NEO)
	assert.Nil(t, summary.CME)
	require.NotNil(t, summary.SpaceX)
	assert.JSONEq(t, `{"name":"Crew-10"}`, string(summary.SpaceX.Payload))
	require.NotNil(t, summary.ISS)
	assert.True(t, summary.ISS.At.Equal(fetchedAt))
	assert.Equal(t, int64(1), summary.OSDRCount)
}
