package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"spacefeed/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// statusRecorder считает статусы, которые клиент передал в метрики
type statusRecorder struct {
	mu    sync.Mutex
	codes []int
}

func (r *statusRecorder) RecordCycle(models.Source, models.Outcome, time.Duration) {}
func (r *statusRecorder) RecordItemsWritten(models.Source, int)                    {}
func (r *statusRecorder) RecordHTTPStatus(_ models.Source, code int) {
	r.mu.Lock()
	r.codes = append(r.codes, code)
	r.mu.Unlock()
}

func TestUpstreamClient_DecodesJSON(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"latitude": 51.5, "id": 25544}`))
	}))
	defer srv.Close()

	rec := &statusRecorder{}
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	client := NewUpstreamClient(UpstreamConfig{Metrics: rec, Now: func() time.Time { return fixed }})

	resp, err := client.Get(context.Background(), Request{Source: models.SourceISS, URL: srv.URL + "/v1/satellites/25544"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, srv.URL+"/v1/satellites/25544", resp.URL)
	assert.Equal(t, fixed, resp.FetchedAt)
	assert.JSONEq(t, `{"latitude": 51.5, "id": 25544}`, string(resp.Raw))

	doc, ok := resp.Body.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, json.Number("25544"), doc["id"])

	assert.Equal(t, defaultUserAgent, gotUA)
	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, []int{200}, rec.codes)
}

func TestUpstreamClient_QueryAndAPIKey(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := NewUpstreamClient(UpstreamConfig{})
	query := url.Values{}
	query.Set("thumbs", "true")

	resp, err := client.Get(context.Background(), Request{
		Source: models.SourceAPOD,
		URL:    srv.URL + "/planetary/apod?format=json",
		Query:  query,
		APIKey: "secret",
	})
	require.NoError(t, err)

	assert.Equal(t, "json", got.Get("format"))
	assert.Equal(t, "true", got.Get("thumbs"))
	assert.Equal(t, "secret", got.Get("api_key"))
	assert.NotContains(t, resp.URL, "secret")
}

func TestUpstreamClient_ErrorKinds(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantKind   models.ErrorKind
		wantStatus int
	}{
		{name: "forbidden", status: http.StatusForbidden, body: `{"error":"API_KEY_INVALID"}`, wantKind: models.KindPermissionDenied, wantStatus: 403},
		{name: "server error", status: http.StatusInternalServerError, body: `oops`, wantKind: models.KindUpstreamRejected, wantStatus: 500},
		{name: "too many requests", status: http.StatusTooManyRequests, body: ``, wantKind: models.KindUpstreamRejected, wantStatus: 429},
		{name: "not json", status: http.StatusOK, body: `<html>maintenance</html>`, wantKind: models.KindMalformedResponse, wantStatus: 200},
		{name: "trailing garbage", status: http.StatusOK, body: `{"title":"apod"} <html>oops</html>`, wantKind: models.KindMalformedResponse, wantStatus: 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewUpstreamClient(UpstreamConfig{}).Get(context.Background(), Request{Source: models.SourceNEO, URL: srv.URL})
			require.Error(t, err)

			var fe *models.FetchError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, models.SourceNEO, fe.Source)
			assert.Equal(t, tt.wantKind, fe.Kind)
			assert.Equal(t, tt.wantStatus, fe.StatusCode)
		})
	}
}

func TestUpstreamClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	_, err := NewUpstreamClient(UpstreamConfig{}).Get(context.Background(), Request{
		Source: models.SourceSpaceX,
		URL:    addr + "?x=1",
		APIKey: "secret",
	})

	kind, ok := models.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, models.KindUpstreamUnavailable, kind)
	assert.NotContains(t, err.Error(), "secret")
}

func TestUpstreamClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := NewUpstreamClient(UpstreamConfig{}).Get(context.Background(), Request{
		Source:  models.SourceOSDR,
		URL:     srv.URL,
		Timeout: 50 * time.Millisecond,
	})

	kind, ok := models.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, models.KindUpstreamUnavailable, kind)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestUpstreamClient_InvalidURL(t *testing.T) {
	_, err := NewUpstreamClient(UpstreamConfig{}).Get(context.Background(), Request{Source: models.SourceISS, URL: "not a url"})

	kind, ok := models.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, models.KindUpstreamUnavailable, kind)
}

func TestUpstreamClient_OutboundSpacing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewUpstreamClient(UpstreamConfig{Limiter: NewOutboundLimiter(100 * time.Millisecond)})

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.Get(context.Background(), Request{Source: models.SourceAPOD, URL: srv.URL})
		require.NoError(t, err)
	}
	// Первый запрос без ожидания, затем два интервала
	assert.GreaterOrEqual(t, time.Since(start), 180*time.Millisecond)
}

func TestNewOutboundLimiter_Disabled(t *testing.T) {
	assert.Nil(t, NewOutboundLimiter(0))
	assert.NotNil(t, NewOutboundLimiter(time.Second))
}
