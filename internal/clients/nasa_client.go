package clients

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"spacefeed/internal/config"
	"spacefeed/internal/models"
)

const dateLayout = "2006-01-02"

// NASAClient - источники api.nasa.gov и каталог OSDR
type NASAClient interface {
	FetchOSDR(ctx context.Context) (*Response, error)
	FetchAPOD(ctx context.Context) (*Response, error)
	FetchNEOFeed(ctx context.Context) (*Response, error)
	FetchDONKI(ctx context.Context, source models.Source) (*Response, error)
}

type NASAConfig struct {
	APIKey          string
	OSDR            config.SourceConfig
	APOD            config.SourceConfig
	NEO             config.SourceConfig
	FLR             config.SourceConfig
	CME             config.SourceConfig
	NEOWindowDays   int
	DONKIWindowDays int
	Now             func() time.Time
}

type nasaClient struct {
	upstream UpstreamClient
	config   NASAConfig
}

func NewNASAClient(upstream UpstreamClient, config NASAConfig) NASAClient {
	if config.Now == nil {
		config.Now = func() time.Time { return time.Now().UTC() }
	}
	return &nasaClient{upstream: upstream, config: config}
}

func (c *nasaClient) request(source models.Source, sc config.SourceConfig, query url.Values) Request {
	req := Request{
		Source:  source,
		URL:     sc.URL,
		Query:   query,
		Timeout: sc.Timeout,
	}
	if sc.UsesAPIKey {
		req.APIKey = c.config.APIKey
	}
	return req
}

func (c *nasaClient) FetchOSDR(ctx context.Context) (*Response, error) {
	return c.upstream.Get(ctx, c.request(models.SourceOSDR, c.config.OSDR, nil))
}

func (c *nasaClient) FetchAPOD(ctx context.Context) (*Response, error) {
	params := url.Values{}
	params.Set("thumbs", "true")

	return c.upstream.Get(ctx, c.request(models.SourceAPOD, c.config.APOD, params))
}

// FetchNEOFeed запрашивает окно NEOWindowDays дней, заканчивающееся сегодня
func (c *nasaClient) FetchNEOFeed(ctx context.Context) (*Response, error) {
	start, end := window(c.config.Now(), c.config.NEOWindowDays)

	params := url.Values{}
	params.Set("start_date", start)
	params.Set("end_date", end)

	return c.upstream.Get(ctx, c.request(models.SourceNEO, c.config.NEO, params))
}

func (c *nasaClient) FetchDONKI(ctx context.Context, source models.Source) (*Response, error) {
	var sc config.SourceConfig
	switch source {
	case models.SourceFLR:
		sc = c.config.FLR
	case models.SourceCME:
		sc = c.config.CME
	default:
		return nil, fmt.Errorf("%w: %s is not a DONKI feed", models.ErrUnknownSource, source)
	}

	start, end := window(c.config.Now(), c.config.DONKIWindowDays)

	params := url.Values{}
	params.Set("startDate", start)
	params.Set("endDate", end)

	return c.upstream.Get(ctx, c.request(source, sc, params))
}

func window(now time.Time, days int) (string, string) {
	if days < 0 {
		days = 0
	}
	now = now.UTC()
	return now.AddDate(0, 0, -days).Format(dateLayout), now.Format(dateLayout)
}
