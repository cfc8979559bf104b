package clients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"spacefeed/internal/extract"
	"spacefeed/internal/metrics"
	"spacefeed/internal/models"

	"golang.org/x/time/rate"
)

const (
	defaultUserAgent = "Spacefeed/1.0"
	// Ограничение на размер тела ответа
	maxBodyBytes = 64 << 20
)

// Request - один GET к внешнему API
type Request struct {
	Source  models.Source
	URL     string
	Query   url.Values
	APIKey  string // добавляется как api_key, если не пустой
	Timeout time.Duration
}

// Response - разобранный JSON-ответ. URL без api_key.
type Response struct {
	Source     models.Source
	URL        string
	StatusCode int
	Body       interface{}
	Raw        []byte
	FetchedAt  time.Time
}

type UpstreamClient interface {
	Get(ctx context.Context, req Request) (*Response, error)
}

type UpstreamConfig struct {
	UserAgent  string
	Limiter    *rate.Limiter // общий для всех источников, nil - без паузы
	HTTPClient *http.Client
	Metrics    metrics.Recorder
	Now        func() time.Time
}

type upstreamClient struct {
	userAgent string
	limiter   *rate.Limiter
	client    *http.Client
	metrics   metrics.Recorder
	now       func() time.Time
}

func NewUpstreamClient(config UpstreamConfig) UpstreamClient {
	c := &upstreamClient{
		userAgent: config.UserAgent,
		limiter:   config.Limiter,
		client:    config.HTTPClient,
		metrics:   config.Metrics,
		now:       config.Now,
	}
	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}
	if c.client == nil {
		c.client = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		}
	}
	if c.metrics == nil {
		c.metrics = metrics.Nop{}
	}
	if c.now == nil {
		c.now = func() time.Time { return time.Now().UTC() }
	}
	return c
}

// NewOutboundLimiter возвращает лимитер "не чаще одного запроса за interval"
func NewOutboundLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

func (c *upstreamClient) Get(ctx context.Context, r Request) (*Response, error) {
	publicURL, err := buildURL(r.URL, r.Query, "")
	if err != nil {
		return nil, models.NewFetchError(r.Source, models.KindUpstreamUnavailable, fmt.Errorf("invalid url: %w", err))
	}
	reqURL := publicURL
	if r.APIKey != "" {
		reqURL, _ = buildURL(r.URL, r.Query, r.APIKey)
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, models.NewFetchError(r.Source, models.KindUpstreamUnavailable, fmt.Errorf("outbound limiter: %w", err))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, models.NewFetchError(r.Source, models.KindUpstreamUnavailable, fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, models.NewFetchError(r.Source, models.KindUpstreamUnavailable, fmt.Errorf("execute request: %w", stripKey(err, r.APIKey)))
	}
	defer resp.Body.Close()

	c.metrics.RecordHTTPStatus(r.Source, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		kind := models.KindUpstreamRejected
		if resp.StatusCode == http.StatusForbidden {
			kind = models.KindPermissionDenied
		}
		return nil, &models.FetchError{
			Source:     r.Source,
			Kind:       kind,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s returned status %d", publicURL, resp.StatusCode),
		}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, models.NewFetchError(r.Source, models.KindUpstreamUnavailable, fmt.Errorf("read body: %w", err))
	}

	body, err := extract.Decode(raw)
	if err != nil {
		return nil, &models.FetchError{
			Source:     r.Source,
			Kind:       models.KindMalformedResponse,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("decode JSON: %w", err),
		}
	}

	return &Response{
		Source:     r.Source,
		URL:        publicURL,
		StatusCode: resp.StatusCode,
		Body:       body,
		Raw:        raw,
		FetchedAt:  c.now(),
	}, nil
}

// buildURL дописывает параметры к базовому URL, сохраняя уже существующие
func buildURL(base string, query url.Values, apiKey string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url %q must be absolute", base)
	}

	q := u.Query()
	for key, values := range query {
		q[key] = values
	}
	if apiKey != "" {
		q.Set("api_key", apiKey)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// stripKey убирает ключ из текста ошибки net/http, где печатается полный URL
func stripKey(err error, apiKey string) error {
	var urlErr *url.Error
	if apiKey == "" || !errors.As(err, &urlErr) {
		return err
	}
	return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
}
