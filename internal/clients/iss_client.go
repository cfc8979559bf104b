package clients

import (
	"context"

	"spacefeed/internal/config"
	"spacefeed/internal/models"
)

type ISSClient interface {
	GetCurrentPosition(ctx context.Context) (*Response, error)
}

type issClient struct {
	upstream UpstreamClient
	source   config.SourceConfig
}

func NewISSClient(upstream UpstreamClient, source config.SourceConfig) ISSClient {
	return &issClient{upstream: upstream, source: source}
}

func (c *issClient) GetCurrentPosition(ctx context.Context) (*Response, error) {
	return c.upstream.Get(ctx, Request{
		Source:  models.SourceISS,
		URL:     c.source.URL,
		Timeout: c.source.Timeout,
	})
}
