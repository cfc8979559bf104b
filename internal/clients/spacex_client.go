package clients

import (
	"context"

	"spacefeed/internal/config"
	"spacefeed/internal/models"
)

type SpaceXClient interface {
	FetchNextLaunch(ctx context.Context) (*Response, error)
}

type spaceXClient struct {
	upstream UpstreamClient
	source   config.SourceConfig
}

func NewSpaceXClient(upstream UpstreamClient, source config.SourceConfig) SpaceXClient {
	return &spaceXClient{upstream: upstream, source: source}
}

func (c *spaceXClient) FetchNextLaunch(ctx context.Context) (*Response, error) {
	return c.upstream.Get(ctx, Request{
		Source:  models.SourceSpaceX,
		URL:     c.source.URL,
		Timeout: c.source.Timeout,
	})
}
