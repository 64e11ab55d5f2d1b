package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/shoplink/backend/internal/infrastructure/config"
)

// Client fetches feed documents over HTTP
type Client struct {
	httpClient *http.Client
	cfg        config.FeedConfig
}

// NewClient creates a feed client from the feed configuration
func NewClient(cfg config.FeedConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		cfg:        cfg,
	}
}

// FetchCatalog fetches the XML catalog feed. An empty url falls back to the
// configured catalog feed location.
func (c *Client) FetchCatalog(ctx context.Context, url string) (io.ReadCloser, error) {
	if url == "" {
		url = c.cfg.CatalogURL
	}
	if url == "" {
		return nil, fmt.Errorf("catalog feed URL is not configured")
	}
	return c.fetch(ctx, url)
}

// FetchOffers fetches the CSV offers feed. Returns (nil, nil) when the offers
// feed is not configured; stock merging is optional.
func (c *Client) FetchOffers(ctx context.Context) (io.ReadCloser, error) {
	if c.cfg.OffersURL == "" {
		return nil, nil
	}
	return c.fetch(ctx, c.cfg.OffersURL)
}

func (c *Client) fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}
	if c.cfg.Username != "" {
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed fetch failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	return resp.Body, nil
}
