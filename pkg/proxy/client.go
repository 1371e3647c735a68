// Package proxy provides a client for the same-origin PDF retrieval proxy.
// The proxy performs the upstream fetch on the caller's behalf because the
// artifact host disallows direct cross-origin requests.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Client fetches artifact bytes through the retrieval proxy.
type Client interface {
	Fetch(ctx context.Context, artifactURL string) ([]byte, error)
}

type fetchRequest struct {
	URL string `json:"url"`
}

// Option configures the proxy client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a retrieval proxy client for the given base URL.
func NewClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Fetch(ctx context.Context, artifactURL string) ([]byte, error) {
	body, err := json.Marshal(fetchRequest{URL: artifactURL})
	if err != nil {
		return nil, eris.Wrap(err, "proxy: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/proxy-pdf", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "proxy: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "proxy: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("proxy: unexpected status %d for %s", resp.StatusCode, artifactURL)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "proxy: read response body")
	}

	return data, nil
}
