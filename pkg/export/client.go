package export

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client issues streaming export requests against a VictoriaMetrics
// compatible upstream.
type Client struct {
	httpClient *http.Client
}

// NewClient creates an upstream client. The timeout bounds the whole
// exchange, connection through body read; zero means no limit.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch opens a streaming GET against the query URL and returns the
// response body positioned at its first byte. The body is never buffered
// here; the caller owns it and must close it. Connect, DNS and timeout
// failures, and any non-2xx status, come back as *UpstreamError carrying
// the observed status when one exists. A single attempt is made; retry
// policy belongs to callers.
func (c *Client) Fetch(ctx context.Context, queryURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %d from upstream", resp.StatusCode),
		}
	}

	return resp.Body, nil
}
