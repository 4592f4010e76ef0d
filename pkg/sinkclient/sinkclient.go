// Package sinkclient implements the optional downstream POST sink
// ("Downstream sink"): a best-effort HTTP POST of one task's
// newly-added posts, never retried, grounded in the donor's adapter HTTP
// client shape (internal/adapters/social/twitter/client.go's
// *http.Client with a fixed Timeout and context-scoped requests).
package sinkclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/techappsUT/social-queue/internal/platformtypes"
)

// Client posts a platform's newly-collected posts to a configured URL.
type Client struct {
	url        string
	httpClient *http.Client
}

// New builds a Client. A zero timeout falls back to 10 seconds.
func New(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Send implements manager.Sink: it POSTs posts as a JSON array to the
// configured URL. A non-2xx response or transport error is returned to
// the caller, which logs it and never retries.
func (c *Client) Send(ctx context.Context, platform platformtypes.Platform, posts []platformtypes.Post) error {
	body, err := json.Marshal(posts)
	if err != nil {
		return fmt.Errorf("marshal posts for %s: %w", platform, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sink request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sink post for %s: %w", platform, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sink post for %s returned status %d", platform, resp.StatusCode)
	}
	return nil
}
