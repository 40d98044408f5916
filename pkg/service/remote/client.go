package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// maxErrorBodySize bounds how much of an error response is kept for messages
const maxErrorBodySize = 4 * 1024

// restClient is the shared transport for the scheduler and IDS collaborators.
// Calls are single shot: a failed request surfaces immediately with the
// upstream status and body, and the caller decides whether to retry.
type restClient struct {
	baseURL    string
	httpClient *http.Client
}

func newRESTClient(baseURL string, timeout time.Duration) *restClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &restClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// do performs one request and decodes a 2xx JSON response into out (when
// out is non-nil). Non-2xx responses become errors carrying the upstream
// status and body text.
func (c *restClient) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return goerr.Wrap(err, "failed to encode request payload", goerr.V("path", path))
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return goerr.Wrap(err, "failed to create request", goerr.V("path", path))
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return goerr.Wrap(err, "request failed",
			goerr.V("method", method),
			goerr.V("path", path),
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return goerr.New(fmt.Sprintf("Backend error %d: %s", resp.StatusCode, string(raw)),
			goerr.V("method", method),
			goerr.V("path", path),
			goerr.V("status_code", resp.StatusCode),
		)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return goerr.Wrap(err, "failed to decode response",
			goerr.V("method", method),
			goerr.V("path", path),
		)
	}
	return nil
}
