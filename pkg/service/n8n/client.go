package n8n

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/soc-lab/kestrel/pkg/domain/model"
)

// DefaultBaseURL is where the local workflow proxy listens when nothing is
// configured
const DefaultBaseURL = "http://localhost:5000/api/n8n"

// Error tags for workflow failures
var (
	ErrTagUnavailable = goerr.NewTag("workflow_unavailable")
	ErrTagDegraded    = goerr.NewTag("workflow_degraded")
)

// Client talks to the n8n workflow proxy. Calls are single-shot: there is no
// retry, and every failure is surfaced once to the caller.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a workflow client for the given proxy base URL
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
}

// Ping checks whether the workflow proxy is reachable. It never returns an
// error: any failure, including transport errors, reads as "not ok".
func (c *Client) Ping(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ping", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		ctxlog.From(ctx).Debug("workflow ping failed", "error", err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// CallAgent sends a message to the workflow agent endpoint
func (c *Client) CallAgent(ctx context.Context, req *model.WorkflowRequest) (*model.WorkflowReply, error) {
	return c.post(ctx, "/agent", req)
}

// Trigger fires the workflow webhook endpoint
func (c *Client) Trigger(ctx context.Context, req *model.WorkflowRequest) (*model.WorkflowReply, error) {
	return c.post(ctx, "/webhook", req)
}

func (c *Client) post(ctx context.Context, path string, payload *model.WorkflowRequest) (*model.WorkflowReply, error) {
	if payload == nil {
		return nil, goerr.New("workflow request is nil")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode workflow request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build workflow request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "workflow service is unreachable",
			goerr.T(ErrTagUnavailable),
			goerr.V("endpoint", path),
		)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read workflow response")
	}

	if err := mapStatus(resp.StatusCode, respBody, path); err != nil {
		return nil, err
	}

	// The proxy usually answers JSON, but plain-text replies happen; carry
	// them verbatim.
	var reply model.WorkflowReply
	if err := json.Unmarshal(respBody, &reply); err != nil {
		reply = model.WorkflowReply{Reply: string(respBody)}
	}
	return &reply, nil
}

// mapStatus converts HTTP failure codes into the coarse user-facing errors
// the dashboard shows
func mapStatus(status int, body []byte, path string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusBadGateway || status == http.StatusGatewayTimeout:
		return goerr.New("workflow service temporarily unavailable",
			goerr.T(ErrTagUnavailable),
			goerr.V("status", status),
			goerr.V("endpoint", path),
		)
	case status >= 500:
		return goerr.New("workflow service experiencing issues",
			goerr.T(ErrTagDegraded),
			goerr.V("status", status),
			goerr.V("endpoint", path),
		)
	default:
		return goerr.New(fmt.Sprintf("service error: %d", status),
			goerr.V("status", status),
			goerr.V("endpoint", path),
			goerr.V("body", string(body)),
		)
	}
}
