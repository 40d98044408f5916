package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/soc-lab/kestrel/pkg/domain/model"
)

// IDS talks to the remote intrusion detection system's control API
type IDS struct {
	rest *restClient
}

// NewIDS creates an IDS client for the given base URL
func NewIDS(baseURL string, timeout time.Duration) *IDS {
	return &IDS{rest: newRESTClient(baseURL, timeout)}
}

// Start launches the sensor
func (c *IDS) Start(ctx context.Context) error {
	return c.rest.do(ctx, http.MethodPost, "/start", nil, nil)
}

// Stop halts the sensor
func (c *IDS) Stop(ctx context.Context) error {
	return c.rest.do(ctx, http.MethodPost, "/stop", nil, nil)
}

// Status reports whether the sensor is running and on which interface
func (c *IDS) Status(ctx context.Context) (*model.IDSStatus, error) {
	var status model.IDSStatus
	if err := c.rest.do(ctx, http.MethodGet, "/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Logs returns the most recent sensor log lines, newest last
func (c *IDS) Logs(ctx context.Context, limit int) ([]*model.IDSLog, error) {
	path := "/logs"
	if limit > 0 {
		path = fmt.Sprintf("/logs?limit=%d", limit)
	}
	var logs []*model.IDSLog
	if err := c.rest.do(ctx, http.MethodGet, path, nil, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// LogsByIP returns log lines mentioning the given address
func (c *IDS) LogsByIP(ctx context.Context, ip string) ([]*model.IDSLog, error) {
	var logs []*model.IDSLog
	path := "/logs/ip/" + url.PathEscape(ip)
	if err := c.rest.do(ctx, http.MethodGet, path, nil, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// Alerts returns currently open alerts
func (c *IDS) Alerts(ctx context.Context) ([]*model.IDSAlert, error) {
	var alerts []*model.IDSAlert
	if err := c.rest.do(ctx, http.MethodGet, "/alerts", nil, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}
