package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jeevan-health/triage/internal/offline"
	"github.com/jeevan-health/triage/pkg/schema"
)

var _ offline.Remote = (*Client)(nil)

const (
	defaultTimeout         = 5 * time.Second
	defaultMaxResponseBody = 10 * 1024 * 1024 // 10MB
)

// Config configures a Client.
type Config struct {
	BaseURL         string
	Timeout         time.Duration
	MaxResponseBody int64
	HTTPClient      *http.Client
}

// Client talks to the triage server over its JSON API. Every request runs
// under one bounded timeout, and every failure (transport, timeout, bad
// status, undecodable body) is reported as OFFLINE. The one exception is a
// 404 on a protocol fetch, which is NOT_FOUND.
type Client struct {
	base    *url.URL
	timeout time.Duration
	maxBody int64
	http    *http.Client
}

// New creates a Client for cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	base, err := url.ParseRequestURI(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") {
		return nil, schema.Invalidf("invalid server url %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxResponseBody <= 0 {
		cfg.MaxResponseBody = defaultMaxResponseBody
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()}
	}
	return &Client{base: base, timeout: cfg.Timeout, maxBody: cfg.MaxResponseBody, http: hc}, nil
}

// PushBatch sends records to POST /api/sync/push.
func (c *Client) PushBatch(ctx context.Context, records []schema.Assessment) (schema.PushResult, error) {
	var res schema.PushResult
	body := struct {
		Assessments []schema.Assessment `json:"assessments"`
	}{records}
	err := c.do(ctx, http.MethodPost, "/api/sync/push", body, &res)
	return res, err
}

// DeleteAssessment calls DELETE /api/assessment/{id}.
func (c *Client) DeleteAssessment(ctx context.Context, id string) (bool, error) {
	var res struct {
		Deleted bool `json:"deleted"`
	}
	err := c.do(ctx, http.MethodDelete, "/api/assessment/"+url.PathEscape(id), nil, &res)
	return res.Deleted, err
}

// Status reports the server's own connectivity view. A server that cannot
// be reached is an error, which callers read as offline.
func (c *Client) Status(ctx context.Context) (schema.ConnectivityStatus, error) {
	var res struct {
		Status schema.ConnectivityStatus `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/sync/status", nil, &res); err != nil {
		return schema.StatusOffline, err
	}
	if res.Status != schema.StatusOnline {
		return schema.StatusOffline, nil
	}
	return schema.StatusOnline, nil
}

func (c *Client) Conditions(ctx context.Context) ([]schema.Condition, error) {
	var res []schema.Condition
	err := c.do(ctx, http.MethodGet, "/api/conditions", nil, &res)
	return res, err
}

func (c *Client) Symptoms(ctx context.Context) ([]string, error) {
	var res []string
	err := c.do(ctx, http.MethodGet, "/api/symptoms", nil, &res)
	return res, err
}

func (c *Client) ListGraphs(ctx context.Context) ([]schema.ProtocolGraph, error) {
	var res []schema.ProtocolGraph
	err := c.do(ctx, http.MethodGet, "/api/protocols", nil, &res)
	return res, err
}

// GetGraph fetches one protocol. A 404 is NOT_FOUND, not OFFLINE.
func (c *Client) GetGraph(ctx context.Context, id string) (*schema.ProtocolGraph, error) {
	var g schema.ProtocolGraph
	if err := c.do(ctx, http.MethodGet, "/api/protocol/"+url.PathEscape(id), nil, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// statusError carries a non-2xx response.
type statusError struct {
	status  int
	message string
}

func (e *statusError) Error() string {
	if e.message == "" {
		return fmt.Sprintf("server returned %d", e.status)
	}
	return fmt.Sprintf("server returned %d: %s", e.status, e.message)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return schema.NewErrorf(schema.ErrCodeInternal, "%s %s: encode body", method, path).WithCause(err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return offlineErr(method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return offlineErr(method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return offlineErr(method, path, err)
	}

	if resp.StatusCode >= 400 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &payload)
		serr := &statusError{status: resp.StatusCode, message: payload.Error}
		if resp.StatusCode == http.StatusNotFound && method == http.MethodGet && strings.HasPrefix(path, "/api/protocol/") {
			return schema.NewErrorf(schema.ErrCodeNotFound, "%s %s: %s", method, path, serr.Error()).WithCause(serr)
		}
		return offlineErr(method, path, serr)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return offlineErr(method, path, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func offlineErr(method, path string, err error) error {
	return schema.NewErrorf(schema.ErrCodeOffline, "%s %s: %v", method, path, err).WithCause(err)
}
