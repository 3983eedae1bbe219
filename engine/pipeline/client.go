package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/lustra-ai/lustra/pkg/logger"
)

// Client talks to the remote workflow engine. Start is never retried
// locally; per-poll resilience lives in the Driver loop instead.
type Client struct {
	http    *resty.Client
	baseURL string
}

// ClientConfig bundles what the client needs from runtime config.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// NewClient creates a workflow engine client.
func NewClient(cfg ClientConfig) *Client {
	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		http.SetTimeout(cfg.Timeout)
	}
	return &Client{http: http, baseURL: cfg.BaseURL}
}

// engineError is the error envelope the remote engine returns on 4xx/5xx.
type engineError struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func (e *engineError) message() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Error, e.Detail)
	}
	return e.Error
}

type startResponse struct {
	WorkflowID string `json:"workflow_id"`
}

// Start submits a workflow as a multipart form (file, workflow_name,
// overrides). Remote errors and non-success statuses propagate as-is.
func (c *Client) Start(ctx context.Context, req StartRequest) (Handle, error) {
	log := logger.FromContext(ctx)

	overrides, err := json.Marshal(req.Overrides)
	if err != nil {
		return "", fmt.Errorf("failed to encode overrides: %w", err)
	}

	var result startResponse
	var apiErr engineError
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("file", req.Filename, req.File).
		SetFormData(map[string]string{
			"workflow_name": req.Variant.String(),
			"overrides":     string(overrides),
		}).
		SetResult(&result).
		SetError(&apiErr).
		Post("/workflows/start")
	if err != nil {
		return "", fmt.Errorf("failed to start workflow: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("workflow start rejected (status %d): %s", resp.StatusCode(), remoteMessage(&apiErr, resp))
	}
	if result.WorkflowID == "" {
		return "", fmt.Errorf("workflow start returned no workflow_id")
	}

	log.Debug("workflow started", "workflow_id", result.WorkflowID, "variant", req.Variant)
	return Handle(result.WorkflowID), nil
}

// Status fetches one poll snapshot for the given handle.
func (c *Client) Status(ctx context.Context, handle Handle) (*Snapshot, error) {
	var snap Snapshot
	var apiErr engineError
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&snap).
		SetError(&apiErr).
		Get(fmt.Sprintf("/workflows/%s/status", handle))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflow status: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("workflow status failed (status %d): %s", resp.StatusCode(), remoteMessage(&apiErr, resp))
	}
	return &snap, nil
}

// Result fetches the final node outputs. Called exactly once per
// completed attempt by the Driver.
func (c *Client) Result(ctx context.Context, handle Handle) (map[string][]json.RawMessage, error) {
	result := make(map[string][]json.RawMessage)
	var apiErr engineError
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		SetError(&apiErr).
		Get(fmt.Sprintf("/workflows/%s/result", handle))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflow result: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("workflow result failed (status %d): %s", resp.StatusCode(), remoteMessage(&apiErr, resp))
	}
	return result, nil
}

// Cancel asks the engine to stop the workflow. Best-effort: it does not
// stop a local polling loop, the caller cancels its own context.
func (c *Client) Cancel(ctx context.Context, handle Handle) error {
	var apiErr engineError
	resp, err := c.http.R().
		SetContext(ctx).
		SetError(&apiErr).
		Post(fmt.Sprintf("/workflows/%s/cancel", handle))
	if err != nil {
		return fmt.Errorf("failed to cancel workflow: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("workflow cancel failed (status %d): %s", resp.StatusCode(), remoteMessage(&apiErr, resp))
	}
	return nil
}

func remoteMessage(apiErr *engineError, resp *resty.Response) string {
	if apiErr != nil && apiErr.Error != "" {
		return apiErr.message()
	}
	return resp.String()
}
