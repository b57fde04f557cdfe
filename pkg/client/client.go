package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client for delivering webhooks to the queue and triggering processing.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a new webhookq client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// WebhookResult mirrors the receiver's response body.
type WebhookResult struct {
	Success   bool   `json:"success"`
	Queued    bool   `json:"queued"`
	Duplicate bool   `json:"duplicate,omitempty"`
	TimeMS    int64  `json:"time_ms"`
	Error     string `json:"error,omitempty"`
}

// ProcessResult mirrors the trigger endpoint's response body.
type ProcessResult struct {
	Success   bool   `json:"success"`
	Processed int    `json:"processed"`
	Failed    int    `json:"failed"`
	TimeMS    int64  `json:"time_ms"`
	Error     string `json:"error,omitempty"`
}

// SendWebhook posts a payload to the receiver endpoint.
func (c *Client) SendWebhook(ctx context.Context, payload any) (*WebhookResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	var out WebhookResult
	if err := c.post(ctx, "/webhook", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Process triggers one synchronous processor pass.
func (c *Client) Process(ctx context.Context) (*ProcessResult, error) {
	var out ProcessResult
	if err := c.post(ctx, "/process", []byte("{}"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s failed: %s - %s", path, resp.Status, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
