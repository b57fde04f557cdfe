package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Handler performs the business effect for one claimed payload. Returning nil
// retires the entry as done; returning an error requeues or fails it.
type Handler interface {
	Handle(ctx context.Context, payload []byte) error
}

// Func adapts a plain function to Handler.
type Func func(ctx context.Context, payload []byte) error

func (f Func) Handle(ctx context.Context, payload []byte) error { return f(ctx, payload) }

// Discard acknowledges every payload. Used when no downstream target is
// configured for an event class.
var Discard Handler = Func(func(context.Context, []byte) error { return nil })

// Forwarder delivers payloads to a downstream webhook URL verbatim.
type Forwarder struct {
	url    string
	client *http.Client
}

func NewForwarder(url string, timeout time.Duration) *Forwarder {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Forwarder{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (f *Forwarder) Handle(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build forward request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("forward to %s: %w", f.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("forward to %s: %s - %s", f.url, resp.Status, string(body))
	}
	return nil
}
