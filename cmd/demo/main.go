package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/talkflow/webhookq/pkg/client"
)

const (
	baseURL    = "http://localhost:8080"
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorCyan  = "\033[36m"
	colorBold  = "\033[1m"
)

func main() {
	ctx := context.Background()
	c := client.NewClient(baseURL)

	fmt.Printf("%s=== webhookq demo ===%s\n\n", colorBold, colorReset)

	payloads := []map[string]any{
		{
			"event":    "messages.upsert",
			"instance": "acme-sales",
			"data": map[string]any{
				"key":     map[string]any{"id": "3EB0C8A1D2"},
				"message": map[string]any{"conversation": "Hi, is the blue one in stock?"},
			},
		},
		{
			"event":    "messages.update",
			"instance": "acme-sales",
			"data": map[string]any{
				"key":    map[string]any{"id": "3EB0C8A1D2"},
				"update": map[string]any{"status": "READ"},
			},
		},
		{
			"event":    "connection.update",
			"instance": "acme-support",
			"data":     map[string]any{"state": "open"},
		},
	}

	for _, p := range payloads {
		res, err := c.SendWebhook(ctx, p)
		if err != nil {
			fmt.Printf("%s✗ send failed: %v%s\n", colorRed, err, colorReset)
			os.Exit(1)
		}
		fmt.Printf("%s✓ sent %s%s (queued=%v duplicate=%v, %dms)\n",
			colorGreen, p["event"], colorReset, res.Queued, res.Duplicate, res.TimeMS)
	}

	// resend the first payload: the dedup key collapses it
	res, err := c.SendWebhook(ctx, payloads[0])
	if err != nil {
		fmt.Printf("%s✗ resend failed: %v%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}
	fmt.Printf("%s✓ resent messages.upsert%s (queued=%v duplicate=%v)\n\n",
		colorGreen, colorReset, res.Queued, res.Duplicate)

	time.Sleep(200 * time.Millisecond)

	proc, err := c.Process(ctx)
	if err != nil {
		fmt.Printf("%s✗ process failed: %v%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}
	fmt.Printf("%sprocessor pass:%s processed=%d failed=%d (%dms)\n",
		colorCyan, colorReset, proc.Processed, proc.Failed, proc.TimeMS)
}
