package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hookd/subsync/internal/pkg/env"
)

// Event is a fire-and-forget analytics record. UserID may be empty when the
// customer lookup did not resolve; the event is still sent.
type Event struct {
	Name       string `json:"event"`
	Properties any    `json:"properties,omitempty"`
	UserID     string `json:"userId,omitempty"`
}

// Client posts tracking events to the analytics collector.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClientFromEnv builds a tracking client from environment variables.
func NewClientFromEnv() *Client {
	return &Client{
		BaseURL: strings.TrimRight(env.GetEnv("TRACKING_BASE_URL", ""), "/"),
		APIKey:  strings.TrimSpace(env.GetEnv("TRACKING_API_KEY", "")),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type trackPayload struct {
	Event
	MessageID string `json:"messageId"`
}

// Track sends one event to the collector's /t endpoint. Callers treat a
// returned error as telemetry loss, not as a processing failure.
func (c *Client) Track(ctx context.Context, event Event) error {
	if c.BaseURL == "" {
		return fmt.Errorf("TRACKING_BASE_URL is not configured")
	}
	if strings.TrimSpace(event.Name) == "" {
		return fmt.Errorf("event name is required")
	}

	body, err := json.Marshal(trackPayload{
		Event:     event,
		MessageID: uuid.NewString(),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/t", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("tracking request failed: status=%d body=%s", resp.StatusCode, string(respBody))
	}
	return nil
}
