// Package meta sends conversion events to the Meta Conversions API.
package meta

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rufoof/tracking-api/internal/events"
)

const (
	defaultBaseURL    = "https://graph.facebook.com"
	defaultAPIVersion = "v18.0"
	defaultTimeout    = 10 * time.Second
)

// Config holds the Meta pixel credentials. PixelID is the single routing
// identifier; there is no separate dataset id.
type Config struct {
	Enabled       bool
	PixelID       string
	AccessToken   string
	APIVersion    string
	TestEventCode string
	Timeout       time.Duration
}

// Client posts events to the Conversions API for one pixel.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Conversions API client.
func NewClient(cfg Config) *Client {
	if cfg.APIVersion == "" {
		cfg.APIVersion = defaultAPIVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:        cfg,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// SetBaseURL overrides the Graph API base URL (useful for testing).
func (c *Client) SetBaseURL(base string) {
	c.baseURL = base
}

// Name identifies the platform in tracking results.
func (c *Client) Name() string { return "meta" }

// Enabled reports whether this destination should receive events.
func (c *Client) Enabled() bool { return c.cfg.Enabled }

type conversionEvent struct {
	EventName             string              `json:"event_name"`
	EventTime             int64               `json:"event_time"`
	EventID               string              `json:"event_id"`
	EventSourceURL        string              `json:"event_source_url,omitempty"`
	ActionSource          events.ActionSource `json:"action_source"`
	ReferrerURL           string              `json:"referrer_url,omitempty"`
	UserData              events.UserData     `json:"user_data"`
	CustomData            events.CustomData   `json:"custom_data"`
	DataProcessingOptions []string            `json:"data_processing_options"`
}

type conversionRequest struct {
	Data          []conversionEvent `json:"data"`
	AccessToken   string            `json:"access_token"`
	TestEventCode string            `json:"test_event_code,omitempty"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Send posts the event and returns the raw API response.
func (c *Client) Send(ctx context.Context, ev *events.Event) (json.RawMessage, error) {
	req := conversionRequest{
		Data: []conversionEvent{{
			EventName:             ev.EventName,
			EventTime:             ev.EventTime,
			EventID:               ev.EventID,
			EventSourceURL:        ev.EventSourceURL,
			ActionSource:          ev.ActionSource,
			ReferrerURL:           ev.ReferrerURL,
			UserData:              ev.UserData,
			CustomData:            ev.CustomData,
			DataProcessingOptions: []string{},
		}},
		AccessToken:   c.cfg.AccessToken,
		TestEventCode: c.cfg.TestEventCode,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("meta: marshal conversion request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s/events", c.baseURL, c.cfg.APIVersion, c.cfg.PixelID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("meta: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("meta: send event: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("meta: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return respBody, fmt.Errorf("meta: API error: %s", apiErr.Error.Message)
		}
		return respBody, fmt.Errorf("meta: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
