// Package snapchat sends events to the Snapchat Conversions API.
package snapchat

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
	defaultBaseURL = "https://tr.snapchat.com"
	defaultTimeout = 10 * time.Second
)

// Config holds the Snapchat pixel credentials.
type Config struct {
	Enabled     bool
	PixelID     string
	AccessToken string
	Timeout     time.Duration
}

// Client posts events to /v2/conversion for one pixel.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Conversions API client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:        cfg,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// SetBaseURL overrides the API base URL (useful for testing).
func (c *Client) SetBaseURL(base string) {
	c.baseURL = base
}

// Name identifies the platform in tracking results.
func (c *Client) Name() string { return "snapchat" }

// Enabled reports whether this destination should receive events.
func (c *Client) Enabled() bool { return c.cfg.Enabled }

type customData struct {
	Value       float64 `json:"value,omitempty"`
	Currency    string  `json:"currency,omitempty"`
	ContentName string  `json:"content_name,omitempty"`
}

type conversionRequest struct {
	PixelID             string     `json:"pixel_id"`
	Event               string     `json:"event"`
	EventConversionType string     `json:"event_conversion_type"`
	EventTag            string     `json:"event_tag"`
	Timestamp           int64      `json:"timestamp"`
	HashedEmail         string     `json:"hashed_email,omitempty"`
	HashedPhoneNumber   string     `json:"hashed_phone_number,omitempty"`
	UserAgent           string     `json:"user_agent,omitempty"`
	CustomData          customData `json:"custom_data"`
}

// eventName maps the canonical event name onto Snapchat's standard events.
func eventName(canonical string) string {
	switch canonical {
	case "Lead":
		return "SIGN_UP"
	case "ViewContent", "PageView":
		return "VIEW_CONTENT"
	default:
		return canonical
	}
}

// Send posts the event and returns the raw API response. The event tag
// carries the shared event id for pixel de-duplication.
func (c *Client) Send(ctx context.Context, ev *events.Event) (json.RawMessage, error) {
	req := conversionRequest{
		PixelID:             c.cfg.PixelID,
		Event:               eventName(ev.EventName),
		EventConversionType: "WEB",
		EventTag:            ev.EventID,
		Timestamp:           ev.EventTime * 1000,
		HashedEmail:         ev.UserData.Email,
		HashedPhoneNumber:   ev.UserData.Phone,
		UserAgent:           ev.UserData.ClientUserAgent,
		CustomData: customData{
			Value:       ev.CustomData.Value,
			Currency:    ev.CustomData.Currency,
			ContentName: ev.CustomData.ContentName,
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("snapchat: marshal conversion request: %w", err)
	}

	url := c.baseURL + "/v2/conversion"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("snapchat: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("snapchat: send event: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("snapchat: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return respBody, fmt.Errorf("snapchat: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
