// Package tiktok sends events to the TikTok Events API.
package tiktok

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rufoof/tracking-api/internal/events"
)

const (
	defaultBaseURL = "https://business-api.tiktok.com"
	defaultTimeout = 10 * time.Second
)

// Config holds the TikTok pixel credentials.
type Config struct {
	Enabled     bool
	PixelCode   string
	AccessToken string
	Timeout     time.Duration
}

// Client posts events to the Events API for one pixel.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an Events API client.
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
func (c *Client) Name() string { return "tiktok" }

// Enabled reports whether this destination should receive events.
func (c *Client) Enabled() bool { return c.cfg.Enabled }

type pageContext struct {
	URL      string `json:"url,omitempty"`
	Referrer string `json:"referrer,omitempty"`
}

type userContext struct {
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	ExternalID  string `json:"external_id,omitempty"`
}

type eventContext struct {
	Page pageContext `json:"page"`
	User userContext `json:"user"`
}

type properties struct {
	Value       float64 `json:"value,omitempty"`
	Currency    string  `json:"currency,omitempty"`
	ContentType string  `json:"content_type,omitempty"`
	ContentName string  `json:"content_name,omitempty"`
}

type trackRequest struct {
	PixelCode  string       `json:"pixel_code"`
	Event      string       `json:"event"`
	EventID    string       `json:"event_id"`
	Timestamp  string       `json:"timestamp"`
	Context    eventContext `json:"context"`
	Properties properties   `json:"properties"`
}

type trackResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// eventName maps the canonical event name onto TikTok's standard events.
func eventName(canonical string) string {
	switch canonical {
	case "Lead":
		return "CompleteRegistration"
	case "ViewContent", "PageView":
		return "ViewContent"
	default:
		return canonical
	}
}

// Send posts the event and returns the raw API response. The API signals
// failure with a non-zero code even on HTTP 200.
func (c *Client) Send(ctx context.Context, ev *events.Event) (json.RawMessage, error) {
	req := trackRequest{
		PixelCode: c.cfg.PixelCode,
		Event:     eventName(ev.EventName),
		EventID:   ev.EventID,
		Timestamp: strconv.FormatInt(ev.EventTime, 10),
		Context: eventContext{
			Page: pageContext{URL: ev.EventSourceURL, Referrer: ev.ReferrerURL},
			User: userContext{
				Email:       ev.UserData.Email,
				PhoneNumber: ev.UserData.Phone,
				ExternalID:  ev.UserData.ExternalID,
			},
		},
		Properties: properties{
			Value:       ev.CustomData.Value,
			Currency:    ev.CustomData.Currency,
			ContentType: ev.CustomData.ContentType,
			ContentName: ev.CustomData.ContentName,
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("tiktok: marshal track request: %w", err)
	}

	url := c.baseURL + "/open_api/v1.3/event/track/"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tiktok: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Access-Token", c.cfg.AccessToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("tiktok: send event: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tiktok: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return respBody, fmt.Errorf("tiktok: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var trackResp trackResponse
	if json.Unmarshal(respBody, &trackResp) == nil && trackResp.Code != 0 {
		return respBody, fmt.Errorf("tiktok: API error %d: %s", trackResp.Code, trackResp.Message)
	}

	return respBody, nil
}
