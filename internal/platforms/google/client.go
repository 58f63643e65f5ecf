// Package google sends events to the Google Analytics 4 Measurement Protocol.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rufoof/tracking-api/internal/events"
)

const (
	defaultBaseURL = "https://www.google-analytics.com"
	defaultTimeout = 10 * time.Second
)

// Config holds the GA4 Measurement Protocol credentials.
type Config struct {
	Enabled       bool
	MeasurementID string
	APISecret     string
	Timeout       time.Duration
}

// Client posts events to /mp/collect for one GA4 property.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Measurement Protocol client.
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

// SetBaseURL overrides the collection endpoint base (useful for testing).
func (c *Client) SetBaseURL(base string) {
	c.baseURL = base
}

// Name identifies the platform in tracking results.
func (c *Client) Name() string { return "google" }

// Enabled reports whether this destination should receive events.
func (c *Client) Enabled() bool { return c.cfg.Enabled }

type mpEvent struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
}

type userProperty struct {
	Value string `json:"value"`
}

type mpRequest struct {
	ClientID       string                  `json:"client_id"`
	Events         []mpEvent               `json:"events"`
	UserProperties map[string]userProperty `json:"user_properties,omitempty"`
}

// eventName maps the canonical event name onto a GA4 recommended event.
func eventName(canonical string) string {
	switch canonical {
	case "Lead":
		return "generate_lead"
	case "ViewContent", "PageView":
		return "page_view"
	default:
		return canonical
	}
}

// Send posts the event. The Measurement Protocol replies 2xx with an empty
// body on acceptance, so the returned payload may be empty.
func (c *Client) Send(ctx context.Context, ev *events.Event) (json.RawMessage, error) {
	// GA4 needs a stable per-user client id; the hashed external id is the
	// best server-side stand-in we have.
	clientID := ev.UserData.ExternalID
	if clientID == "" {
		clientID = "unknown"
	}

	params := map[string]any{
		"event_category":   "lead_generation",
		"event_label":      ev.CustomData.LeadType,
		"value":            ev.CustomData.Value,
		"currency":         ev.CustomData.Currency,
		"content_category": ev.CustomData.ContentCategory,
		"page_location":    ev.EventSourceURL,
	}
	if ev.ReferrerURL != "" {
		params["page_referrer"] = ev.ReferrerURL
	}
	if ev.UserData.ClientUserAgent != "" {
		params["user_agent"] = ev.UserData.ClientUserAgent
	}
	if ev.UserData.ClientIPAddress != "" {
		params["ip_override"] = ev.UserData.ClientIPAddress
	}

	req := mpRequest{
		ClientID: clientID,
		Events:   []mpEvent{{Name: eventName(ev.EventName), Params: params}},
		UserProperties: map[string]userProperty{
			"lead_source":           {Value: ev.CustomData.LeadSource},
			"customer_segmentation": {Value: ev.CustomData.CustomerSegmentation},
			"device_type":           {Value: ev.CustomData.DeviceType},
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("google: marshal measurement request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/mp/collect?measurement_id=%s&api_secret=%s",
		c.baseURL, url.QueryEscape(c.cfg.MeasurementID), url.QueryEscape(c.cfg.APISecret))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("google: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("google: send event: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("google: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return respBody, fmt.Errorf("google: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
