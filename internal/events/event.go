// Package events defines the canonical tracking event envelope shared by
// every platform adapter, plus the per-dispatch response types.
package events

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ActionSource tells the destination platform where the event originated.
type ActionSource string

const (
	// ActionSourceWebsite marks user-originated events (form submits, page views).
	ActionSourceWebsite ActionSource = "website"
	// ActionSourceSystem marks server-originated events (CRM lifecycle changes).
	ActionSourceSystem ActionSource = "system"
)

// UserData carries the identity block shared by all platform adapters.
// Hashed fields hold SHA-256 hex digests; empty means "omit", never a hash
// of the empty string.
type UserData struct {
	Email           string `json:"em,omitempty"`
	Phone           string `json:"ph,omitempty"`
	FirstName       string `json:"fn,omitempty"`
	LastName        string `json:"ln,omitempty"`
	Gender          string `json:"ge,omitempty"`
	DateOfBirth     string `json:"db,omitempty"`
	City            string `json:"ct,omitempty"`
	State           string `json:"st,omitempty"`
	Zip             string `json:"zp,omitempty"`
	Country         string `json:"country,omitempty"`
	ExternalID      string `json:"external_id,omitempty"`
	ClientIPAddress string `json:"client_ip_address,omitempty"`
	ClientUserAgent string `json:"client_user_agent,omitempty"`
	FBC             string `json:"fbc,omitempty"`
	FBP             string `json:"fbp,omitempty"`
	LeadID          string `json:"lead_id,omitempty"`
}

// IsZero reports whether no identity field is set (page views carry no PII).
func (u UserData) IsZero() bool {
	return u == UserData{}
}

// CustomData carries the business-intelligence block.
type CustomData struct {
	Currency              string  `json:"currency,omitempty"`
	Value                 float64 `json:"value,omitempty"`
	ContentName           string  `json:"content_name,omitempty"`
	ContentCategory       string  `json:"content_category,omitempty"`
	ContentType           string  `json:"content_type,omitempty"`
	OrderID               string  `json:"order_id,omitempty"`
	Status                string  `json:"status,omitempty"`
	LeadType              string  `json:"lead_type,omitempty"`
	LeadSource            string  `json:"lead_source,omitempty"`
	AcquisitionChannel    string  `json:"acquisition_channel,omitempty"`
	CustomerLifetimeValue float64 `json:"customer_lifetime_value,omitempty"`
	CustomerSegmentation  string  `json:"customer_segmentation,omitempty"`
	UTMSource             string  `json:"utm_source,omitempty"`
	UTMMedium             string  `json:"utm_medium,omitempty"`
	UTMCampaign           string  `json:"utm_campaign,omitempty"`
	UTMTerm               string  `json:"utm_term,omitempty"`
	UTMContent            string  `json:"utm_content,omitempty"`
	FormName              string  `json:"form_name,omitempty"`
	FormPage              string  `json:"form_page,omitempty"`
	FormStep              string  `json:"form_step,omitempty"`
	DeviceType            string  `json:"device_type,omitempty"`
	BrowserName           string  `json:"browser_name,omitempty"`
	BrowserVersion        string  `json:"browser_version,omitempty"`
	OperatingSystem       string  `json:"operating_system,omitempty"`
	Language              string  `json:"language,omitempty"`
	PageViews             int     `json:"page_views,omitempty"`
	SessionDuration       int64   `json:"session_duration,omitempty"`
}

// DeviceData captures user-agent derived device descriptors.
type DeviceData struct {
	UserAgent      string `json:"user_agent,omitempty"`
	DeviceType     string `json:"device_type,omitempty"`
	BrowserName    string `json:"browser_name,omitempty"`
	BrowserVersion string `json:"browser_version,omitempty"`
	OSName         string `json:"os_name,omitempty"`
	AcceptLanguage string `json:"accept_language,omitempty"`
}

// SessionData captures visitor/session aggregates. All fields are optional;
// a pure server context simply leaves them absent.
type SessionData struct {
	SessionID          string `json:"session_id,omitempty"`
	PageViews          int    `json:"page_views,omitempty"`
	SessionDuration    int64  `json:"session_duration,omitempty"`
	IsReturningVisitor bool   `json:"is_returning_visitor,omitempty"`
	VisitCount         int    `json:"visit_count,omitempty"`
	TrafficSource      string `json:"traffic_source,omitempty"`
	FirstTouchSource   string `json:"first_touch_source,omitempty"`
	FirstTouchMedium   string `json:"first_touch_medium,omitempty"`
	FirstTouchCampaign string `json:"first_touch_campaign,omitempty"`
	LastTouchSource    string `json:"last_touch_source,omitempty"`
	LastTouchMedium    string `json:"last_touch_medium,omitempty"`
	LastTouchCampaign  string `json:"last_touch_campaign,omitempty"`
	ScrollDepth        int    `json:"scroll_depth,omitempty"`
	TimeOnPage         int64  `json:"time_on_page,omitempty"`
}

// Event is the canonical envelope dispatched to every enabled platform.
// One fan-out call shares a single EventID and EventTime across platforms so
// each destination can de-duplicate against its client-side pixel event.
type Event struct {
	EventName      string       `json:"event_name"`
	EventTime      int64        `json:"event_time"`
	EventID        string       `json:"event_id"`
	EventSourceURL string       `json:"event_source_url"`
	ActionSource   ActionSource `json:"action_source"`
	ReferrerURL    string       `json:"referrer_url,omitempty"`
	UserData       UserData     `json:"user_data"`
	CustomData     CustomData   `json:"custom_data"`
	DeviceData     *DeviceData  `json:"device_data,omitempty"`
	SessionData    *SessionData `json:"session_data,omitempty"`
}

var nowFunc = time.Now

// NewEventID generates a globally unique id of the form
// {event_name_lowercase}_{unix_millis}_{random_suffix}.
func NewEventID(eventName string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%s_%d_%s", strings.ToLower(strings.TrimSpace(eventName)), nowFunc().UnixMilli(), suffix)
}

// Option customizes an assembled event (useful in tests and for callers that
// reuse an event id for platform-side de-duplication).
type Option func(*Event)

// WithEventID overrides the generated event id.
func WithEventID(id string) Option {
	return func(e *Event) {
		if id != "" {
			e.EventID = id
		}
	}
}

// WithEventTime overrides the event timestamp.
func WithEventTime(ts time.Time) Option {
	return func(e *Event) {
		if !ts.IsZero() {
			e.EventTime = ts.Unix()
		}
	}
}

// WithActionSource overrides the default "website" action source.
func WithActionSource(src ActionSource) Option {
	return func(e *Event) {
		if src != "" {
			e.ActionSource = src
		}
	}
}

// WithUserData attaches the identity block.
func WithUserData(u UserData) Option {
	return func(e *Event) { e.UserData = u }
}

// WithCustomData attaches the business block.
func WithCustomData(c CustomData) Option {
	return func(e *Event) { e.CustomData = c }
}

// WithDeviceData attaches device descriptors.
func WithDeviceData(d *DeviceData) Option {
	return func(e *Event) { e.DeviceData = d }
}

// WithSessionData attaches session aggregates.
func WithSessionData(s *SessionData) Option {
	return func(e *Event) { e.SessionData = s }
}

// WithSourceURL sets the page the event originated from.
func WithSourceURL(url string) Option {
	return func(e *Event) { e.EventSourceURL = url }
}

// WithReferrer sets the referring page.
func WithReferrer(url string) Option {
	return func(e *Event) { e.ReferrerURL = url }
}

// New assembles a canonical event. Pure construction plus id generation;
// all derivation happens in the enrichment layer.
func New(eventName string, opts ...Option) *Event {
	e := &Event{
		EventName:    eventName,
		EventTime:    nowFunc().Unix(),
		EventID:      NewEventID(eventName),
		ActionSource: ActionSourceWebsite,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
