// Package enrich derives business and contextual fields from a raw lead
// submission and the ambient signals captured alongside it. All derivations
// are pure functions of their inputs; missing signals degrade to absent
// fields and never fail the submission.
package enrich

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/rufoof/tracking-api/internal/events"
)

// Lead types derived from the requested quantity bucket.
const (
	LeadTypeHighValue      = "high_value_lead"
	LeadTypeMediumValue    = "medium_value_lead"
	LeadTypeStandard       = "standard_lead"
	LeadTypeGeneralInquiry = "general_inquiry"
)

// Customer segmentation values reported to the platforms.
const (
	SegmentNewCustomer      = "new_customer_to_business"
	SegmentExistingCustomer = "existing_customer_to_business"
)

var (
	tabletKeywords = []string{"tablet", "ipad", "playbook", "silk"}
	mobileKeywords = []string{
		"mobile", "iphone", "ipod", "android", "blackberry",
		"opera mini", "windows ce", "palm", "smartphone", "iemobile",
	}
	browserVersionRe = regexp.MustCompile(`(?i)(chrome|firefox|safari|edg|edge|opr|opera)/(\d+)`)
)

// Attribution is one source/medium/campaign triple.
type Attribution struct {
	Source   string `json:"source,omitempty"`
	Medium   string `json:"medium,omitempty"`
	Campaign string `json:"campaign,omitempty"`
}

// AmbientSignals carries everything the enricher may consult beyond the form
// fields themselves. Every field is optional.
type AmbientSignals struct {
	UserAgent string
	Referrer  string
	PageURL   string
	ClientIP  string
	Language  string

	UTMSource   string
	UTMMedium   string
	UTMCampaign string
	UTMTerm     string
	UTMContent  string

	SessionID          string
	PageViews          int
	SessionDuration    int
	ScrollDepth        int
	TimeOnPage         int
	IsReturningVisitor bool
	VisitCount         int

	FirstTouch Attribution
	LastTouch  Attribution
}

// Config fixes the business constants the derivations depend on.
type Config struct {
	Currency        string
	BaseLeadValue   float64
	ContentName     string
	ContentCategory string
}

// Enricher derives custom-data and session-data blocks for events.
type Enricher struct {
	cfg Config
}

func New(cfg Config) *Enricher {
	if cfg.BaseLeadValue <= 0 {
		cfg.BaseLeadValue = 500
	}
	if cfg.Currency == "" {
		cfg.Currency = "SAR"
	}
	return &Enricher{cfg: cfg}
}

// LeadValue maps the quantity bucket to an estimated order value. Unset
// quantities are treated as the lowest bucket; unrecognized free-form
// values fall back to the base value alone.
func (e *Enricher) LeadValue(quantity string) float64 {
	switch strings.TrimSpace(quantity) {
	case "10+":
		return e.cfg.BaseLeadValue * 15
	case "5-10":
		return e.cfg.BaseLeadValue * 7.5
	case "1-5", "":
		return e.cfg.BaseLeadValue * 3
	default:
		return e.cfg.BaseLeadValue
	}
}

// LeadType maps the quantity bucket to a lead classification.
func (e *Enricher) LeadType(quantity string) string {
	switch strings.TrimSpace(quantity) {
	case "10+":
		return LeadTypeHighValue
	case "5-10":
		return LeadTypeMediumValue
	case "1-5":
		return LeadTypeStandard
	default:
		return LeadTypeGeneralInquiry
	}
}

// DeviceType classifies the user agent as tablet, mobile or desktop.
// Tablets are checked first since tablet agents usually also say "mobile".
func DeviceType(userAgent string) string {
	if userAgent == "" {
		return ""
	}
	ua := strings.ToLower(userAgent)
	for _, kw := range tabletKeywords {
		if strings.Contains(ua, kw) {
			return "tablet"
		}
	}
	for _, kw := range mobileKeywords {
		if strings.Contains(ua, kw) {
			return "mobile"
		}
	}
	return "desktop"
}

// BrowserName identifies the browser family by substring. Edge and Opera
// ship Chrome in their agents so they are checked first.
func BrowserName(userAgent string) string {
	switch {
	case userAgent == "":
		return ""
	case strings.Contains(userAgent, "Edg"):
		return "Edge"
	case strings.Contains(userAgent, "OPR"), strings.Contains(userAgent, "Opera"):
		return "Opera"
	case strings.Contains(userAgent, "Chrome"):
		return "Chrome"
	case strings.Contains(userAgent, "Firefox"):
		return "Firefox"
	case strings.Contains(userAgent, "Safari"):
		return "Safari"
	default:
		return "Unknown"
	}
}

// BrowserVersion extracts the major version for the known browser families.
func BrowserVersion(userAgent string) string {
	if userAgent == "" {
		return ""
	}
	m := browserVersionRe.FindStringSubmatch(userAgent)
	if m == nil {
		return "Unknown"
	}
	return m[2]
}

// OperatingSystem identifies the OS family by substring. iOS devices report
// "like Mac OS X" so iPhone/iPad markers are checked before Mac.
func OperatingSystem(userAgent string) string {
	switch {
	case userAgent == "":
		return ""
	case strings.Contains(userAgent, "iPhone"), strings.Contains(userAgent, "iPad"), strings.Contains(userAgent, "iOS"):
		return "iOS"
	case strings.Contains(userAgent, "Android"):
		return "Android"
	case strings.Contains(userAgent, "Windows"):
		return "Windows"
	case strings.Contains(userAgent, "Mac"):
		return "macOS"
	case strings.Contains(userAgent, "Linux"):
		return "Linux"
	default:
		return "Unknown"
	}
}

// TrafficSource derives the source/medium/campaign triple from the referrer
// domain, overridden by UTM parameters when present. No referrer and no UTM
// means direct traffic.
func TrafficSource(referrer, utmSource, utmMedium, utmCampaign string) Attribution {
	attr := Attribution{Source: "direct", Medium: "none", Campaign: "none"}

	if host := referrerHost(referrer); host != "" {
		switch {
		case strings.Contains(host, "google"):
			attr.Source, attr.Medium = "google", "organic"
		case strings.Contains(host, "facebook"):
			attr.Source, attr.Medium = "facebook", "social"
		case strings.Contains(host, "instagram"):
			attr.Source, attr.Medium = "instagram", "social"
		default:
			attr.Source, attr.Medium = host, "referral"
		}
	}

	if utmSource != "" {
		attr.Source = utmSource
		if utmMedium != "" {
			attr.Medium = utmMedium
		}
		if utmCampaign != "" {
			attr.Campaign = utmCampaign
		}
	}
	return attr
}

func referrerHost(referrer string) string {
	if referrer == "" {
		return ""
	}
	u, err := url.Parse(referrer)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// LeadSource buckets the traffic source for reporting.
func LeadSource(source string) string {
	switch source {
	case "google":
		return "search_engine"
	case "facebook", "instagram":
		return "social_media"
	case "direct", "":
		return "direct_traffic"
	default:
		return "referral"
	}
}

// AcquisitionChannel classifies the acquisition by paid medium, falling back
// to the organic lead-source bucket.
func AcquisitionChannel(utmMedium, source string) string {
	switch utmMedium {
	case "cpc":
		return "paid_search"
	case "social":
		return "social_media"
	case "email":
		return "email_marketing"
	case "display":
		return "display_advertising"
	}
	return LeadSource(source)
}

// Segmentation splits visitors into new vs. existing customers. The wire
// enum admits finer grades but only this two-way split is derivable from
// the signals we have.
func Segmentation(isReturningVisitor bool) string {
	if isReturningVisitor {
		return SegmentExistingCustomer
	}
	return SegmentNewCustomer
}

// Language reduces an Accept-Language style value to its primary subtag.
func Language(acceptLanguage string) string {
	lang := strings.TrimSpace(acceptLanguage)
	if lang == "" {
		return ""
	}
	if i := strings.IndexAny(lang, ",;"); i >= 0 {
		lang = lang[:i]
	}
	if i := strings.Index(lang, "-"); i >= 0 {
		lang = lang[:i]
	}
	return strings.ToLower(strings.TrimSpace(lang))
}

// CustomData assembles the full custom-data block for a lead submission.
func (e *Enricher) CustomData(quantity string, sig AmbientSignals) events.CustomData {
	attr := TrafficSource(sig.Referrer, sig.UTMSource, sig.UTMMedium, sig.UTMCampaign)

	return events.CustomData{
		Currency:              e.cfg.Currency,
		Value:                 e.LeadValue(quantity),
		ContentName:           e.cfg.ContentName,
		ContentCategory:       e.cfg.ContentCategory,
		LeadType:              e.LeadType(quantity),
		LeadSource:            LeadSource(attr.Source),
		AcquisitionChannel:    AcquisitionChannel(sig.UTMMedium, attr.Source),
		CustomerLifetimeValue: e.LeadValue(quantity),
		CustomerSegmentation:  Segmentation(sig.IsReturningVisitor),
		UTMSource:             sig.UTMSource,
		UTMMedium:             sig.UTMMedium,
		UTMCampaign:           sig.UTMCampaign,
		UTMTerm:               sig.UTMTerm,
		UTMContent:            sig.UTMContent,
		DeviceType:            DeviceType(sig.UserAgent),
		BrowserName:           BrowserName(sig.UserAgent),
		BrowserVersion:        BrowserVersion(sig.UserAgent),
		OperatingSystem:       OperatingSystem(sig.UserAgent),
		Language:              Language(sig.Language),
		PageViews:             sig.PageViews,
		SessionDuration:       int64(sig.SessionDuration),
	}
}

// SessionData assembles the session block from the ambient signals.
func (e *Enricher) SessionData(sig AmbientSignals) events.SessionData {
	attr := TrafficSource(sig.Referrer, sig.UTMSource, sig.UTMMedium, sig.UTMCampaign)

	return events.SessionData{
		SessionID:          sig.SessionID,
		PageViews:          sig.PageViews,
		SessionDuration:    int64(sig.SessionDuration),
		IsReturningVisitor: sig.IsReturningVisitor,
		VisitCount:         sig.VisitCount,
		TrafficSource:      attr.Source,
		FirstTouchSource:   sig.FirstTouch.Source,
		FirstTouchMedium:   sig.FirstTouch.Medium,
		FirstTouchCampaign: sig.FirstTouch.Campaign,
		LastTouchSource:    sig.LastTouch.Source,
		LastTouchMedium:    sig.LastTouch.Medium,
		LastTouchCampaign:  sig.LastTouch.Campaign,
		ScrollDepth:        sig.ScrollDepth,
		TimeOnPage:         int64(sig.TimeOnPage),
	}
}

// DeviceData assembles the device block from the ambient signals.
func (e *Enricher) DeviceData(sig AmbientSignals) events.DeviceData {
	return events.DeviceData{
		UserAgent:      sig.UserAgent,
		DeviceType:     DeviceType(sig.UserAgent),
		BrowserName:    BrowserName(sig.UserAgent),
		BrowserVersion: BrowserVersion(sig.UserAgent),
		OSName:         OperatingSystem(sig.UserAgent),
		AcceptLanguage: sig.Language,
	}
}
