// Package tracking fans lead events out to every enabled ad platform and
// collects per-platform outcomes. The fan-out settles all dispatches: one
// platform failing never short-circuits its siblings or the aggregate.
package tracking

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rufoof/tracking-api/internal/enrich"
	"github.com/rufoof/tracking-api/internal/events"
	"github.com/rufoof/tracking-api/internal/observability/metrics"
	"github.com/rufoof/tracking-api/internal/pii"
	"github.com/rufoof/tracking-api/internal/visitors"
	"github.com/rufoof/tracking-api/pkg/logging"
)

var tracer = otel.Tracer("rufoof.internal.tracking")

// Adapter is one conversion API destination.
type Adapter interface {
	Name() string
	Enabled() bool
	Send(ctx context.Context, ev *events.Event) (json.RawMessage, error)
}

// VisitorStore accumulates cross-session attribution for a visitor.
type VisitorStore interface {
	Record(ctx context.Context, visitorID, sessionID string, attr enrich.Attribution) visitors.Snapshot
}

// Config fixes the service-level business constants.
type Config struct {
	DefaultCountry  string
	ContentName     string
	ContentCategory string
}

// Service composes enrichment, hashing, assembly and the platform fan-out.
type Service struct {
	adapters []Adapter
	enricher *enrich.Enricher
	hasher   *pii.Hasher
	store    VisitorStore
	metrics  *metrics.TrackingMetrics
	log      *logging.Logger
	cfg      Config

	nowFunc func() time.Time
}

// NewService wires the pipeline. The visitor store and metrics may be nil.
func NewService(adapters []Adapter, enricher *enrich.Enricher, hasher *pii.Hasher, store VisitorStore, m *metrics.TrackingMetrics, log *logging.Logger, cfg Config) *Service {
	if log == nil {
		log = logging.Default()
	}
	if cfg.DefaultCountry == "" {
		cfg.DefaultCountry = "sa"
	}
	return &Service{
		adapters: adapters,
		enricher: enricher,
		hasher:   hasher,
		store:    store,
		metrics:  m,
		log:      log,
		cfg:      cfg,
		nowFunc:  time.Now,
	}
}

// EnabledPlatforms lists the adapters that will receive events.
func (s *Service) EnabledPlatforms() []string {
	var names []string
	for _, a := range s.adapters {
		if a.Enabled() {
			names = append(names, a.Name())
		}
	}
	return names
}

// LeadInput is a raw lead submission plus its ambient context.
type LeadInput struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Name     string `json:"name"`
	Quantity string `json:"quantity,omitempty"`

	Company string `json:"company,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip,omitempty"`
	Country string `json:"country,omitempty"`

	UTMSource   string `json:"utm_source,omitempty"`
	UTMMedium   string `json:"utm_medium,omitempty"`
	UTMCampaign string `json:"utm_campaign,omitempty"`
	UTMTerm     string `json:"utm_term,omitempty"`
	UTMContent  string `json:"utm_content,omitempty"`

	URL       string `json:"url,omitempty"`
	Referrer  string `json:"referrer,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	ClientIP  string `json:"client_ip,omitempty"`
	Language  string `json:"language,omitempty"`

	VisitorID  string `json:"visitor_id,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
	ExternalID string `json:"external_id,omitempty"`
	FBC        string `json:"fbc,omitempty"`
	FBP        string `json:"fbp,omitempty"`
	LeadID     string `json:"lead_id,omitempty"`

	// EventID lets a caller reuse a previous id so the destination
	// platforms can de-duplicate a resubmission.
	EventID string `json:"event_id,omitempty"`
}

// Validate checks the fields the pipeline cannot run without.
func (in LeadInput) Validate() error {
	if strings.TrimSpace(in.Email) == "" ||
		strings.TrimSpace(in.Phone) == "" ||
		strings.TrimSpace(in.Name) == "" {
		return ErrMissingFields
	}
	return nil
}

// PageViewInput is the context for a page-view event. Page views carry no PII.
type PageViewInput struct {
	PageURL     string `json:"page_url"`
	Referrer    string `json:"referrer,omitempty"`
	ContentName string `json:"content_name,omitempty"`
	UserAgent   string `json:"user_agent,omitempty"`
	Language    string `json:"language,omitempty"`

	UTMSource   string `json:"utm_source,omitempty"`
	UTMMedium   string `json:"utm_medium,omitempty"`
	UTMCampaign string `json:"utm_campaign,omitempty"`

	VisitorID string `json:"visitor_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

func (s *Service) signals(ctx context.Context, userAgent, referrer, pageURL, clientIP, language, utmSource, utmMedium, utmCampaign, utmTerm, utmContent, visitorID, sessionID string) enrich.AmbientSignals {
	sig := enrich.AmbientSignals{
		UserAgent:   userAgent,
		Referrer:    referrer,
		PageURL:     pageURL,
		ClientIP:    clientIP,
		Language:    language,
		UTMSource:   utmSource,
		UTMMedium:   utmMedium,
		UTMCampaign: utmCampaign,
		UTMTerm:     utmTerm,
		UTMContent:  utmContent,
		SessionID:   sessionID,
	}
	if s.store != nil && visitorID != "" {
		attr := enrich.TrafficSource(referrer, utmSource, utmMedium, utmCampaign)
		snap := s.store.Record(ctx, visitorID, sessionID, attr)
		sig.IsReturningVisitor = snap.IsReturning
		sig.VisitCount = snap.VisitCount
		sig.PageViews = snap.PageViews
		sig.SessionDuration = snap.SessionDuration
		sig.FirstTouch = snap.FirstTouch
		sig.LastTouch = snap.LastTouch
	}
	return sig
}

// TrackLead validates, enriches, hashes and assembles a lead submission,
// then fans it out to every enabled platform.
func (s *Service) TrackLead(ctx context.Context, in LeadInput) (*events.MultiPlatformTrackingResponse, error) {
	ctx, span := tracer.Start(ctx, "tracking.track_lead")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}

	sig := s.signals(ctx, in.UserAgent, in.Referrer, in.URL, in.ClientIP, in.Language,
		in.UTMSource, in.UTMMedium, in.UTMCampaign, in.UTMTerm, in.UTMContent,
		in.VisitorID, in.SessionID)

	firstName, lastName := splitName(in.Name)
	country := in.Country
	if country == "" {
		country = s.cfg.DefaultCountry
	}
	externalID := in.ExternalID
	if externalID == "" {
		externalID = in.VisitorID
	}

	userData := s.hasher.HashIdentity(pii.Identity{
		Email:      in.Email,
		Phone:      in.Phone,
		FirstName:  firstName,
		LastName:   lastName,
		City:       in.City,
		State:      in.State,
		Zip:        in.Zip,
		Country:    country,
		ExternalID: externalID,
	})
	userData.ClientIPAddress = in.ClientIP
	userData.ClientUserAgent = in.UserAgent
	userData.FBC = in.FBC
	userData.FBP = in.FBP
	userData.LeadID = in.LeadID

	customData := s.enricher.CustomData(in.Quantity, sig)
	customData.ContentName = s.cfg.ContentName
	customData.ContentCategory = s.cfg.ContentCategory
	customData.FormName = "lead_form"

	deviceData := s.enricher.DeviceData(sig)
	sessionData := s.enricher.SessionData(sig)

	ev := events.New("Lead",
		events.WithEventID(in.EventID),
		events.WithUserData(userData),
		events.WithCustomData(customData),
		events.WithDeviceData(&deviceData),
		events.WithSessionData(&sessionData),
		events.WithSourceURL(in.URL),
		events.WithReferrer(in.Referrer),
	)

	span.SetAttributes(
		attribute.String("tracking.event_id", ev.EventID),
		attribute.String("tracking.lead_type", customData.LeadType),
	)

	return s.TrackEvent(ctx, ev), nil
}

// TrackPageView assembles a ViewContent event with an empty user-data block
// and fans it out.
func (s *Service) TrackPageView(ctx context.Context, in PageViewInput) *events.MultiPlatformTrackingResponse {
	ctx, span := tracer.Start(ctx, "tracking.track_page_view")
	defer span.End()

	sig := s.signals(ctx, in.UserAgent, in.Referrer, in.PageURL, "", in.Language,
		in.UTMSource, in.UTMMedium, in.UTMCampaign, "", "",
		in.VisitorID, in.SessionID)

	contentName := in.ContentName
	if contentName == "" {
		contentName = s.cfg.ContentName
	}
	customData := s.enricher.CustomData("", sig)
	customData.Value = 1
	customData.ContentName = contentName
	customData.ContentCategory = "lead_magnet"
	customData.ContentType = "product_catalog"
	customData.LeadType = ""

	deviceData := s.enricher.DeviceData(sig)
	sessionData := s.enricher.SessionData(sig)

	ev := events.New("ViewContent",
		events.WithCustomData(customData),
		events.WithDeviceData(&deviceData),
		events.WithSessionData(&sessionData),
		events.WithSourceURL(in.PageURL),
		events.WithReferrer(in.Referrer),
	)
	span.SetAttributes(attribute.String("tracking.event_id", ev.EventID))

	return s.TrackEvent(ctx, ev)
}

// TrackEvent dispatches an assembled event to every enabled adapter
// concurrently and waits for all outcomes. The aggregate never fails on
// adapter errors; callers inspect FailureCount.
func (s *Service) TrackEvent(ctx context.Context, ev *events.Event) *events.MultiPlatformTrackingResponse {
	ctx, span := tracer.Start(ctx, "tracking.dispatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("tracking.event_id", ev.EventID),
		attribute.String("tracking.event_name", ev.EventName),
	)

	s.metrics.ObserveEvent(ev.EventName, string(ev.ActionSource))

	var enabled []Adapter
	for _, a := range s.adapters {
		if a.Enabled() {
			enabled = append(enabled, a)
		}
	}

	results := make([]events.TrackingResponse, len(enabled))
	var wg sync.WaitGroup
	for i, adapter := range enabled {
		wg.Add(1)
		go func(i int, adapter Adapter) {
			defer wg.Done()
			results[i] = s.dispatch(ctx, adapter, ev)
		}(i, adapter)
	}
	wg.Wait()

	resp := &events.MultiPlatformTrackingResponse{
		EventID:        ev.EventID,
		Results:        results,
		TotalPlatforms: len(results),
		Timestamp:      s.nowFunc().UnixMilli(),
	}
	for _, r := range results {
		if r.Success {
			resp.SuccessCount++
		} else {
			resp.FailureCount++
		}
	}

	if resp.FailureCount > 0 {
		s.log.Warn("tracking fan-out completed with failures",
			"event_id", ev.EventID,
			"success_count", resp.SuccessCount,
			"failure_count", resp.FailureCount,
		)
	} else {
		s.log.Info("tracking fan-out completed",
			"event_id", ev.EventID,
			"platforms", resp.TotalPlatforms,
		)
	}

	span.SetAttributes(attribute.Int("tracking.failure_count", resp.FailureCount))
	return resp
}

func (s *Service) dispatch(ctx context.Context, adapter Adapter, ev *events.Event) events.TrackingResponse {
	ctx, span := tracer.Start(ctx, "tracking.dispatch_platform")
	defer span.End()
	span.SetAttributes(attribute.String("tracking.platform", adapter.Name()))

	start := s.nowFunc()
	payload, err := adapter.Send(ctx, ev)
	s.metrics.ObserveDispatchLatency(adapter.Name(), time.Since(start).Seconds())

	res := events.TrackingResponse{
		Platform:  adapter.Name(),
		EventID:   ev.EventID,
		Response:  payload,
		Timestamp: s.nowFunc().UnixMilli(),
	}
	if err != nil {
		res.Error = err.Error()
		s.log.Warn("platform dispatch failed",
			"platform", adapter.Name(),
			"event_id", ev.EventID,
			"error", err,
		)
		span.SetAttributes(attribute.Bool("tracking.failed", true))
	} else {
		res.Success = true
	}
	s.metrics.ObserveDispatch(adapter.Name(), res.Success)
	return res
}

func splitName(full string) (first, last string) {
	parts := strings.Fields(strings.TrimSpace(full))
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
