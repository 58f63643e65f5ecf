package tracking

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rufoof/tracking-api/internal/events"
	"github.com/rufoof/tracking-api/pkg/logging"
)

// Handler exposes the tracking pipeline over HTTP.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

// NewHandler creates a tracking handler.
func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

type trackingResults struct {
	TotalPlatforms      int              `json:"total_platforms"`
	SuccessfulPlatforms int              `json:"successful_platforms"`
	FailedPlatforms     int              `json:"failed_platforms"`
	PlatformDetails     []platformDetail `json:"platform_details"`
}

type platformDetail struct {
	Platform string `json:"platform"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

type trackResponse struct {
	Success         bool            `json:"success"`
	EventID         string          `json:"event_id"`
	TrackingResults trackingResults `json:"tracking_results"`
	Timestamp       int64           `json:"timestamp"`
}

func toTrackResponse(resp *events.MultiPlatformTrackingResponse) trackResponse {
	details := make([]platformDetail, 0, len(resp.Results))
	for _, r := range resp.Results {
		details = append(details, platformDetail{
			Platform: r.Platform,
			Success:  r.Success,
			Error:    r.Error,
		})
	}
	return trackResponse{
		Success: true,
		EventID: resp.EventID,
		TrackingResults: trackingResults{
			TotalPlatforms:      resp.TotalPlatforms,
			SuccessfulPlatforms: resp.SuccessCount,
			FailedPlatforms:     resp.FailureCount,
			PlatformDetails:     details,
		},
		Timestamp: resp.Timestamp,
	}
}

// TrackLead handles POST /api/tracking/enhanced. A well-formed request
// always returns 200, even when every platform failed.
func (h *Handler) TrackLead(w http.ResponseWriter, r *http.Request) {
	var in LeadInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.logger.Error("failed to decode tracking request", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	if in.ClientIP == "" {
		in.ClientIP = clientIP(r)
	}
	if in.UserAgent == "" {
		in.UserAgent = r.UserAgent()
	}
	if in.Language == "" {
		in.Language = r.Header.Get("Accept-Language")
	}

	resp, err := h.svc.TrackLead(r.Context(), in)
	if err != nil {
		if errors.Is(err, ErrMissingFields) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing required fields: email, phone, name"})
			return
		}
		h.logger.Error("lead tracking failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Tracking failed"})
		return
	}

	writeJSON(w, http.StatusOK, toTrackResponse(resp))
}

// TrackPageView handles POST /api/tracking/pageview.
func (h *Handler) TrackPageView(w http.ResponseWriter, r *http.Request) {
	var in PageViewInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.logger.Error("failed to decode pageview request", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	if in.UserAgent == "" {
		in.UserAgent = r.UserAgent()
	}
	if in.Language == "" {
		in.Language = r.Header.Get("Accept-Language")
	}

	resp := h.svc.TrackPageView(r.Context(), in)
	writeJSON(w, http.StatusOK, toTrackResponse(resp))
}

// Health handles GET /api/tracking/enhanced.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "active",
		"service":           "enhanced-tracking",
		"enabled_platforms": h.svc.EnabledPlatforms(),
		"timestamp":         time.Now().UnixMilli(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// clientIP prefers the standard proxy headers over the socket address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
