package leads

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rufoof/tracking-api/internal/events"
	"github.com/rufoof/tracking-api/internal/tracking"
	"github.com/rufoof/tracking-api/pkg/logging"
)

// Tracker fans the lead out to the ad platforms.
type Tracker interface {
	TrackLead(ctx context.Context, in tracking.LeadInput) (*events.MultiPlatformTrackingResponse, error)
}

// Notifier delivers the lead backup notification.
type Notifier interface {
	LeadCreated(ctx context.Context, lead *Lead) error
}

// Handler handles HTTP requests for leads.
type Handler struct {
	repo     Repository
	tracker  Tracker
	notifier Notifier
	logger   *logging.Logger
}

// NewHandler creates a new leads handler. Tracker and notifier may be nil.
func NewHandler(repo Repository, tracker Tracker, notifier Notifier, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		repo:     repo,
		tracker:  tracker,
		notifier: notifier,
		logger:   logger,
	}
}

// CreateLeadResponse returns the stored lead plus the tracking summary.
// Tracking and notification are best-effort; the lead row is the record of
// truth and the submitter sees success once it is stored.
type CreateLeadResponse struct {
	Lead     *Lead                                 `json:"lead"`
	Tracking *events.MultiPlatformTrackingResponse `json:"tracking,omitempty"`
}

// CreateLead handles POST /api/leads requests.
func (h *Handler) CreateLead(w http.ResponseWriter, r *http.Request) {
	var req CreateLeadRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.UserAgent == "" {
		req.UserAgent = r.UserAgent()
	}
	if req.ClientIP == "" {
		req.ClientIP = remoteIP(r)
	}

	lead, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrInvalidName) || errors.Is(err, ErrMissingContact) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to create lead", "error", err)
		http.Error(w, "failed to create lead", http.StatusInternalServerError)
		return
	}

	h.logger.Info("lead created", "id", lead.ID, "name", lead.Name)

	resp := CreateLeadResponse{Lead: lead}
	if h.tracker != nil {
		trackResp, err := h.tracker.TrackLead(r.Context(), tracking.LeadInput{
			Email:       req.Email,
			Phone:       req.Phone,
			Name:        req.Name,
			Quantity:    req.Quantity,
			Company:     req.Company,
			City:        req.City,
			Country:     req.Country,
			UTMSource:   req.UTMSource,
			UTMMedium:   req.UTMMedium,
			UTMCampaign: req.UTMCampaign,
			UTMTerm:     req.UTMTerm,
			UTMContent:  req.UTMContent,
			URL:         req.URL,
			Referrer:    req.Referrer,
			UserAgent:   req.UserAgent,
			ClientIP:    req.ClientIP,
			VisitorID:   req.VisitorID,
			SessionID:   req.SessionID,
			LeadID:      lead.ID,
		})
		if err != nil {
			h.logger.Warn("lead tracking skipped", "id", lead.ID, "error", err)
		} else {
			resp.Tracking = trackResp
		}
	}

	if h.notifier != nil {
		if err := h.notifier.LeadCreated(r.Context(), lead); err != nil {
			h.logger.Warn("lead backup notification failed", "id", lead.ID, "error", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

// GetLead handles GET /api/leads/{id} requests.
func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "missing id", http.StatusBadRequest)
		return
	}

	lead, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			http.Error(w, "lead not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load lead", "id", id, "error", err)
		http.Error(w, "failed to load lead", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(lead)
}

func remoteIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
