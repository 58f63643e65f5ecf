// Package router wires the HTTP surface: tracking endpoints, lead capture,
// CRM webhooks, health and metrics.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/rufoof/tracking-api/internal/http/middleware"
	"github.com/rufoof/tracking-api/internal/leads"
	"github.com/rufoof/tracking-api/internal/tracking"
	"github.com/rufoof/tracking-api/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger          *logging.Logger
	TrackingHandler *tracking.Handler
	LeadsHandler    *leads.Handler
	CRMWebhook      *tracking.CRMWebhookHandler
	MetricsHandler  http.Handler

	CORSAllowedOrigins []string

	// Per-IP token bucket for the public tracking endpoints. Zero disables
	// rate limiting.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	var limit func(http.Handler) http.Handler
	if cfg.RateLimitPerSecond > 0 {
		limit = httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	}

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.TrackingHandler != nil {
		r.Route("/api/tracking", func(api chi.Router) {
			if limit != nil {
				api.Use(limit)
			}
			api.Post("/enhanced", cfg.TrackingHandler.TrackLead)
			api.Get("/enhanced", cfg.TrackingHandler.Health)
			api.Post("/pageview", cfg.TrackingHandler.TrackPageView)
		})
	}

	if cfg.LeadsHandler != nil {
		r.Route("/api/leads", func(api chi.Router) {
			if limit != nil {
				api.Use(limit)
			}
			api.Post("/", cfg.LeadsHandler.CreateLead)
			api.Get("/{id}", cfg.LeadsHandler.GetLead)
		})
	}

	if cfg.CRMWebhook != nil {
		r.Post("/webhooks/crm", cfg.CRMWebhook.ServeHTTP)
	}

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
