package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/rufoof/tracking-api/internal/api/router"
	appconfig "github.com/rufoof/tracking-api/internal/config"
	"github.com/rufoof/tracking-api/internal/enrich"
	"github.com/rufoof/tracking-api/internal/leads"
	"github.com/rufoof/tracking-api/internal/notify"
	"github.com/rufoof/tracking-api/internal/observability/metrics"
	"github.com/rufoof/tracking-api/internal/pii"
	"github.com/rufoof/tracking-api/internal/platforms/google"
	"github.com/rufoof/tracking-api/internal/platforms/meta"
	"github.com/rufoof/tracking-api/internal/platforms/snapchat"
	"github.com/rufoof/tracking-api/internal/platforms/tiktok"
	"github.com/rufoof/tracking-api/internal/tracking"
	"github.com/rufoof/tracking-api/internal/visitors"
	"github.com/rufoof/tracking-api/pkg/logging"
)

func main() {
	// Load .env in development; real deployments use the environment.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting tracking API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// Visitor attribution store (optional).
	var store tracking.VisitorStore
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, visitor attribution disabled", "error", err)
		} else {
			store = visitors.NewStore(rdb, logger)
			defer rdb.Close()
		}
	}

	// Lead storage: Postgres when configured, in-memory otherwise.
	var leadsRepo leads.Repository = leads.NewInMemoryRepository()
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		leadsRepo = leads.NewPostgresRepository(pool)
		logger.Info("using postgres lead repository")
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory lead repository")
	}

	// Backup email notifications.
	var sender notify.EmailSender = notify.NewStubEmailSender(logger)
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sg != nil {
		sender = sg
	}
	notifier := notify.NewService(sender, cfg.BackupEmailRecipients, logger)

	adapters := []tracking.Adapter{
		meta.NewClient(meta.Config{
			Enabled:       cfg.MetaEnabled,
			PixelID:       cfg.MetaPixelID,
			AccessToken:   cfg.MetaAccessToken,
			APIVersion:    cfg.MetaAPIVersion,
			TestEventCode: cfg.MetaTestEventCode,
			Timeout:       cfg.MetaTimeout,
		}),
		google.NewClient(google.Config{
			Enabled:       cfg.GoogleEnabled,
			MeasurementID: cfg.GoogleMeasurementID,
			APISecret:     cfg.GoogleAPISecret,
			Timeout:       cfg.GoogleTimeout,
		}),
		tiktok.NewClient(tiktok.Config{
			Enabled:     cfg.TikTokEnabled,
			PixelCode:   cfg.TikTokPixelCode,
			AccessToken: cfg.TikTokAccessToken,
			Timeout:     cfg.TikTokTimeout,
		}),
		snapchat.NewClient(snapchat.Config{
			Enabled:     cfg.SnapchatEnabled,
			PixelID:     cfg.SnapchatPixelID,
			AccessToken: cfg.SnapchatAccessToken,
			Timeout:     cfg.SnapchatTimeout,
		}),
	}

	trackingMetrics := metrics.NewTrackingMetrics(nil)

	hasher := pii.NewHasher(cfg.DefaultCountryCode)
	svc := tracking.NewService(
		adapters,
		enrich.New(enrich.Config{
			Currency:        cfg.DefaultCurrency,
			BaseLeadValue:   cfg.LeadBaseValue,
			ContentName:     cfg.ContentName,
			ContentCategory: cfg.ContentCategory,
		}),
		hasher,
		store,
		trackingMetrics,
		logger,
		tracking.Config{
			DefaultCountry:  cfg.DefaultCountry,
			ContentName:     cfg.ContentName,
			ContentCategory: cfg.ContentCategory,
		},
	)
	logger.Info("tracking platforms configured", "enabled", svc.EnabledPlatforms())

	trackingHandler := tracking.NewHandler(svc, logger)
	leadsHandler := leads.NewHandler(leadsRepo, svc, notifier, logger)
	crmWebhook := tracking.NewCRMWebhookHandler(svc, hasher, cfg.CRMWebhookSecret, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		TrackingHandler:    trackingHandler,
		LeadsHandler:       leadsHandler,
		CRMWebhook:         crmWebhook,
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
