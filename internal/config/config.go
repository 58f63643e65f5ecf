package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	CORSAllowedOrigins []string
	DatabaseURL        string
	RedisAddr          string
	RedisPassword      string

	// Lead economics
	DefaultCurrency    string
	LeadBaseValue      float64
	DefaultCountry     string
	DefaultCountryCode string
	ContentName        string
	ContentCategory    string

	// Backup email (SendGrid)
	SendGridAPIKey        string
	SendGridFromEmail     string
	SendGridFromName      string
	BackupEmailRecipients []string

	// Meta Conversions API
	MetaEnabled       bool
	MetaPixelID       string
	MetaAccessToken   string
	MetaAPIVersion    string
	MetaTestEventCode string
	MetaTimeout       time.Duration

	// Google Analytics 4 Measurement Protocol
	GoogleEnabled       bool
	GoogleMeasurementID string
	GoogleAPISecret     string
	GoogleTimeout       time.Duration

	// TikTok Events API
	TikTokEnabled     bool
	TikTokPixelCode   string
	TikTokAccessToken string
	TikTokTimeout     time.Duration

	// Snapchat Conversions API
	SnapchatEnabled     bool
	SnapchatPixelID     string
	SnapchatAccessToken string
	SnapchatTimeout     time.Duration

	// CRM webhook
	CRMWebhookSecret string

	// Per-IP rate limiting for the public tracking endpoints
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),

		DefaultCurrency:    getEnv("DEFAULT_CURRENCY", "SAR"),
		LeadBaseValue:      getEnvAsFloat("LEAD_BASE_VALUE", 500),
		DefaultCountry:     getEnv("DEFAULT_COUNTRY", "sa"),
		DefaultCountryCode: getEnv("DEFAULT_COUNTRY_CODE", "966"),
		ContentName:        getEnv("CONTENT_NAME", "رفوف تخزين معدنية"),
		ContentCategory:    getEnv("CONTENT_CATEGORY", "storage_solutions"),

		SendGridAPIKey:        getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail:     getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:      getEnv("SENDGRID_FROM_NAME", "Rufoof Leads"),
		BackupEmailRecipients: getEnvAsList("BACKUP_EMAIL_RECIPIENTS", nil),

		MetaEnabled:       getEnvAsBool("META_ENABLED", true),
		MetaPixelID:       getEnv("META_PIXEL_ID", ""),
		MetaAccessToken:   getEnv("META_ACCESS_TOKEN", ""),
		MetaAPIVersion:    getEnv("META_API_VERSION", "v18.0"),
		MetaTestEventCode: getEnv("META_TEST_EVENT_CODE", ""),
		MetaTimeout:       getEnvAsDuration("META_TIMEOUT", 10*time.Second),

		GoogleEnabled:       getEnvAsBool("GOOGLE_ENABLED", true),
		GoogleMeasurementID: getEnv("GA4_MEASUREMENT_ID", ""),
		GoogleAPISecret:     getEnv("GA4_API_SECRET", ""),
		GoogleTimeout:       getEnvAsDuration("GOOGLE_TIMEOUT", 10*time.Second),

		TikTokEnabled:     getEnvAsBool("TIKTOK_ENABLED", true),
		TikTokPixelCode:   getEnv("TIKTOK_PIXEL_CODE", ""),
		TikTokAccessToken: getEnv("TIKTOK_ACCESS_TOKEN", ""),
		TikTokTimeout:     getEnvAsDuration("TIKTOK_TIMEOUT", 10*time.Second),

		SnapchatEnabled:     getEnvAsBool("SNAPCHAT_ENABLED", true),
		SnapchatPixelID:     getEnv("SNAPCHAT_PIXEL_ID", ""),
		SnapchatAccessToken: getEnv("SNAPCHAT_ACCESS_TOKEN", ""),
		SnapchatTimeout:     getEnvAsDuration("SNAPCHAT_TIMEOUT", 10*time.Second),

		CRMWebhookSecret: getEnv("CRM_WEBHOOK_SECRET", ""),

		RateLimitPerSecond: getEnvAsFloat("RATE_LIMIT_PER_SECOND", 10),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 30),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an int or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsFloat retrieves an environment variable as a float or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated environment variable into a slice
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
