package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.DefaultCurrency != "SAR" {
		t.Errorf("expected default currency SAR, got %s", cfg.DefaultCurrency)
	}
	if cfg.LeadBaseValue != 500 {
		t.Errorf("expected default base value 500, got %f", cfg.LeadBaseValue)
	}
	if cfg.DefaultCountryCode != "966" {
		t.Errorf("expected default country code 966, got %s", cfg.DefaultCountryCode)
	}
	if !cfg.MetaEnabled || !cfg.GoogleEnabled || !cfg.TikTokEnabled || !cfg.SnapchatEnabled {
		t.Error("expected all platforms enabled by default")
	}
	if cfg.MetaTimeout != 10*time.Second {
		t.Errorf("expected 10s meta timeout, got %s", cfg.MetaTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("META_ENABLED", "false")
	t.Setenv("LEAD_BASE_VALUE", "750")
	t.Setenv("SNAPCHAT_TIMEOUT", "5s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://rufoof.sa, https://www.rufoof.sa")

	cfg := Load()

	if cfg.Port != "9999" {
		t.Errorf("expected port 9999, got %s", cfg.Port)
	}
	if cfg.MetaEnabled {
		t.Error("expected meta disabled")
	}
	if cfg.LeadBaseValue != 750 {
		t.Errorf("expected base value 750, got %f", cfg.LeadBaseValue)
	}
	if cfg.SnapchatTimeout != 5*time.Second {
		t.Errorf("expected 5s snapchat timeout, got %s", cfg.SnapchatTimeout)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://www.rufoof.sa" {
		t.Errorf("unexpected origins: %v", cfg.CORSAllowedOrigins)
	}
}

func TestGetEnvAsBoolInvalid(t *testing.T) {
	t.Setenv("TIKTOK_ENABLED", "definitely")
	cfg := Load()
	if !cfg.TikTokEnabled {
		t.Error("invalid bool should fall back to default true")
	}
}
