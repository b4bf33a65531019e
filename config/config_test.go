package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("MAX_FILE_SIZE", "")
	t.Setenv("STORE", "")
	t.Setenv("MONGO_SOCKET_TIMEOUT", "")

	cfg := Load()
	if cfg.Port != "5000" {
		t.Fatalf("expected default port 5000, got %s", cfg.Port)
	}
	if cfg.MaxFileSize != 5*1024*1024 {
		t.Fatalf("expected 5MB upload ceiling, got %d", cfg.MaxFileSize)
	}
	if cfg.Store != StoreMongo {
		t.Fatalf("expected mongo store by default, got %s", cfg.Store)
	}
	if cfg.SocketTimeout != 45*time.Second || cfg.ServerSelectionTimeout != 10*time.Second {
		t.Fatalf("unexpected store timeouts %v / %v", cfg.ServerSelectionTimeout, cfg.SocketTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE", "Memory")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("FRONTEND_URL", "https://app.example")
	t.Setenv("APP_ENV", "production")
	t.Setenv("SMTP_USER", "")

	cfg := Load()
	if cfg.Store != StoreMemory {
		t.Fatalf("expected memory store, got %s", cfg.Store)
	}
	if len(cfg.AllowedOrigins) != 3 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}
	if !cfg.IsProduction() {
		t.Fatalf("expected production mode")
	}
	if cfg.SMTP.Enabled() {
		t.Fatalf("smtp must be disabled without credentials")
	}
}
