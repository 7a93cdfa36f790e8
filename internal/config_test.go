package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/albumen/pkg/config"
)

func validConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.Airtable.BaseID = "appTest"
	cfg.Airtable.APIKey = "key"
	return cfg
}

func TestDefaultConfigNeedsCredentials(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err == nil {
		t.Fatal("default config without Airtable credentials should fail")
	}
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("config with credentials should pass: %v", err)
	}
}

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenMode(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}

	cfg = AuthConfig{Mode: "token"}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("empty token: err = %v", err)
	}

	cfg = AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Error("invalid mode should fail validation")
	}
}

func TestSectionValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"auth", func(c *Config) { c.Auth.Mode = "token" }},
		{"port", func(c *Config) { c.App.HTTP.Port = 70000 }},
		{"share url", func(c *Config) { c.App.ShareURL = "archive/" }},
		{"session idle", func(c *Config) { c.App.SessionIdle = time.Second }},
		{"catalog source", func(c *Config) { c.Catalog.Source = "" }},
		{"page size", func(c *Config) { c.Airtable.PageSize = 500 }},
		{"breaker threshold", func(c *Config) { c.Airtable.Breaker.FailureThreshold = 1.5 }},
		{"items per page", func(c *Config) { c.Browse.ItemsPerPage = 0 }},
		{"slideshow tick", func(c *Config) { c.Slideshow.Tick = time.Millisecond }},
		{"resync", func(c *Config) { c.Resync.Interval = time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadShippedConfig(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("APP_SHARE_URL", "https://archive.example/")
	t.Setenv("AIRTABLE_BASE_ID", "appTest")
	t.Setenv("AIRTABLE_API_KEY", "key")
	t.Setenv("APP_AUTH_TOKEN", "")

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(filepath.Join("..", "config", "config.yaml"), cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9000 || cfg.App.ShareURL != "https://archive.example/" {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.Airtable.Tables().Comments != "Image Comments" || cfg.Airtable.Breaker.Timeout != 30*time.Second {
		t.Errorf("airtable = %+v", cfg.Airtable)
	}
	if cfg.Browse.Debounce != 300*time.Millisecond || cfg.Slideshow.Speed != 4*time.Second {
		t.Errorf("timing = %+v %+v", cfg.Browse, cfg.Slideshow)
	}
	if cfg.Resync.Interval != 0 || cfg.Auth.AuthEnabled() {
		t.Errorf("resync/auth = %+v %+v", cfg.Resync, cfg.Auth)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "airtable:\n  base_id: appX\n  api_key: k\nbrowse:\n  items_per_page: 50\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Browse.ItemsPerPage != 50 || cfg.Browse.Debounce != 300*time.Millisecond {
		t.Errorf("browse = %+v", cfg.Browse)
	}
	if cfg.Airtable.MessagesTable != "Messages" {
		t.Errorf("messages table = %q", cfg.Airtable.MessagesTable)
	}
}
