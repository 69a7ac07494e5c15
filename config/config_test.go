package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":8080" || cfg.EventEditPolicy != "admin_or_editor" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.SessionTTL() != 24*time.Hour {
		t.Errorf("SessionTTL = %v, want 24h", cfg.SessionTTL())
	}
}

func TestLoadParsesYAMLAndNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
listen: ":9090"
database_path: /tmp/agenda-test.db
session_ttl_hours: 2
event_edit_policy: admin_only
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":9090" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.EventEditPolicy != "admin_only" {
		t.Errorf("EventEditPolicy = %q", cfg.EventEditPolicy)
	}
	if cfg.SessionTTL() != 2*time.Hour {
		t.Errorf("SessionTTL = %v", cfg.SessionTTL())
	}
	// Omitted fields fall back to defaults.
	if cfg.SessionPruneCron != "@every 1h" || len(cfg.AllowedOrigins) == 0 {
		t.Errorf("normalization incomplete: %+v", cfg)
	}
}

func TestNormalizeRejectsUnknownPolicy(t *testing.T) {
	cfg := &Config{EventEditPolicy: "everyone"}
	cfg.Normalize()
	if cfg.EventEditPolicy != "admin_or_editor" {
		t.Errorf("unknown policy should fall back, got %q", cfg.EventEditPolicy)
	}
}
