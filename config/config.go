package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address, e.g. ":8080". The PORT
	// environment variable, when set, overrides the port part.
	Listen string `yaml:"listen"`

	// DatabasePath is the SQLite database file.
	DatabasePath string `yaml:"database_path"`

	// MigrationsPath is the directory holding versioned SQL migrations.
	MigrationsPath string `yaml:"migrations_path"`

	// AllowedOrigins is the CORS allow-list for the admin frontend.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// SessionTTLHours bounds how long a session token stays valid.
	SessionTTLHours int `yaml:"session_ttl_hours"`

	// SessionPruneCron schedules the expired-session sweep.
	SessionPruneCron string `yaml:"session_prune_cron"`

	// EventEditPolicy selects who may create/edit/delete events:
	// "admin_only" or "admin_or_editor".
	EventEditPolicy string `yaml:"event_edit_policy"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:           ":8080",
		DatabasePath:     "./agenda.db",
		MigrationsPath:   "pkg/db/migrations/sqlite",
		AllowedOrigins:   []string{"http://localhost:3000"},
		SessionTTLHours:  24,
		SessionPruneCron: "@every 1h",
		EventEditPolicy:  "admin_or_editor",
	}
}

// Normalize fills in missing/zero values so partially-filled configs
// still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.DatabasePath == "" {
		c.DatabasePath = def.DatabasePath
	}
	if c.MigrationsPath == "" {
		c.MigrationsPath = def.MigrationsPath
	}
	if c.AllowedOrigins == nil {
		c.AllowedOrigins = def.AllowedOrigins
	}
	if c.SessionTTLHours <= 0 {
		c.SessionTTLHours = def.SessionTTLHours
	}
	if c.SessionPruneCron == "" {
		c.SessionPruneCron = def.SessionPruneCron
	}
	switch c.EventEditPolicy {
	case "admin_only", "admin_or_editor":
		// ok
	default:
		c.EventEditPolicy = def.EventEditPolicy
	}
}

// SessionTTL returns the configured session lifetime.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// Load reads configuration from the given YAML path. A missing file
// is not an error: the defaults are returned so a bare checkout runs.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return &cfg, nil
}
