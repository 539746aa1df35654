// Package config loads RankView configuration from environment variables,
// with an optional YAML overlay file.
package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Provider (AWR rank-tracking API)
	APIToken string `envconfig:"AWR_API_TOKEN"`
	// APIURL may carry a trailing "# comment" fragment when copied from
	// dotenv files; it is stripped on load.
	APIURL string `envconfig:"AWR_API_URL"`
	// APILimit is reserved for future pagination; no current call sends it.
	APILimit        int           `envconfig:"AWR_API_LIMIT" default:"2000"`
	ProviderTimeout time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"30s"`

	// Web server
	ListenAddr     string `envconfig:"HTTP_LISTEN_ADDR" default:":8080"`
	CORSOrigins    string `envconfig:"HTTP_CORS_ORIGINS"`
	RateLimitRPS   int    `envconfig:"HTTP_RATE_LIMIT_RPS" default:"0"`
	RateLimitBurst int    `envconfig:"HTTP_RATE_LIMIT_BURST" default:"0"`

	// Diagnostic endpoint. Empty key leaves /diagnostic open.
	DiagAPIKey string `envconfig:"DIAG_API_KEY"`

	// Optional YAML overlay (see file.go).
	ConfigFile string `envconfig:"CONFIG_FILE"`
}

// Load reads configuration from environment variables, applies the optional
// YAML overlay, and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if cfg.ConfigFile != "" {
		if err := cfg.applyFile(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}

	cfg.APIURL = sanitizeBaseURL(cfg.APIURL)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that required fields are present and well-formed.
func (c *Config) Validate() error {
	if c.APIToken == "" {
		return fmt.Errorf("config: AWR_API_TOKEN is required")
	}
	if c.APIURL == "" {
		return fmt.Errorf("config: AWR_API_URL is required")
	}
	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return fmt.Errorf("config: invalid listen address %q: %w", c.ListenAddr, err)
	}
	return nil
}

// RateLimitEnabled returns true if a positive RPS limit is configured.
func (c *Config) RateLimitEnabled() bool {
	return c.RateLimitRPS > 0
}

// DiagProtected returns true if the diagnostic endpoint requires a key.
func (c *Config) DiagProtected() bool {
	return c.DiagAPIKey != ""
}

// sanitizeBaseURL strips a trailing "# ..." comment fragment and surrounding
// whitespace from a base URL copied out of a dotenv file.
func sanitizeBaseURL(raw string) string {
	if i := strings.Index(raw, "#"); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimSpace(raw)
}
