// Package config loads application configuration from environment variables.
package config

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/mytaskpanel/internal/domain/model"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr string
	DBPath     string

	// SecretKey is the 32-byte AES-256 key used to seal stored blobs; nil
	// disables encryption.
	SecretKey []byte

	// Server-side default credentials, used when a request carries no
	// override and no project is active.
	NotionToken      string
	NotionDatabaseID string
	GitHubToken      string

	ActivePollInterval time.Duration
	ListPollInterval   time.Duration
	StaleTime          time.Duration

	// StrictSelection makes task queries fail with "no active project" while
	// projects exist but none is selected, instead of using the defaults.
	StrictSelection bool

	// NotionRateLimit is the per-token Notion request rate (requests/second).
	NotionRateLimit float64
}

// HasNotionDefaults reports whether a default Notion token is configured.
func (c *Config) HasNotionDefaults() bool {
	return c.NotionToken != ""
}

// DefaultCredentials returns the server-side fallback credentials. The Notion
// pair wins; a GitHub token alone makes GitHub the default provider.
func (c *Config) DefaultCredentials() model.Credentials {
	if c.NotionToken == "" && c.GitHubToken != "" {
		return model.Credentials{Token: c.GitHubToken, Provider: model.ProviderGitHub}
	}
	return model.Credentials{
		Token:      c.NotionToken,
		DatabaseID: c.NotionDatabaseID,
		Provider:   model.ProviderNotion,
	}
}

// Load reads configuration from environment variables and returns a validated Config.
// Every variable is optional. Defaults: MYTASKPANEL_LISTEN_ADDR (127.0.0.1:8080),
// MYTASKPANEL_DB_PATH (mytaskpanel.db), MYTASKPANEL_ACTIVE_POLL_INTERVAL (500ms),
// MYTASKPANEL_LIST_POLL_INTERVAL (1.5s), MYTASKPANEL_STALE_TIME (30s),
// MYTASKPANEL_STRICT_SELECTION (false), MYTASKPANEL_NOTION_RATE_LIMIT (3).
// MYTASKPANEL_SECRET_KEY must decode (base64 or hex) to exactly 32 bytes.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:         "127.0.0.1:8080",
		DBPath:             "mytaskpanel.db",
		NotionToken:        strings.TrimSpace(os.Getenv("MYTASKPANEL_NOTION_TOKEN")),
		NotionDatabaseID:   strings.TrimSpace(os.Getenv("MYTASKPANEL_NOTION_DATABASE_ID")),
		GitHubToken:        strings.TrimSpace(os.Getenv("MYTASKPANEL_GITHUB_TOKEN")),
		ActivePollInterval: 500 * time.Millisecond,
		ListPollInterval:   1500 * time.Millisecond,
		StaleTime:          30 * time.Second,
		NotionRateLimit:    3,
	}

	if v, ok := os.LookupEnv("MYTASKPANEL_LISTEN_ADDR"); ok {
		cfg.ListenAddr = v
	}
	if v, ok := os.LookupEnv("MYTASKPANEL_DB_PATH"); ok {
		cfg.DBPath = v
	}

	if v, ok := os.LookupEnv("MYTASKPANEL_SECRET_KEY"); ok && v != "" {
		key, err := decodeKey(v)
		if err != nil {
			return nil, fmt.Errorf("MYTASKPANEL_SECRET_KEY: %w", err)
		}
		cfg.SecretKey = key
	}

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"MYTASKPANEL_ACTIVE_POLL_INTERVAL", &cfg.ActivePollInterval},
		{"MYTASKPANEL_LIST_POLL_INTERVAL", &cfg.ListPollInterval},
		{"MYTASKPANEL_STALE_TIME", &cfg.StaleTime},
	}
	for _, d := range durations {
		v, ok := os.LookupEnv(d.name)
		if !ok {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("%s has invalid duration %q: %w", d.name, v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("%s must be positive, got %s", d.name, v)
		}
		*d.dst = parsed
	}

	if v, ok := os.LookupEnv("MYTASKPANEL_STRICT_SELECTION"); ok && v != "" {
		strict, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("MYTASKPANEL_STRICT_SELECTION has invalid value %q: %w", v, err)
		}
		cfg.StrictSelection = strict
	}

	if v, ok := os.LookupEnv("MYTASKPANEL_NOTION_RATE_LIMIT"); ok && v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil || rate <= 0 {
			return nil, fmt.Errorf("MYTASKPANEL_NOTION_RATE_LIMIT must be a positive number, got %q", v)
		}
		cfg.NotionRateLimit = rate
	}

	return cfg, nil
}

// decodeKey accepts a 32-byte key as standard base64 or hex.
func decodeKey(v string) ([]byte, error) {
	v = strings.TrimSpace(v)
	if key, err := hex.DecodeString(v); err == nil && len(key) == 32 {
		return key, nil
	}
	if key, err := base64.StdEncoding.DecodeString(v); err == nil && len(key) == 32 {
		return key, nil
	}
	return nil, fmt.Errorf("must be 32 bytes encoded as base64 or hex")
}
