package config

import (
	"encoding/base64"
	"encoding/hex"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/mytaskpanel/internal/domain/model"
)

// allConfigKeys lists every MYTASKPANEL_ env var that Load() reads.
var allConfigKeys = []string{
	"MYTASKPANEL_LISTEN_ADDR",
	"MYTASKPANEL_DB_PATH",
	"MYTASKPANEL_SECRET_KEY",
	"MYTASKPANEL_NOTION_TOKEN",
	"MYTASKPANEL_NOTION_DATABASE_ID",
	"MYTASKPANEL_GITHUB_TOKEN",
	"MYTASKPANEL_ACTIVE_POLL_INTERVAL",
	"MYTASKPANEL_LIST_POLL_INTERVAL",
	"MYTASKPANEL_STALE_TIME",
	"MYTASKPANEL_STRICT_SELECTION",
	"MYTASKPANEL_NOTION_RATE_LIMIT",
}

// isolateConfigEnv saves and unsets all MYTASKPANEL_ env vars so tests don't
// inherit values from the host environment (e.g. a running dev server).
// t.Cleanup restores original values after the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("MYTASKPANEL_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("MYTASKPANEL_DB_PATH", "/tmp/test.db")
	t.Setenv("MYTASKPANEL_NOTION_TOKEN", " secret_abc ")
	t.Setenv("MYTASKPANEL_NOTION_DATABASE_ID", "db-123")
	t.Setenv("MYTASKPANEL_GITHUB_TOKEN", "ghp_test123")
	t.Setenv("MYTASKPANEL_ACTIVE_POLL_INTERVAL", "250ms")
	t.Setenv("MYTASKPANEL_LIST_POLL_INTERVAL", "2s")
	t.Setenv("MYTASKPANEL_STALE_TIME", "1m")
	t.Setenv("MYTASKPANEL_STRICT_SELECTION", "true")
	t.Setenv("MYTASKPANEL_NOTION_RATE_LIMIT", "1.5")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, "secret_abc", cfg.NotionToken)
	assert.Equal(t, "db-123", cfg.NotionDatabaseID)
	assert.Equal(t, "ghp_test123", cfg.GitHubToken)
	assert.Equal(t, 250*time.Millisecond, cfg.ActivePollInterval)
	assert.Equal(t, 2*time.Second, cfg.ListPollInterval)
	assert.Equal(t, time.Minute, cfg.StaleTime)
	assert.True(t, cfg.StrictSelection)
	assert.InDelta(t, 1.5, cfg.NotionRateLimit, 0.0001)
	assert.True(t, cfg.HasNotionDefaults())
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "mytaskpanel.db", cfg.DBPath)
	assert.Nil(t, cfg.SecretKey)
	assert.Empty(t, cfg.NotionToken)
	assert.Equal(t, 500*time.Millisecond, cfg.ActivePollInterval)
	assert.Equal(t, 1500*time.Millisecond, cfg.ListPollInterval)
	assert.Equal(t, 30*time.Second, cfg.StaleTime)
	assert.False(t, cfg.StrictSelection)
	assert.InDelta(t, 3.0, cfg.NotionRateLimit, 0.0001)
	assert.False(t, cfg.HasNotionDefaults())
}

func TestLoad_SecretKey(t *testing.T) {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = byte(i)
	}

	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{name: "base64", value: base64.StdEncoding.EncodeToString(raw)},
		{name: "hex", value: hex.EncodeToString(raw)},
		{name: "too short", value: base64.StdEncoding.EncodeToString(raw[:16]), wantErr: true},
		{name: "garbage", value: "not-a-key", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateConfigEnv(t)
			t.Setenv("MYTASKPANEL_SECRET_KEY", tt.value)

			cfg, err := Load()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "MYTASKPANEL_SECRET_KEY")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, raw, cfg.SecretKey)
		})
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantMsg string
	}{
		{"bad duration", "MYTASKPANEL_STALE_TIME", "soon", "invalid duration"},
		{"negative duration", "MYTASKPANEL_ACTIVE_POLL_INTERVAL", "-1s", "must be positive"},
		{"bad bool", "MYTASKPANEL_STRICT_SELECTION", "maybe", "invalid value"},
		{"zero rate", "MYTASKPANEL_NOTION_RATE_LIMIT", "0", "positive number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateConfigEnv(t)
			t.Setenv(tt.key, tt.value)

			cfg, err := Load()

			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.key)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestDefaultCredentials(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want model.Credentials
	}{
		{
			name: "notion pair",
			cfg:  Config{NotionToken: "secret_n", NotionDatabaseID: "db", GitHubToken: "ghp_x"},
			want: model.Credentials{Token: "secret_n", DatabaseID: "db", Provider: model.ProviderNotion},
		},
		{
			name: "github only",
			cfg:  Config{GitHubToken: "ghp_x"},
			want: model.Credentials{Token: "ghp_x", Provider: model.ProviderGitHub},
		},
		{
			name: "nothing configured",
			cfg:  Config{},
			want: model.Credentials{Provider: model.ProviderNotion},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.DefaultCredentials())
		})
	}
}
