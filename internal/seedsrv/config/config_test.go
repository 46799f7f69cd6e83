package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kayaseed.conf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	require.NoError(t, LoadConfig(""))
	cfg := Config()
	require.NotNil(t, cfg)

	assert.Equal(t, "8196", cfg.ServerPort)
	assert.Equal(t, ".data", cfg.DataDir)
	assert.Equal(t, 20, cfg.DefaultStock)
	assert.True(t, cfg.Sandbox)
	assert.Equal(t, "kaya-seed", cfg.EndpointName)
	assert.Equal(t, 10*time.Second, cfg.Timeout())
	assert.Equal(t, 300*time.Second, cfg.KeySetTTL())
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
server_port = "9000"
data_dir = "/tmp/kaya"
default_stock = 5
sandbox = false
platform_url = "https://platform.example.com"
marketplace_url = "https://market.example.com"
client_id = "client-1"
username = "seed"
password = "secret"
required_roles = ["kaya-seed"]
http_timeout = 3
keyset_cache_ttl = 60
`)
	require.NoError(t, LoadConfig(path))
	cfg := Config()

	assert.Equal(t, "9000", cfg.ServerPort)
	assert.Equal(t, "/tmp/kaya", cfg.DataDir)
	assert.Equal(t, 5, cfg.DefaultStock)
	assert.Equal(t, []string{"kaya-seed"}, cfg.RequiredRoles)
	assert.Equal(t, "https://platform.example.com", cfg.PlatformBaseURL())
	assert.Equal(t, "https://market.example.com", cfg.MarketplaceBaseURL())
	assert.Equal(t, 3*time.Second, cfg.Timeout())
	assert.Equal(t, 60*time.Second, cfg.KeySetTTL())

	// Restore defaults for other tests in this package.
	require.NoError(t, LoadConfig(""))
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not toml", `server_port: "9000"`},
		{"negative stock", `default_stock = -1`},
		{"bad url", `platform_url = "not a url"`},
		{"zero timeout", `http_timeout = 0`},
		{"empty port", `server_port = ""`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			assert.Error(t, LoadConfig(path))
		})
	}

	t.Run("missing file", func(t *testing.T) {
		assert.Error(t, LoadConfig(filepath.Join(t.TempDir(), "absent.conf")))
	})

	require.NoError(t, LoadConfig(""))
}

func TestBaseURLs(t *testing.T) {
	require.NoError(t, LoadConfig(""))
	cfg := Config()

	assert.Equal(t, "https://kaya-platform.sandbox.nerd4ever.com.br", cfg.PlatformBaseURL())
	assert.Equal(t, "https://marketplace.sandbox.nerd4ever.com.br", cfg.MarketplaceBaseURL())

	cfg.Sandbox = false
	assert.Equal(t, "https://kaya-platform.nerd4ever.com.br", cfg.PlatformBaseURL())
	assert.Equal(t, "https://marketplace.nerd4ever.com.br", cfg.MarketplaceBaseURL())

	require.NoError(t, LoadConfig(""))
}
