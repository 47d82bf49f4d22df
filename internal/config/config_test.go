package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "shopify.job.sync.all.products", cfg.Integration.JobName)
	assert.Equal(t, "shopify.key.sync.all.products", cfg.Integration.Event)
	assert.Equal(t, 30*time.Second, cfg.Client.Timeout)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.False(t, cfg.IsConfigured())
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Integration, cfg.Integration)
}

func TestLoader_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  url: https://erp.example.com/
  api_key: key1
  api_secret: secret1
realtime:
  url: https://erp.example.com:9000
client:
  timeout: 5s
  requests_per_second: 0
logging:
  level: DEBUG
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "https://erp.example.com", cfg.Server.URL)
	assert.True(t, cfg.IsConfigured())
	assert.Equal(t, "https://erp.example.com:9000", cfg.RealtimeURL())
	assert.Equal(t, 5*time.Second, cfg.Client.Timeout)
	assert.Zero(t, cfg.Client.RequestsPerSecond)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	// untouched sections keep their defaults
	assert.Equal(t, "Import Shopify Products", cfg.Integration.Title)
}

func TestLoader_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("SHOPSYNC_SERVER_API_KEY", "from-env")

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Server.APIKey)
}

func TestLoader_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Server.URL = "https://erp.example.com"
	cfg.Server.APIKey = "k"
	cfg.Server.APISecret = "s"
	cfg.Realtime.Namespace = "erp.example.com"

	require.NoError(t, NewLoader(path).Save(cfg))

	loaded, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, cfg.Server, loaded.Server)
	assert.Equal(t, "erp.example.com", loaded.Realtime.Namespace)
	assert.Equal(t, cfg.Client.Timeout, loaded.Client.Timeout)
}

func TestRealtimeURL_DefaultsToServer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.URL = "https://erp.example.com"
	assert.Equal(t, "https://erp.example.com", cfg.RealtimeURL())
}
