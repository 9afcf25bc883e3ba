package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "http://localhost:8000/api/v1", cfg.Backend.BaseURL)
	assert.Equal(t, 2*time.Minute, cfg.Backend.Timeout)
	assert.Equal(t, "millex", cfg.Backend.ScrapeKind)
	assert.Equal(t, "disk", cfg.Storage.Type)
	assert.Equal(t, "cart", cfg.Storage.CartKey)
	assert.Equal(t, "₹", cfg.UI.CurrencySymbol)
	assert.Equal(t, 150, cfg.UI.SnippetLength)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Same(t, cfg, Get())
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
backend:
  base_url: "http://api.internal/v2"
  timeout: 5s
storage:
  type: redis
  redis:
    addr: "redis:6379"
`), 0o644))

	t.Setenv("SHOP_STORAGE_CART_KEY", "kiosk_cart")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "http://api.internal/v2", cfg.Backend.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "redis", cfg.Storage.Type)
	assert.Equal(t, "redis:6379", cfg.Storage.Redis.Addr)
	assert.Equal(t, "kiosk_cart", cfg.Storage.CartKey)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  type: sqlite\n"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "storage.type")
}

func TestValidate(t *testing.T) {
	valid := Config{
		Backend: BackendConfig{BaseURL: "http://x"},
		Storage: StorageConfig{Type: "memory", CartKey: "cart"},
		UI:      UIConfig{SnippetLength: 10},
	}
	assert.NoError(t, valid.Validate())

	noURL := valid
	noURL.Backend.BaseURL = ""
	assert.Error(t, noURL.Validate())

	noKey := valid
	noKey.Storage.CartKey = ""
	assert.Error(t, noKey.Validate())

	noSnippet := valid
	noSnippet.UI.SnippetLength = 0
	assert.Error(t, noSnippet.Validate())
}
