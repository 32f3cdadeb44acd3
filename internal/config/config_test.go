package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileMissingUsesDefaults(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvConnectivityTarget, "")

	c, err := LoadFile(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
	assert.Equal(t, 24*time.Hour, c.Session.RefreshInterval.Std())
	assert.Equal(t, []string{"filters.*"}, c.Session.PreferenceKeys)
}

func TestLoadFileOverlaysAndEnv(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.json")
	body := `{
		"log_level": "debug",
		"api": {"base_url": "https://staging.emitron.dev", "endpoints": {"permissions": "/v2/permissions"}},
		"session": {"refresh_interval": "6h", "offline_policy": "use_cached"},
		"login": {"poll_interval": 2}
	}`
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvConnectivityTarget, "localhost:50051")
	t.Setenv(EnvAPIURL, "")

	c, err := LoadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "error", c.LogLevel)
	assert.Equal(t, "https://staging.emitron.dev", c.API.BaseURL)
	assert.Equal(t, "/v2/permissions", c.API.Endpoints.Permissions)
	assert.Equal(t, "/api/cli/get-link", c.API.Endpoints.GetLink, "unset endpoints keep defaults")
	assert.Equal(t, 6*time.Hour, c.Session.RefreshInterval.Std())
	assert.Equal(t, "use_cached", c.Session.OfflinePolicy)
	assert.Equal(t, 2*time.Second, c.Login.PollInterval.Std())
	assert.Equal(t, "localhost:50051", c.Connectivity.Target)
}

func TestLoadFileRejectsBadDuration(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"session": {"refresh_interval": "soon"}}`), 0o600))
	_, err := LoadFile(p)
	assert.Error(t, err)
}

func TestDurationJSON(t *testing.T) {
	b, err := json.Marshal(Duration(90 * time.Minute))
	require.NoError(t, err)
	assert.Equal(t, `"1h30m0s"`, string(b))
}

func TestSaveWritesPrivateFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	require.NoError(t, Save(Default()))

	p, err := Path()
	require.NoError(t, err)
	fi, err := os.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
}
