// Package config loads and stores CLI configuration in the XDG config dir.
// Only non-secret settings are kept here; tokens go to the OS keychain.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"emitron/cli/internal/backend"
	"emitron/cli/internal/xdg"
)

// Environment overrides.
const (
	EnvAPIURL             = "EMITRON_API_URL"
	EnvLogLevel           = "EMITRON_LOG_LEVEL"
	EnvConnectivityTarget = "EMITRON_CONNECTIVITY_TARGET"
)

// Duration is a time.Duration stored as a Go duration string ("24h", "3s").
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// Bare numbers are seconds.
		var secs float64
		if nerr := json.Unmarshal(b, &secs); nerr != nil {
			return fmt.Errorf("duration must be a string like \"24h\": %w", err)
		}
		*d = Duration(secs * float64(time.Second))
		return nil
	}
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config holds non-sensitive CLI settings.
type Config struct {
	LogLevel     string             `json:"log_level"`
	LogFormat    string             `json:"log_format"`
	API          APIConfig          `json:"api"`
	Connectivity ConnectivityConfig `json:"connectivity"`
	Session      SessionConfig      `json:"session"`
	Login        LoginConfig        `json:"login"`
	Downloads    DownloadsConfig    `json:"downloads"`
}

// APIConfig points at the account API.
type APIConfig struct {
	BaseURL   string            `json:"base_url"`
	Endpoints backend.Endpoints `json:"endpoints"`
	Timeout   Duration          `json:"timeout"`
}

// ConnectivityConfig drives the reachability monitor.
type ConnectivityConfig struct {
	Target        string   `json:"target"`
	Insecure      bool     `json:"insecure"`
	ProbeInterval Duration `json:"probe_interval"`
	HealthService string   `json:"health_service"`
	// Wait bounds how long login waits for connectivity before going on offline.
	Wait Duration `json:"wait"`
}

// SessionConfig tunes the session controller.
type SessionConfig struct {
	RefreshInterval Duration `json:"refresh_interval"`
	OfflinePolicy   string   `json:"offline_policy"`
	// PreferenceKeys are removed from prefs.json on logout. A trailing "*"
	// matches every key with that prefix.
	PreferenceKeys []string `json:"preference_keys"`
}

// LoginConfig tunes the device-link flow.
type LoginConfig struct {
	PollInterval Duration `json:"poll_interval"`
	Timeout      Duration `json:"timeout"`
}

// DownloadsConfig locates offline content. Empty Dir means $XDG_DATA_HOME/emitron/videos.
type DownloadsConfig struct {
	Dir string `json:"dir"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel:  "warn",
		LogFormat: "text",
		API: APIConfig{
			BaseURL:   "https://api.emitron.dev",
			Endpoints: backend.DefaultEndpoints(),
			Timeout:   Duration(10 * time.Second),
		},
		Connectivity: ConnectivityConfig{
			Target:        "api.emitron.dev:443",
			ProbeInterval: Duration(30 * time.Second),
			Wait:          Duration(3 * time.Second),
		},
		Session: SessionConfig{
			RefreshInterval: Duration(24 * time.Hour),
			OfflinePolicy:   "stay_loading",
			PreferenceKeys:  []string{"filters.*"},
		},
		Login: LoginConfig{
			Timeout: Duration(5 * time.Minute),
		},
	}
}

// Path returns the path of config.json.
func Path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads configuration; a missing file yields defaults. Environment
// overrides are applied last.
func Load() (Config, error) {
	p, err := Path()
	if err != nil {
		return Config{}, err
	}
	return LoadFile(p)
}

// LoadFile reads configuration from p, layering it over Default.
func LoadFile(p string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(p)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return c, err
	default:
		if err := json.Unmarshal(data, &c); err != nil {
			return c, fmt.Errorf("parse %s: %w", p, err)
		}
	}
	c.applyEnv()
	return c, c.Validate()
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		c.API.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvConnectivityTarget)); v != "" {
		c.Connectivity.Target = v
	}
}

// Validate reports settings the CLI cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api.base_url is empty"))
	}
	if c.Session.RefreshInterval < 0 {
		errs = append(errs, errors.New("session.refresh_interval is negative"))
	}
	if c.Login.Timeout < 0 {
		errs = append(errs, errors.New("login.timeout is negative"))
	}
	return errors.Join(errs...)
}

// Save writes configuration with 0600 permissions.
func Save(c Config) error {
	p, err := Path()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}
